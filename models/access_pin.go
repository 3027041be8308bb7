package models

import "time"

// AccessPin gates a school's access to the portal. A PIN starts unclaimed
// (owner fields null) and is claimed by exactly one (lga_code, school_code)
// pair on its first successful verification; every other school is rejected
// from then on. Deactivation is a soft delete — the row stays so the code
// can never be reissued.
type AccessPin struct {
	ID         uint   `gorm:"primaryKey"                   json:"id"`
	Pin        string `gorm:"size:16;uniqueIndex;not null" json:"pin"`
	IsActive   bool   `gorm:"default:true;not null"        json:"is_active"`
	UsageCount int    `gorm:"default:0;not null"           json:"usage_count"`
	BatchID    string `gorm:"size:36;index;not null"       json:"batch_id"` // admin generation batch (uuid)

	OwnerLgaCode    *string    `gorm:"size:10"  json:"owner_lga_code,omitempty"`
	OwnerSchoolCode *string    `gorm:"size:10"  json:"owner_school_code,omitempty"`
	OwnerSchoolName *string    `gorm:"size:100" json:"owner_school_name,omitempty"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
