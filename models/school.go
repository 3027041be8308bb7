package models

import "time"

// School is a portal account for one school, keyed by the composite
// (lga_code, school_code). RegistrationClosed is the numbering mode switch:
// false = alphabetical recompute on every roster change, true = appended
// incremental numbers with existing numbers frozen. The transition is
// one-directional within a registration cycle.
type School struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	LgaCode    string `gorm:"size:10;not null;uniqueIndex:idx_schools_lga_school" json:"lga_code"`
	SchoolCode string `gorm:"size:10;not null;uniqueIndex:idx_schools_lga_school" json:"school_code"`
	SchoolName string `gorm:"size:100;not null" json:"school_name"`
	Address    string `gorm:"size:255"          json:"address"`
	Phone      string `gorm:"size:20"           json:"phone"`

	RegistrationClosed bool `gorm:"default:false;not null" json:"registration_closed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
