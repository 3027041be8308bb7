package models

import "time"

// Registration is one student registered while the school's window was open
// ("regular" table). AccCode is the internal per-student identifier;
// StudentNumber is the roster-facing number and is rewritten in bulk by the
// numbering engine, so it carries no uniqueness constraint (students sharing
// a surname share a number).
type Registration struct {
	ID            uint   `gorm:"primaryKey"                   json:"id"`
	AccCode       string `gorm:"size:10;uniqueIndex;not null" json:"acc_code"`
	StudentNumber string `gorm:"size:20;index;not null"       json:"student_number"`

	LgaCode    string `gorm:"size:10;not null;index:idx_registrations_school" json:"lga_code"`
	SchoolCode string `gorm:"size:10;not null;index:idx_registrations_school" json:"school_code"`

	Surname    string     `gorm:"size:50;not null" json:"surname"`
	FirstName  string     `gorm:"size:50;not null" json:"first_name"`
	MiddleName string     `gorm:"size:50"          json:"middle_name"`
	Gender     string     `gorm:"size:10;not null" json:"gender"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	ExamYear   int        `gorm:"not null" json:"exam_year"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostRegistration is one student added after the window closed ("late"
// table). Same shape as Registration; numbers here are appended, never
// recomputed.
type PostRegistration struct {
	ID            uint   `gorm:"primaryKey"                   json:"id"`
	AccCode       string `gorm:"size:10;uniqueIndex;not null" json:"acc_code"`
	StudentNumber string `gorm:"size:20;index;not null"       json:"student_number"`

	LgaCode    string `gorm:"size:10;not null;index:idx_post_registrations_school" json:"lga_code"`
	SchoolCode string `gorm:"size:10;not null;index:idx_post_registrations_school" json:"school_code"`

	Surname    string     `gorm:"size:50;not null" json:"surname"`
	FirstName  string     `gorm:"size:50;not null" json:"first_name"`
	MiddleName string     `gorm:"size:50"          json:"middle_name"`
	Gender     string     `gorm:"size:10;not null" json:"gender"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	ExamYear   int        `gorm:"not null" json:"exam_year"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
