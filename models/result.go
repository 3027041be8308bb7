package models

import "time"

// Result is one subject grade for a registered student, keyed by the
// student's account code (the per-student unique identifier; the roster
// student number collapses for shared surnames and cannot key results).
type Result struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	AccCode  string `gorm:"size:10;not null;uniqueIndex:idx_results_acc_subject" json:"acc_code"`
	Subject  string `gorm:"size:50;not null;uniqueIndex:idx_results_acc_subject" json:"subject"`
	Grade    string `gorm:"size:5;not null" json:"grade"`
	ExamYear int    `gorm:"not null"        json:"exam_year"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
