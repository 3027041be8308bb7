package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

// PinStore adapts the access_pins table to codegen.Store. Every PIN it
// inserts carries the admin generation batch id.
type PinStore struct {
	db      *gorm.DB
	batchID string
}

func NewPinStore(db *gorm.DB, batchID string) *PinStore {
	return &PinStore{db: db, batchID: batchID}
}

func (s *PinStore) Exists(code string) (bool, error) {
	var n int64
	err := s.db.Model(&models.AccessPin{}).Where("pin = ?", code).Count(&n).Error
	return n > 0, err
}

// InsertIfAbsent reserves the code by inserting an unclaimed PIN row. The
// unique index on pin makes the reservation atomic: of two concurrent
// callers drawing the same code, exactly one insert succeeds.
func (s *PinStore) InsertIfAbsent(code string) (bool, error) {
	pin := models.AccessPin{Pin: code, IsActive: true, BatchID: s.batchID}
	if err := s.db.Create(&pin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PinStore) FilterExisting(codes []string) (map[string]struct{}, error) {
	var found []string
	if err := s.db.Model(&models.AccessPin{}).
		Where("pin IN ?", codes).
		Pluck("pin", &found).Error; err != nil {
		return nil, err
	}
	return toSet(found), nil
}

// AccCodeStore adapts both registration tables to codegen.Checker. Account
// codes must be unique across regular and late registrations together, so
// every check spans the two tables in a single query.
type AccCodeStore struct {
	db *gorm.DB
}

func NewAccCodeStore(db *gorm.DB) *AccCodeStore {
	return &AccCodeStore{db: db}
}

func (s *AccCodeStore) Exists(code string) (bool, error) {
	set, err := s.FilterExisting([]string{code})
	if err != nil {
		return false, err
	}
	_, ok := set[code]
	return ok, nil
}

func (s *AccCodeStore) FilterExisting(codes []string) (map[string]struct{}, error) {
	var found []string
	err := s.db.Raw(
		`SELECT acc_code FROM registrations WHERE acc_code IN ?
		 UNION
		 SELECT acc_code FROM post_registrations WHERE acc_code IN ?`,
		codes, codes,
	).Scan(&found).Error
	if err != nil {
		return nil, err
	}
	return toSet(found), nil
}

// StudentNumberStore adapts both registration tables to
// numbering.NumberStore for the late-mode max-sequence scan.
type StudentNumberStore struct {
	db *gorm.DB
}

func NewStudentNumberStore(db *gorm.DB) *StudentNumberStore {
	return &StudentNumberStore{db: db}
}

func (s *StudentNumberStore) ListStudentNumbers(lgaCode, schoolCode string) ([]string, error) {
	var numbers []string
	err := s.db.Raw(
		`SELECT student_number FROM registrations WHERE lga_code = ? AND school_code = ?
		 UNION ALL
		 SELECT student_number FROM post_registrations WHERE lga_code = ? AND school_code = ?`,
		lgaCode, schoolCode, lgaCode, schoolCode,
	).Scan(&numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}
