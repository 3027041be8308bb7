package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestPinStore_InsertIfAbsent(t *testing.T) {
	db := testDB(t)
	store := NewPinStore(db, "batch-1")

	inserted, err := store.InsertIfAbsent("TESTPIN23456")
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert reported not inserted")
	}

	inserted, err = store.InsertIfAbsent("TESTPIN23456")
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate insert reported inserted")
	}

	var pin models.AccessPin
	if err := db.Where("pin = ?", "TESTPIN23456").First(&pin).Error; err != nil {
		t.Fatalf("load pin: %v", err)
	}
	if pin.BatchID != "batch-1" {
		t.Errorf("batch id = %q, want batch-1", pin.BatchID)
	}
	if !pin.IsActive {
		t.Error("new pin is not active")
	}
	if pin.OwnerLgaCode != nil {
		t.Error("new pin is already claimed")
	}
}

func TestPinStore_FilterExisting(t *testing.T) {
	db := testDB(t)
	store := NewPinStore(db, "batch-1")

	for _, p := range []string{"AAAA", "BBBB"} {
		if _, err := store.InsertIfAbsent(p); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}

	taken, err := store.FilterExisting([]string{"AAAA", "BBBB", "CCCC"})
	if err != nil {
		t.Fatalf("FilterExisting: %v", err)
	}
	if len(taken) != 2 {
		t.Fatalf("taken = %v, want AAAA and BBBB", taken)
	}
	if _, ok := taken["CCCC"]; ok {
		t.Error("free code reported as taken")
	}
}

// Account-code uniqueness spans the regular and late tables: a code in
// either must be reported as taken.
func TestAccCodeStore_SpansBothTables(t *testing.T) {
	db := testDB(t)

	db.Create(&models.Registration{
		AccCode: "1111111111", StudentNumber: "30450001",
		LgaCode: "DT-03", SchoolCode: "45",
		Surname: "OKORO", FirstName: "ADA", Gender: "F", ExamYear: 2026,
	})
	db.Create(&models.PostRegistration{
		AccCode: "2222222222", StudentNumber: "30450002",
		LgaCode: "DT-03", SchoolCode: "45",
		Surname: "BELLO", FirstName: "SAM", Gender: "M", ExamYear: 2026,
	})

	store := NewAccCodeStore(db)

	for _, code := range []string{"1111111111", "2222222222"} {
		taken, err := store.Exists(code)
		if err != nil {
			t.Fatalf("Exists(%s): %v", code, err)
		}
		if !taken {
			t.Errorf("code %s not reported taken", code)
		}
	}

	set, err := store.FilterExisting([]string{"1111111111", "2222222222", "3333333333"})
	if err != nil {
		t.Fatalf("FilterExisting: %v", err)
	}
	if len(set) != 2 {
		t.Errorf("taken set = %v, want both seeded codes", set)
	}
}

func TestStudentNumberStore_SpansBothTables(t *testing.T) {
	db := testDB(t)

	db.Create(&models.Registration{
		AccCode: "1111111111", StudentNumber: "30450007",
		LgaCode: "DT-03", SchoolCode: "45",
		Surname: "OKORO", FirstName: "ADA", Gender: "F", ExamYear: 2026,
	})
	db.Create(&models.PostRegistration{
		AccCode: "2222222222", StudentNumber: "30450009",
		LgaCode: "DT-03", SchoolCode: "45",
		Surname: "BELLO", FirstName: "SAM", Gender: "M", ExamYear: 2026,
	})
	// other school, must not leak in
	db.Create(&models.Registration{
		AccCode: "4444444444", StudentNumber: "30990001",
		LgaCode: "DT-03", SchoolCode: "99",
		Surname: "ADAMS", FirstName: "EBI", Gender: "F", ExamYear: 2026,
	})

	store := NewStudentNumberStore(db)
	numbers, err := store.ListStudentNumbers("DT-03", "45")
	if err != nil {
		t.Fatalf("ListStudentNumbers: %v", err)
	}
	if len(numbers) != 2 {
		t.Fatalf("numbers = %v, want the two rows of school 45", numbers)
	}
}
