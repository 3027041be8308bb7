package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

func seedSchool(t *testing.T, closed bool) {
	t.Helper()
	row := models.School{
		LgaCode:            "DT-03",
		SchoolCode:         "45",
		SchoolName:         "Ogwashi Mixed Secondary",
		RegistrationClosed: closed,
	}
	if err := database.DB.Create(&row).Error; err != nil {
		t.Fatalf("seed school: %v", err)
	}
}

func submitBody(surnames ...string) string {
	students := ""
	for i, s := range surnames {
		if i > 0 {
			students += ","
		}
		students += fmt.Sprintf(`{"surname":%q,"first_name":"Ada","gender":"F","exam_year":2026}`, s)
	}
	return fmt.Sprintf(`{"pin":"KNOWNPIN2345","lga_code":"DT-03","school_code":"45","school_name":"Ogwashi Mixed Secondary","students":[%s]}`, students)
}

func rosterNumbers(t *testing.T) map[string]string {
	t.Helper()
	var rows []models.Registration
	if err := database.DB.Order("id").Find(&rows).Error; err != nil {
		t.Fatalf("load roster: %v", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Surname] = r.StudentNumber
	}
	return out
}

func TestSubmit_RegularModeAlphabeticalNumbers(t *testing.T) {
	setupDB(t)
	seedSchool(t, false)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	rec, body := doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Smith", "Adams", "Zed"))
	wantStatus(t, rec, http.StatusCreated)
	if body["registered"].(float64) != 3 {
		t.Fatalf("registered = %v, want 3", body["registered"])
	}
	if _, warned := body["warning"]; warned {
		t.Fatalf("unexpected warning: %v", body["warning"])
	}

	nums := rosterNumbers(t)
	want := map[string]string{"Adams": "30450001", "Smith": "30450002", "Zed": "30450003"}
	for surname, num := range want {
		if nums[surname] != num {
			t.Errorf("%s = %s, want %s", surname, nums[surname], num)
		}
	}
}

func TestSubmit_DuplicateSurnamesShareNumber(t *testing.T) {
	setupDB(t)
	seedSchool(t, false)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	rec, _ := doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Okoro", "Bello", "Okoro"))
	wantStatus(t, rec, http.StatusCreated)

	var rows []models.Registration
	database.DB.Where("surname = ?", "Okoro").Find(&rows)
	if len(rows) != 2 {
		t.Fatalf("Okoro rows = %d, want 2", len(rows))
	}
	if rows[0].StudentNumber != rows[1].StudentNumber {
		t.Errorf("duplicate surname numbers differ: %s vs %s", rows[0].StudentNumber, rows[1].StudentNumber)
	}
	if rows[0].AccCode == rows[1].AccCode {
		t.Error("duplicate surname rows share an account code")
	}

	nums := rosterNumbers(t)
	if nums["Bello"] != "30450001" || nums["Okoro"] != "30450002" {
		t.Errorf("numbers = %v, want Bello 30450001 and Okoro 30450002", nums)
	}
}

func TestSubmit_SecondBatchRecomputesRanks(t *testing.T) {
	setupDB(t)
	seedSchool(t, false)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	rec, _ := doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Okoro", "Zed"))
	wantStatus(t, rec, http.StatusCreated)

	// A surname sorting before the existing ones shifts every rank after it.
	rec, _ = doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Adams"))
	wantStatus(t, rec, http.StatusCreated)

	nums := rosterNumbers(t)
	want := map[string]string{"Adams": "30450001", "Okoro": "30450002", "Zed": "30450003"}
	for surname, num := range want {
		if nums[surname] != num {
			t.Errorf("%s = %s, want %s", surname, nums[surname], num)
		}
	}
}

func TestSubmit_LateModeAppendsAfterFinish(t *testing.T) {
	setupDB(t)
	seedSchool(t, false)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	rec, _ := doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Adams", "Okoro"))
	wantStatus(t, rec, http.StatusCreated)

	rec, _ = doJSON(t, h.Finish, http.MethodPost, "/registrations/finish", verifyBody("KNOWNPIN2345", "DT-03", "45"))
	wantStatus(t, rec, http.StatusOK)

	var school models.School
	database.DB.Where("lga_code = ? AND school_code = ?", "DT-03", "45").First(&school)
	if !school.RegistrationClosed {
		t.Fatal("school still open after finish")
	}

	// Late arrivals go to the other table with appended numbers; the frozen
	// roster keeps its alphabetical numbers even though "Bello" sorts between
	// them.
	rec, _ = doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Bello", "Abba"))
	wantStatus(t, rec, http.StatusCreated)

	nums := rosterNumbers(t)
	if nums["Adams"] != "30450001" || nums["Okoro"] != "30450002" {
		t.Errorf("frozen roster changed: %v", nums)
	}

	var late []models.PostRegistration
	database.DB.Order("id").Find(&late)
	if len(late) != 2 {
		t.Fatalf("late rows = %d, want 2", len(late))
	}
	if late[0].StudentNumber != "30450003" || late[1].StudentNumber != "30450004" {
		t.Errorf("late numbers = %s, %s, want 30450003, 30450004", late[0].StudentNumber, late[1].StudentNumber)
	}
}

func TestSubmit_BulkValidationRejectsWholeBatch(t *testing.T) {
	setupDB(t)
	seedSchool(t, false)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	body := `{"pin":"KNOWNPIN2345","lga_code":"DT-03","school_code":"45","students":[
		{"surname":"Okoro","first_name":"Ada","gender":"F","exam_year":2026},
		{"surname":"B4dname","first_name":"Sam","gender":"X","exam_year":1900}
	]}`
	rec, resp := doJSON(t, h.Submit, http.MethodPost, "/registrations", body)
	wantStatus(t, rec, http.StatusBadRequest)
	if resp["error"] != "BULK_VALIDATION_ERROR" {
		t.Errorf("error = %v, want BULK_VALIDATION_ERROR", resp["error"])
	}

	var n int64
	database.DB.Model(&models.Registration{}).Count(&n)
	if n != 0 {
		t.Errorf("rows persisted from invalid batch: %d", n)
	}
}

func TestSubmit_UnknownSchool(t *testing.T) {
	setupDB(t)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	rec, resp := doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Okoro"))
	wantStatus(t, rec, http.StatusNotFound)
	if resp["error"] != "SCHOOL_NOT_FOUND" {
		t.Errorf("error = %v, want SCHOOL_NOT_FOUND", resp["error"])
	}
}

func TestSubmit_ReferenceMissWarnsAndStillRegisters(t *testing.T) {
	setupDB(t)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	// School exists in the portal but not in the reference dataset.
	row := models.School{LgaCode: "DT-99", SchoolCode: "7", SchoolName: "Unlisted College"}
	if err := database.DB.Create(&row).Error; err != nil {
		t.Fatalf("seed school: %v", err)
	}

	body := `{"pin":"KNOWNPIN2345","lga_code":"DT-99","school_code":"7","students":[
		{"surname":"Okoro","first_name":"Ada","gender":"F","exam_year":2026}
	]}`
	rec, resp := doJSON(t, h.Submit, http.MethodPost, "/registrations", body)
	wantStatus(t, rec, http.StatusCreated)
	if resp["warning"] != "SCHOOL_REFERENCE_NOT_FOUND" {
		t.Errorf("warning = %v, want SCHOOL_REFERENCE_NOT_FOUND", resp["warning"])
	}

	var n int64
	database.DB.Model(&models.Registration{}).Count(&n)
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestUpdate_SurnameChangeRecomputesOpenRoster(t *testing.T) {
	setupDB(t)
	seedSchool(t, false)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	rec, _ := doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Bello", "Okoro"))
	wantStatus(t, rec, http.StatusCreated)

	var row models.Registration
	database.DB.Where("surname = ?", "Okoro").First(&row)

	upd := `{"surname":"Abba","first_name":"Ada","gender":"F","exam_year":2026}`
	recUpd := doParam(t, h.Update, http.MethodPut, fmt.Sprint(row.ID), upd)
	wantStatus(t, recUpd, http.StatusOK)

	nums := rosterNumbers(t)
	if nums["Abba"] != "30450001" || nums["Bello"] != "30450002" {
		t.Errorf("numbers after rename = %v, want Abba 30450001 and Bello 30450002", nums)
	}
}

func TestDelete_RecomputesOpenRoster(t *testing.T) {
	setupDB(t)
	seedSchool(t, false)
	seedPin(t, "KNOWNPIN2345", true)
	h := NewRegistrationHandler(setupRefs(t))

	rec, _ := doJSON(t, h.Submit, http.MethodPost, "/registrations", submitBody("Adams", "Bello", "Okoro"))
	wantStatus(t, rec, http.StatusCreated)

	var row models.Registration
	database.DB.Where("surname = ?", "Adams").First(&row)

	recDel := doParam(t, h.Delete, http.MethodDelete, fmt.Sprint(row.ID))
	wantStatus(t, recDel, http.StatusNoContent)

	nums := rosterNumbers(t)
	if nums["Bello"] != "30450001" || nums["Okoro"] != "30450002" {
		t.Errorf("numbers after delete = %v, want Bello 30450001 and Okoro 30450002", nums)
	}
}
