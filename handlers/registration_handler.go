package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dubyyy/delta-state-result-checker-sub000/codegen"
	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/models"
	"github.com/dubyyy/delta-state-result-checker-sub000/numbering"
	"github.com/dubyyy/delta-state-result-checker-sub000/schoolref"
)

type RegistrationHandler struct {
	refs *schoolref.Service
}

func NewRegistrationHandler(refs *schoolref.Service) *RegistrationHandler {
	return &RegistrationHandler{refs: refs}
}

/* ===== Validation ===== */

var (
	regReName   = regexp.MustCompile(`^[A-Za-z' \-]{1,50}$`)
	regReGender = regexp.MustCompile(`^(?i)(M|F|MALE|FEMALE)$`)
)

type studentPayload struct {
	Surname    string `json:"surname"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	Gender     string `json:"gender"`
	BirthDate  string `json:"birth_date"` // YYYY-MM-DD or empty
	ExamYear   int    `json:"exam_year"`
}

func (p *studentPayload) normalize() {
	p.Surname = strings.Join(strings.Fields(p.Surname), " ")
	p.FirstName = strings.Join(strings.Fields(p.FirstName), " ")
	p.MiddleName = strings.Join(strings.Fields(p.MiddleName), " ")
	p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
	p.BirthDate = strings.TrimSpace(p.BirthDate)
}

func validateStudent(p *studentPayload) map[string]string {
	errs := map[string]string{}
	if p.Surname == "" || !regReName.MatchString(p.Surname) {
		errs["surname"] = "surname must be letters only"
	}
	if p.FirstName == "" || !regReName.MatchString(p.FirstName) {
		errs["first_name"] = "first name must be letters only"
	}
	if p.MiddleName != "" && !regReName.MatchString(p.MiddleName) {
		errs["middle_name"] = "middle name must be letters only"
	}
	if !regReGender.MatchString(p.Gender) {
		errs["gender"] = "gender must be M or F"
	}
	if p.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", p.BirthDate); err != nil {
			errs["birth_date"] = "birth date must be YYYY-MM-DD or empty"
		}
	}
	if p.ExamYear < 2000 || p.ExamYear > 2100 {
		errs["exam_year"] = "invalid exam year"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (p *studentPayload) birth() *time.Time {
	if p.BirthDate == "" {
		return nil
	}
	b, err := time.Parse("2006-01-02", p.BirthDate)
	if err != nil {
		return nil
	}
	return &b
}

/* ===== School submission ===== */

type submitReq struct {
	Pin        string           `json:"pin"`
	LgaCode    string           `json:"lga_code"`
	SchoolCode string           `json:"school_code"`
	SchoolName string           `json:"school_name"`
	Students   []studentPayload `json:"students"`
}

// POST /registrations
//
// One school-submission event: the PIN gate runs first, then account codes
// for the whole batch are minted in one store round-trip, then the rows are
// inserted and numbered according to the school's mode. Any failure rolls the
// whole batch back — a registration is never persisted with a missing or
// duplicate identifier.
func (h *RegistrationHandler) Submit(c echo.Context) error {
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	req.Pin = strings.ToUpper(strings.TrimSpace(req.Pin))
	req.LgaCode = strings.TrimSpace(req.LgaCode)
	req.SchoolCode = strings.TrimSpace(req.SchoolCode)
	req.SchoolName = strings.TrimSpace(req.SchoolName)

	if req.Pin == "" || req.LgaCode == "" || req.SchoolCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "MISSING_FIELDS"})
	}
	if len(req.Students) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "NO_STUDENTS"})
	}

	issues := []map[string]any{}
	for i := range req.Students {
		req.Students[i].normalize()
		if errs := validateStudent(&req.Students[i]); errs != nil {
			issues = append(issues, map[string]any{"index": i, "fields": errs})
		}
	}
	if len(issues) > 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "BULK_VALIDATION_ERROR", "issues": issues})
	}

	if _, code := redeemPin(database.DB, req.Pin, req.LgaCode, req.SchoolCode, req.SchoolName); code != "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": code})
	}

	var school models.School
	if err := database.DB.Where("lga_code = ? AND school_code = ?", req.LgaCode, req.SchoolCode).First(&school).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "SCHOOL_NOT_FOUND"})
	}

	accCodes, err := codegen.GenerateAccCodeBatch(database.NewAccCodeStore(database.DB), len(req.Students))
	if err != nil {
		if errors.Is(err, codegen.ErrBatchSize) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_COUNT"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "ACC_CODE_GENERATION_FAILED"})
	}

	var (
		created  []map[string]any
		refMiss  bool
	)
	txErr := database.DB.Transaction(func(tx *gorm.DB) error {
		engine := numbering.NewEngine(h.refs, database.NewStudentNumberStore(tx))

		if school.RegistrationClosed {
			// Late mode: appended numbers, existing rows untouched. Each
			// NextNumber sees the rows inserted before it in this tx, so the
			// sequence stays monotonic within the batch.
			for i, p := range req.Students {
				num, err := engine.NextNumber(req.LgaCode, req.SchoolCode)
				if err != nil {
					if !errors.Is(err, numbering.ErrNotFound) {
						return err
					}
					refMiss = true
				}
				row := models.PostRegistration{
					AccCode:       accCodes[i],
					StudentNumber: num,
					LgaCode:       req.LgaCode,
					SchoolCode:    req.SchoolCode,
					Surname:       p.Surname,
					FirstName:     p.FirstName,
					MiddleName:    p.MiddleName,
					Gender:        p.Gender,
					BirthDate:     p.birth(),
					ExamYear:      p.ExamYear,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				created = append(created, map[string]any{"acc_code": row.AccCode, "student_number": row.StudentNumber, "surname": row.Surname})
			}
			return nil
		}

		// Regular mode: insert, then recompute the whole roster — a new
		// surname can shift every rank after it.
		rows := make([]models.Registration, len(req.Students))
		for i, p := range req.Students {
			rows[i] = models.Registration{
				AccCode:    accCodes[i],
				LgaCode:    req.LgaCode,
				SchoolCode: req.SchoolCode,
				Surname:    p.Surname,
				FirstName:  p.FirstName,
				MiddleName: p.MiddleName,
				Gender:     p.Gender,
				BirthDate:  p.birth(),
				ExamYear:   p.ExamYear,
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		miss, err := recomputeRoster(tx, engine, req.LgaCode, req.SchoolCode)
		if err != nil {
			return err
		}
		refMiss = miss
		for _, r := range rows {
			var fresh models.Registration
			if err := tx.First(&fresh, r.ID).Error; err != nil {
				return err
			}
			created = append(created, map[string]any{"acc_code": fresh.AccCode, "student_number": fresh.StudentNumber, "surname": fresh.Surname})
		}
		return nil
	})
	if txErr != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "REGISTRATION_FAILED"})
	}

	body := map[string]any{"registered": len(created), "students": created}
	if refMiss {
		log.Printf("school reference missing for lga=%s school=%s; student numbers degraded", req.LgaCode, req.SchoolCode)
		body["warning"] = "SCHOOL_REFERENCE_NOT_FOUND"
	}
	return c.JSON(http.StatusCreated, body)
}

// POST /registrations/finish
//
// A school marking its submission finished forces the school into late mode,
// same as the admin close endpoint.
func (h *RegistrationHandler) Finish(c echo.Context) error {
	var req verifyPinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	req.normalize()
	if req.Pin == "" || req.LgaCode == "" || req.SchoolCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "MISSING_FIELDS"})
	}
	if _, code := redeemPin(database.DB, req.Pin, req.LgaCode, req.SchoolCode, req.SchoolName); code != "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": code})
	}

	res := database.DB.Model(&models.School{}).
		Where("lga_code = ? AND school_code = ?", req.LgaCode, req.SchoolCode).
		Update("registration_closed", true)
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "SCHOOL_NOT_FOUND"})
	}
	return c.JSON(http.StatusOK, map[string]any{"registration_closed": true})
}

/* ===== Roster reads ===== */

// GET /registrations?lga_code=&school_code=
func (h *RegistrationHandler) List(c echo.Context) error {
	lga := strings.TrimSpace(c.QueryParam("lga_code"))
	school := strings.TrimSpace(c.QueryParam("school_code"))
	if lga == "" || school == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "MISSING_FIELDS"})
	}

	var regular []models.Registration
	if err := database.DB.Where("lga_code = ? AND school_code = ?", lga, school).
		Order("student_number ASC, surname ASC").Find(&regular).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}
	var late []models.PostRegistration
	if err := database.DB.Where("lga_code = ? AND school_code = ?", lga, school).
		Order("student_number ASC").Find(&late).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"regular": regular,
		"late":    late,
		"total":   len(regular) + len(late),
	})
}

/* ===== Admin CRUD ===== */

// PUT /admin/registrations/:id
//
// Editing a regular-table row while the school is still open re-runs the full
// recompute when the surname changed; after close the row (and every number)
// is frozen apart from the non-identity fields.
func (h *RegistrationHandler) Update(c echo.Context) error {
	var existing models.Registration
	if err := database.DB.First(&existing, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}

	var p studentPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	p.normalize()
	if errs := validateStudent(&p); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": errs})
	}

	surnameChanged := numbering.NormalizeSurname(existing.Surname) != numbering.NormalizeSurname(p.Surname)

	var open bool
	var school models.School
	if err := database.DB.Where("lga_code = ? AND school_code = ?", existing.LgaCode, existing.SchoolCode).First(&school).Error; err == nil {
		open = !school.RegistrationClosed
	}

	refMiss := false
	txErr := database.DB.Transaction(func(tx *gorm.DB) error {
		existing.Surname = p.Surname
		existing.FirstName = p.FirstName
		existing.MiddleName = p.MiddleName
		existing.Gender = p.Gender
		existing.BirthDate = p.birth()
		existing.ExamYear = p.ExamYear
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		if surnameChanged && open {
			engine := numbering.NewEngine(h.refs, database.NewStudentNumberStore(tx))
			miss, err := recomputeRoster(tx, engine, existing.LgaCode, existing.SchoolCode)
			if err != nil {
				return err
			}
			refMiss = miss
		}
		return nil
	})
	if txErr != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}

	database.DB.First(&existing, existing.ID)
	body := map[string]any{"data": existing}
	if refMiss {
		body["warning"] = "SCHOOL_REFERENCE_NOT_FOUND"
	}
	return c.JSON(http.StatusOK, body)
}

// DELETE /admin/registrations/:id
func (h *RegistrationHandler) Delete(c echo.Context) error {
	var existing models.Registration
	if err := database.DB.First(&existing, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}

	var open bool
	var school models.School
	if err := database.DB.Where("lga_code = ? AND school_code = ?", existing.LgaCode, existing.SchoolCode).First(&school).Error; err == nil {
		open = !school.RegistrationClosed
	}

	txErr := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Registration{}, existing.ID).Error; err != nil {
			return err
		}
		if open {
			// Removing a surname can shift every rank after it.
			engine := numbering.NewEngine(h.refs, database.NewStudentNumberStore(tx))
			if _, err := recomputeRoster(tx, engine, existing.LgaCode, existing.SchoolCode); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	return c.NoContent(http.StatusNoContent)
}

// PUT /admin/post-registrations/:id
//
// Late-table rows keep their assigned number through edits; only the
// non-identity fields change.
func (h *RegistrationHandler) UpdateLate(c echo.Context) error {
	var existing models.PostRegistration
	if err := database.DB.First(&existing, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}

	var p studentPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	p.normalize()
	if errs := validateStudent(&p); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": errs})
	}

	existing.Surname = p.Surname
	existing.FirstName = p.FirstName
	existing.MiddleName = p.MiddleName
	existing.Gender = p.Gender
	existing.BirthDate = p.birth()
	existing.ExamYear = p.ExamYear
	if err := database.DB.Save(&existing).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, map[string]any{"data": existing})
}

// DELETE /admin/post-registrations/:id
//
// Late-table rows never trigger a recompute; the remaining numbers stay as
// assigned.
func (h *RegistrationHandler) DeleteLate(c echo.Context) error {
	res := database.DB.Delete(&models.PostRegistration{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
	}
	return c.NoContent(http.StatusNoContent)
}

// recomputeRoster reloads the school's full regular roster, reassigns every
// number through the engine, and persists the rows whose number changed.
// Returns true when the school reference did not resolve (numbers left
// untouched per the engine's no-op contract).
func recomputeRoster(tx *gorm.DB, engine *numbering.Engine, lgaCode, schoolCode string) (bool, error) {
	var roster []models.Registration
	if err := tx.Where("lga_code = ? AND school_code = ?", lgaCode, schoolCode).Find(&roster).Error; err != nil {
		return false, err
	}

	entries := make([]numbering.Entry, len(roster))
	for i, r := range roster {
		entries[i] = numbering.Entry{ID: r.ID, Surname: r.Surname, Number: r.StudentNumber}
	}

	assigned, err := engine.Recompute(lgaCode, schoolCode, entries)
	if err != nil {
		if errors.Is(err, numbering.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	for i, e := range assigned {
		if e.Number == roster[i].StudentNumber {
			continue
		}
		if err := tx.Model(&models.Registration{}).Where("id = ?", e.ID).
			Update("student_number", e.Number).Error; err != nil {
			return false, err
		}
	}
	return false, nil
}
