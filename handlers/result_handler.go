package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

type ResultHandler struct{}

func NewResultHandler() *ResultHandler { return &ResultHandler{} }

var (
	reAccCode = regexp.MustCompile(`^[0-9]{10}$`)
	reGrade   = regexp.MustCompile(`^[A-F][1-9]?$`) // A1..F9 style or bare letter
)

type resultPayload struct {
	AccCode  string `json:"acc_code"`
	Subject  string `json:"subject"`
	Grade    string `json:"grade"`
	ExamYear int    `json:"exam_year"`
}

func (p *resultPayload) normalize() {
	p.AccCode = strings.TrimSpace(p.AccCode)
	p.Subject = strings.Join(strings.Fields(p.Subject), " ")
	p.Grade = strings.ToUpper(strings.TrimSpace(p.Grade))
}

func validateResult(p *resultPayload) map[string]string {
	errs := map[string]string{}
	if !reAccCode.MatchString(p.AccCode) {
		errs["acc_code"] = "account code must be 10 digits"
	}
	if p.Subject == "" || len(p.Subject) > 50 {
		errs["subject"] = "invalid subject"
	}
	if !reGrade.MatchString(p.Grade) {
		errs["grade"] = "invalid grade"
	}
	if p.ExamYear < 2000 || p.ExamYear > 2100 {
		errs["exam_year"] = "invalid exam year"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

/* ===== Admin CRUD ===== */

// GET /admin/results?acc_code=&page&size
func (h *ResultHandler) List(c echo.Context) error {
	page, size := paging(c.QueryParam("page"), c.QueryParam("size"))

	tx := database.DB.Model(&models.Result{})
	if acc := strings.TrimSpace(c.QueryParam("acc_code")); acc != "" {
		tx = tx.Where("acc_code = ?", acc)
	}
	if year := atoiOr(c.QueryParam("exam_year"), 0); year > 0 {
		tx = tx.Where("exam_year = ?", year)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_COUNT_FAILED"})
	}
	var items []models.Result
	if err := tx.Order("acc_code ASC, subject ASC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items, "page": page, "size": size, "total": total})
}

// POST /admin/results
func (h *ResultHandler) Create(c echo.Context) error {
	var p resultPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	p.normalize()
	if errs := validateResult(&p); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": errs})
	}

	r := models.Result{AccCode: p.AccCode, Subject: p.Subject, Grade: p.Grade, ExamYear: p.ExamYear}
	if err := database.DB.Create(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "EXISTS"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, r)
}

// PUT /admin/results/:id
func (h *ResultHandler) Update(c echo.Context) error {
	var existing models.Result
	if err := database.DB.First(&existing, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}

	var p resultPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	p.normalize()
	if errs := validateResult(&p); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": errs})
	}

	existing.AccCode = p.AccCode
	existing.Subject = p.Subject
	existing.Grade = p.Grade
	existing.ExamYear = p.ExamYear
	if err := database.DB.Save(&existing).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, existing)
}

// DELETE /admin/results/:id
func (h *ResultHandler) Delete(c echo.Context) error {
	if err := database.DB.Delete(&models.Result{}, "id = ?", c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

/* ===== Public lookup (PIN-gated) ===== */

type lookupReq struct {
	Pin        string `json:"pin"`
	LgaCode    string `json:"lga_code"`
	SchoolCode string `json:"school_code"`
	AccCode    string `json:"acc_code"`
}

// POST /results/lookup
//
// Results are looked up by account code — the student number collapses for
// shared surnames and cannot identify a single student.
func (h *ResultHandler) Lookup(c echo.Context) error {
	var req lookupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	req.Pin = strings.ToUpper(strings.TrimSpace(req.Pin))
	req.LgaCode = strings.TrimSpace(req.LgaCode)
	req.SchoolCode = strings.TrimSpace(req.SchoolCode)
	req.AccCode = strings.TrimSpace(req.AccCode)

	if req.Pin == "" || req.LgaCode == "" || req.SchoolCode == "" || !reAccCode.MatchString(req.AccCode) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "MISSING_FIELDS"})
	}

	if _, code := redeemPin(database.DB, req.Pin, req.LgaCode, req.SchoolCode, ""); code != "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": code})
	}

	student, ok := findStudent(req.AccCode, req.LgaCode, req.SchoolCode)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "STUDENT_NOT_FOUND"})
	}

	var results []models.Result
	if err := database.DB.Where("acc_code = ?", req.AccCode).Order("subject ASC").Find(&results).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"student": student,
		"results": results,
	})
}

// findStudent looks the account code up in the regular table first, then the
// late table, scoped to the requesting school.
func findStudent(accCode, lgaCode, schoolCode string) (map[string]any, bool) {
	var reg models.Registration
	if err := database.DB.Where("acc_code = ? AND lga_code = ? AND school_code = ?", accCode, lgaCode, schoolCode).
		First(&reg).Error; err == nil {
		return map[string]any{
			"acc_code":       reg.AccCode,
			"student_number": reg.StudentNumber,
			"surname":        reg.Surname,
			"first_name":     reg.FirstName,
			"middle_name":    reg.MiddleName,
			"exam_year":      reg.ExamYear,
		}, true
	}
	var late models.PostRegistration
	if err := database.DB.Where("acc_code = ? AND lga_code = ? AND school_code = ?", accCode, lgaCode, schoolCode).
		First(&late).Error; err == nil {
		return map[string]any{
			"acc_code":       late.AccCode,
			"student_number": late.StudentNumber,
			"surname":        late.Surname,
			"first_name":     late.FirstName,
			"middle_name":    late.MiddleName,
			"exam_year":      late.ExamYear,
		}, true
	}
	return nil, false
}
