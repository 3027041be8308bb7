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
	"github.com/dubyyy/delta-state-result-checker-sub000/schoolref"
)

type SchoolHandler struct {
	refs *schoolref.Service
}

func NewSchoolHandler(refs *schoolref.Service) *SchoolHandler {
	return &SchoolHandler{refs: refs}
}

type schoolPayload struct {
	LgaCode    string `json:"lga_code"`
	SchoolCode string `json:"school_code"`
	SchoolName string `json:"school_name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
}

var (
	reLgaCode    = regexp.MustCompile(`^[A-Za-z0-9\-]{1,10}$`)
	reSchoolCode = regexp.MustCompile(`^[0-9]{1,10}$`)
	reSchoolName = regexp.MustCompile(`^[A-Za-z0-9\s.,'\-]{1,100}$`)
	reSchPhone   = regexp.MustCompile(`^[0-9+\- ]{7,20}$`)
)

func validateSchool(p *schoolPayload) map[string]string {
	errs := map[string]string{}
	if !reLgaCode.MatchString(p.LgaCode) {
		errs["lga_code"] = "invalid LGA code"
	}
	if !reSchoolCode.MatchString(p.SchoolCode) {
		errs["school_code"] = "school code must be numeric"
	}
	if !reSchoolName.MatchString(p.SchoolName) {
		errs["school_name"] = "invalid school name"
	}
	if p.Phone != "" && !reSchPhone.MatchString(p.Phone) {
		errs["phone"] = "invalid phone number"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (p *schoolPayload) normalize() {
	p.LgaCode = strings.TrimSpace(p.LgaCode)
	p.SchoolCode = strings.TrimSpace(p.SchoolCode)
	p.SchoolName = strings.Join(strings.Fields(p.SchoolName), " ")
	p.Address = strings.TrimSpace(p.Address)
	p.Phone = strings.TrimSpace(p.Phone)
}

// GET /admin/schools
func (h *SchoolHandler) List(c echo.Context) error {
	page, size := paging(c.QueryParam("page"), c.QueryParam("size"))

	tx := database.DB.Model(&models.School{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		like := "%" + q + "%"
		tx = tx.Where("school_name LIKE ? OR school_code LIKE ?", like, like)
	}
	if lga := strings.TrimSpace(c.QueryParam("lga_code")); lga != "" {
		tx = tx.Where("lga_code = ?", lga)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_COUNT_FAILED"})
	}
	var items []models.School
	if err := tx.Order("lga_code ASC, school_code ASC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items, "page": page, "size": size, "total": total})
}

// GET /admin/schools/:id
func (h *SchoolHandler) Get(c echo.Context) error {
	var s models.School
	if err := database.DB.First(&s, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}
	return c.JSON(http.StatusOK, s)
}

// POST /admin/schools
func (h *SchoolHandler) Create(c echo.Context) error {
	var p schoolPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	p.normalize()
	if errs := validateSchool(&p); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": errs})
	}

	// A school outside the reference dataset can still be created, but its
	// registrations will not number correctly — surface that up front.
	warning := ""
	if _, err := h.refs.Lookup(p.LgaCode, p.SchoolCode); err != nil {
		warning = "SCHOOL_REFERENCE_NOT_FOUND"
	}

	s := models.School{
		LgaCode:    p.LgaCode,
		SchoolCode: p.SchoolCode,
		SchoolName: p.SchoolName,
		Address:    p.Address,
		Phone:      p.Phone,
	}
	if err := database.DB.Create(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "EXISTS"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	body := map[string]any{"data": s}
	if warning != "" {
		body["warning"] = warning
	}
	return c.JSON(http.StatusCreated, body)
}

// PUT /admin/schools/:id
func (h *SchoolHandler) Update(c echo.Context) error {
	var current models.School
	if err := database.DB.First(&current, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}

	var p schoolPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	p.normalize()
	if errs := validateSchool(&p); errs != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "fields": errs})
	}

	current.LgaCode = p.LgaCode
	current.SchoolCode = p.SchoolCode
	current.SchoolName = p.SchoolName
	current.Address = p.Address
	current.Phone = p.Phone

	if err := database.DB.Save(&current).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, current)
}

// DELETE /admin/schools/:id
func (h *SchoolHandler) Delete(c echo.Context) error {
	if err := database.DB.Delete(&models.School{}, "id = ?", c.Param("id")).Error; err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /admin/schools/:id/close-registration
//
// Switches the school to late mode: existing student numbers freeze and new
// students get appended sequences. One-directional within a cycle — there is
// deliberately no reopen endpoint.
func (h *SchoolHandler) CloseRegistration(c echo.Context) error {
	var s models.School
	if err := database.DB.First(&s, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}
	if s.RegistrationClosed {
		return c.JSON(http.StatusOK, s)
	}
	s.RegistrationClosed = true
	if err := database.DB.Save(&s).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, s)
}
