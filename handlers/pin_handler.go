package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dubyyy/delta-state-result-checker-sub000/codegen"
	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

type PinHandler struct {
	validate *validator.Validate
}

func NewPinHandler() *PinHandler {
	return &PinHandler{validate: validator.New()}
}

/* ===== Admin: generation & lifecycle ===== */

type generatePinsReq struct {
	Count int `json:"count" validate:"required,min=1,max=1000"`
}

// POST /admin/pins/generate
func (h *PinHandler) Generate(c echo.Context) error {
	var req generatePinsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "VALIDATION_ERROR", "detail": err.Error()})
	}

	batchID := uuid.NewString()
	gen := codegen.NewPinGenerator(database.NewPinStore(database.DB, batchID))
	pins, err := gen.GenerateBatch(req.Count)
	if err != nil {
		if errors.Is(err, codegen.ErrBatchSize) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_COUNT"})
		}
		// Exhaustion with 1e7+ codes free means something is operationally
		// wrong; report the shortfall rather than pretend the batch is whole.
		if errors.Is(err, codegen.ErrGenerationExhausted) {
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":     "GENERATION_EXHAUSTED",
				"batch_id":  batchID,
				"generated": len(pins),
				"requested": req.Count,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"batch_id": batchID,
		"count":    len(pins),
		"pins":     pins,
	})
}

// GET /admin/pins?status=claimed|unclaimed|inactive&page&size
func (h *PinHandler) List(c echo.Context) error {
	page, size := paging(c.QueryParam("page"), c.QueryParam("size"))

	tx := database.DB.Model(&models.AccessPin{})
	switch strings.TrimSpace(c.QueryParam("status")) {
	case "claimed":
		tx = tx.Where("owner_lga_code IS NOT NULL")
	case "unclaimed":
		tx = tx.Where("owner_lga_code IS NULL").Where("is_active = ?", true)
	case "inactive":
		tx = tx.Where("is_active = ?", false)
	}
	if batch := strings.TrimSpace(c.QueryParam("batch_id")); batch != "" {
		tx = tx.Where("batch_id = ?", batch)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_COUNT_FAILED"})
	}
	var items []models.AccessPin
	if err := tx.Order("id DESC").Limit(size).Offset((page - 1) * size).Find(&items).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_QUERY_FAILED"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":  items,
		"page":  page,
		"size":  size,
		"total": total,
	})
}

// POST /admin/pins/:id/deactivate
func (h *PinHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

// POST /admin/pins/:id/reactivate
func (h *PinHandler) Reactivate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *PinHandler) setActive(c echo.Context, active bool) error {
	id := c.Param("id")
	res := database.DB.Model(&models.AccessPin{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "is_active": active})
}

/* ===== Public: PIN gate ===== */

type verifyPinReq struct {
	Pin        string `json:"pin"`
	LgaCode    string `json:"lga_code"`
	SchoolCode string `json:"school_code"`
	SchoolName string `json:"school_name"`
}

func (r *verifyPinReq) normalize() {
	r.Pin = strings.ToUpper(strings.TrimSpace(r.Pin))
	r.LgaCode = strings.TrimSpace(r.LgaCode)
	r.SchoolCode = strings.TrimSpace(r.SchoolCode)
	r.SchoolName = strings.TrimSpace(r.SchoolName)
}

// POST /pins/verify
func (h *PinHandler) Verify(c echo.Context) error {
	var req verifyPinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "INVALID_PAYLOAD"})
	}
	req.normalize()
	if req.Pin == "" || req.LgaCode == "" || req.SchoolCode == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "MISSING_FIELDS"})
	}

	pin, code := redeemPin(database.DB, req.Pin, req.LgaCode, req.SchoolCode, req.SchoolName)
	if code != "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": code})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"pin":         pin.Pin,
		"usage_count": pin.UsageCount,
		"claimed_at":  pin.ClaimedAt,
		"school":      map[string]any{"lga_code": req.LgaCode, "school_code": req.SchoolCode},
	})
}

// redeemPin enforces the claim invariant: an active unclaimed PIN is claimed
// by the first school that presents it; afterwards only the claiming school
// may redeem it, with usage_count incremented per redemption. Returns the
// refreshed row or a non-empty error code.
func redeemPin(db *gorm.DB, pinCode, lgaCode, schoolCode, schoolName string) (*models.AccessPin, string) {
	var pin models.AccessPin
	if err := db.Where("pin = ?", pinCode).First(&pin).Error; err != nil {
		return nil, "INVALID_PIN"
	}
	if !pin.IsActive {
		return nil, "PIN_INACTIVE"
	}

	if pin.OwnerLgaCode == nil {
		// First claim. The WHERE owner_lga_code IS NULL guard makes the claim
		// atomic: a concurrent claimer loses the update and falls through to
		// the ownership check below.
		now := time.Now()
		res := db.Model(&models.AccessPin{}).
			Where("id = ? AND owner_lga_code IS NULL", pin.ID).
			Updates(map[string]any{
				"owner_lga_code":    lgaCode,
				"owner_school_code": schoolCode,
				"owner_school_name": schoolName,
				"claimed_at":        now,
				"usage_count":       1,
			})
		if res.Error != nil {
			return nil, "DB_ERROR"
		}
		if res.RowsAffected == 1 {
			db.First(&pin, pin.ID)
			return &pin, ""
		}
		// Lost the race; reload and fall through.
		if err := db.First(&pin, pin.ID).Error; err != nil {
			return nil, "DB_ERROR"
		}
	}

	if pin.OwnerLgaCode == nil || *pin.OwnerLgaCode != lgaCode ||
		pin.OwnerSchoolCode == nil || *pin.OwnerSchoolCode != schoolCode {
		return nil, "PIN_IN_USE"
	}

	if err := db.Model(&pin).Update("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		return nil, "DB_ERROR"
	}
	db.First(&pin, pin.ID)
	return &pin, ""
}
