package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler { return &DashboardHandler{} }

// GET /admin/dashboard?lga_code=
//
// Registration-cycle overview for the admin landing page: totals plus a
// per-LGA breakdown of registrations.
func (h *DashboardHandler) Summary(c echo.Context) error {
	lga := strings.TrimSpace(c.QueryParam("lga_code"))

	counts := map[string]int64{}

	var schools, regular, late, results int64
	var pinsTotal, pinsClaimed, pinsInactive int64

	sq := database.DB.Model(&models.School{})
	rq := database.DB.Model(&models.Registration{})
	lq := database.DB.Model(&models.PostRegistration{})
	if lga != "" {
		sq = sq.Where("lga_code = ?", lga)
		rq = rq.Where("lga_code = ?", lga)
		lq = lq.Where("lga_code = ?", lga)
	}
	if err := sq.Count(&schools).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	if err := rq.Count(&regular).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	if err := lq.Count(&late).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "DB_ERROR"})
	}
	database.DB.Model(&models.Result{}).Count(&results)
	database.DB.Model(&models.AccessPin{}).Count(&pinsTotal)
	database.DB.Model(&models.AccessPin{}).Where("owner_lga_code IS NOT NULL").Count(&pinsClaimed)
	database.DB.Model(&models.AccessPin{}).Where("is_active = ?", false).Count(&pinsInactive)

	counts["schools"] = schools
	counts["registrations"] = regular
	counts["post_registrations"] = late
	counts["results"] = results
	counts["pins_total"] = pinsTotal
	counts["pins_claimed"] = pinsClaimed
	counts["pins_inactive"] = pinsInactive

	type lgaRow struct {
		LgaCode string `json:"lga_code"`
		Total   int64  `json:"total"`
	}
	var byLga []lgaRow
	database.DB.Raw(
		`SELECT lga_code, COUNT(*) AS total FROM (
			SELECT lga_code FROM registrations
			UNION ALL
			SELECT lga_code FROM post_registrations
		 ) AS all_regs GROUP BY lga_code ORDER BY lga_code`,
	).Scan(&byLga)

	return c.JSON(http.StatusOK, map[string]any{
		"counts": counts,
		"by_lga": byLga,
	})
}
