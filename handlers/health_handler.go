package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dubyyy/delta-state-result-checker-sub000/database"
)

// Health reports liveness plus database reachability for /health.
func Health(c echo.Context) error {
	status := "ok"
	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": status,
	})
}
