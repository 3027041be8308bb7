package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/dubyyy/delta-state-result-checker-sub000/config"
	"github.com/dubyyy/delta-state-result-checker-sub000/handlers"
	"github.com/dubyyy/delta-state-result-checker-sub000/middlewares"
	"github.com/dubyyy/delta-state-result-checker-sub000/schoolref"
)

// Register wires all HTTP routes.
func Register(e *echo.Echo, cfg *config.Config, refs *schoolref.Service) {
	// ===== Handlers (shared singletons) =====
	auth := handlers.NewAuthHandler(cfg.JWTSecret)
	pin := handlers.NewPinHandler()
	school := handlers.NewSchoolHandler(refs)
	reg := handlers.NewRegistrationHandler(refs)
	res := handlers.NewResultHandler()
	staff := handlers.NewStaffAccountHandler()
	dash := handlers.NewDashboardHandler()

	// ===== Public =====
	e.GET("/health", handlers.Health)
	e.POST("/auth/admin/login", auth.AdminLogin)

	// PIN gate + school-facing registration flow
	e.POST("/pins/verify", pin.Verify)
	e.POST("/registrations", reg.Submit)
	e.POST("/registrations/finish", reg.Finish)
	e.GET("/registrations", reg.List)

	// Result lookup (PIN-gated inside the handler)
	e.POST("/results/lookup", res.Lookup)

	// ===== Admin =====
	authMW := middlewares.RequireAuth(cfg.JWTSecret)
	admin := e.Group("/admin", authMW, middlewares.RequireRole("admin"))

	admin.GET("/dashboard", dash.Summary)

	admin.POST("/pins/generate", pin.Generate)
	admin.GET("/pins", pin.List)
	admin.POST("/pins/:id/deactivate", pin.Deactivate)
	admin.POST("/pins/:id/reactivate", pin.Reactivate)

	admin.GET("/schools", school.List)
	admin.GET("/schools/:id", school.Get)
	admin.POST("/schools", school.Create)
	admin.PUT("/schools/:id", school.Update)
	admin.DELETE("/schools/:id", school.Delete)
	admin.POST("/schools/:id/close-registration", school.CloseRegistration)

	admin.GET("/registrations", reg.List)
	admin.PUT("/registrations/:id", reg.Update)
	admin.DELETE("/registrations/:id", reg.Delete)
	admin.PUT("/post-registrations/:id", reg.UpdateLate)
	admin.DELETE("/post-registrations/:id", reg.DeleteLate)

	admin.GET("/results", res.List)
	admin.POST("/results", res.Create)
	admin.PUT("/results/:id", res.Update)
	admin.DELETE("/results/:id", res.Delete)

	// Staff logins
	admin.GET("/staff-accounts", staff.List)
	admin.POST("/staff-accounts", staff.Create)
	admin.POST("/staff-accounts/:id/reset", staff.ResetPassword)
	admin.DELETE("/staff-accounts/:id", staff.Delete)
}
