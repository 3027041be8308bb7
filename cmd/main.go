package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dubyyy/delta-state-result-checker-sub000/config"
	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/routes"
	"github.com/dubyyy/delta-state-result-checker-sub000/schoolref"
)

func main() {
	cfg := config.Load()

	// fail fast if the database is not reachable
	database.Connect(cfg)

	refs := schoolref.New(cfg.SchoolRefPath, cfg.SchoolRefTTL)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	routes.Register(e, cfg, refs)

	addr := ":" + cfg.AppPort
	log.Printf("server listening at %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
