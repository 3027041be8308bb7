package database

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dubyyy/delta-state-result-checker-sub000/config"
	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) {
	// TranslateError turns driver duplicate-key errors into
	// gorm.ErrDuplicatedKey, which the insert-if-absent stores rely on.
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}
}

// Migrate creates/updates the schema. Split out of Connect so tests can run
// it against their own (sqlite) connection.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.School{},
		&models.AccessPin{},
		&models.Registration{},
		&models.PostRegistration{},
		&models.Result{},
		&models.User{},
	)
}
