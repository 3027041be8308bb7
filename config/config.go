package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppEnv  string

	JWTSecret string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// School-reference dataset (static JSON file) and its cache TTL.
	SchoolRefPath string
	SchoolRefTTL  time.Duration
}

func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	// .env is optional; deployed environments set real env vars.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env file")
	}

	ttl := 15 * time.Minute
	if v := os.Getenv("SCHOOL_REF_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			ttl = time.Duration(n) * time.Minute
		}
	}

	return &Config{
		AppPort: get("APP_PORT", "8080"),
		AppEnv:  get("APP_ENV", "dev"),

		JWTSecret: get("JWT_SECRET", "dev-secret"),

		DBHost:     get("DB_HOST", "localhost"),
		DBPort:     get("DB_PORT", "5432"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: get("DB_PASSWORD", "postgres"),
		DBName:     get("DB_NAME", "resultchecker"),
		DBSSLMode:  get("DB_SSLMODE", "disable"),

		SchoolRefPath: get("SCHOOL_REF_PATH", "data/school_reference.json"),
		SchoolRefTTL:  ttl,
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}
