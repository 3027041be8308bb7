package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/schoolref"
)

// setupDB points the package-level connection at a fresh in-memory database
// for the duration of one test.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
	return db
}

// setupRefs writes a one-school reference dataset (DT-03/45, lga digits "3")
// and returns a service reading it.
func setupRefs(t *testing.T) *schoolref.Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "school_reference.json")
	data := `[{"lga_code":"DT-03","lga_digits":"3","school_code":"45","school_name":"Ogwashi Mixed Secondary"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return schoolref.New(path, 0)
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

// doParam invokes a handler that reads the :id path parameter, with an
// optional JSON body.
func doParam(t *testing.T, h echo.HandlerFunc, method, id string, body ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	payload := ""
	if len(body) > 0 {
		payload = body[0]
	}
	req := httptest.NewRequest(method, "/", strings.NewReader(payload))
	if payload != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
