package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dubyyy/delta-state-result-checker-sub000/codegen"
	"github.com/dubyyy/delta-state-result-checker-sub000/database"
	"github.com/dubyyy/delta-state-result-checker-sub000/models"
)

// StaffAccountHandler lets an admin manage the portal's staff logins.
type StaffAccountHandler struct{}

func NewStaffAccountHandler() *StaffAccountHandler { return &StaffAccountHandler{} }

type createStaffAccountReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // "admin" | "staff"
}

type staffAccountDTO struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

var reUsername = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,60}$`)

func toStaffDTO(u models.User) staffAccountDTO {
	return staffAccountDTO{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role, UpdatedAt: u.UpdatedAt}
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// GET /admin/staff-accounts
func (h *StaffAccountHandler) List(c echo.Context) error {
	var users []models.User
	if err := database.DB.Order("updated_at desc").Find(&users).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "DB_ERROR"})
	}
	out := make([]staffAccountDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toStaffDTO(u))
	}
	return c.JSON(http.StatusOK, out)
}

// POST /admin/staff-accounts
func (h *StaffAccountHandler) Create(c echo.Context) error {
	var req createStaffAccountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "INVALID_PAYLOAD"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.Role == "" {
		req.Role = "staff"
	}
	if !reUsername.MatchString(req.Username) {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "INVALID_USERNAME"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "PASSWORD_TOO_SHORT"})
	}
	if req.Role != "admin" && req.Role != "staff" {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "INVALID_ROLE"})
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "HASH_FAILED"})
	}
	u := models.User{
		Username: req.Username,
		Password: hash,
		Role:     req.Role,
		Name:     strings.TrimSpace(req.Name),
	}
	if err := database.DB.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusConflict, map[string]any{"error": "USERNAME_EXISTS"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusCreated, toStaffDTO(u))
}

// POST /admin/staff-accounts/:id/reset
//
// Generates a one-time password and returns it once in the response; only
// the bcrypt hash is stored.
func (h *StaffAccountHandler) ResetPassword(c echo.Context) error {
	var u models.User
	if err := database.DB.First(&u, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, map[string]any{"error": "NOT_FOUND"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "DB_ERROR"})
	}

	const pwAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	oneTime, err := codegen.RandomCode(pwAlphabet, 12)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "PASSWORD_GEN_FAILED"})
	}
	hash, err := hashPassword(oneTime)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "HASH_FAILED"})
	}
	if err := database.DB.Model(&u).Update("password", hash).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "DB_ERROR"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":                u.ID,
		"username":          u.Username,
		"one_time_password": oneTime,
	})
}

// DELETE /admin/staff-accounts/:id
func (h *StaffAccountHandler) Delete(c echo.Context) error {
	callerID, _ := c.Get("user_id").(uint)
	id := uint(atoiOr(c.Param("id"), 0))
	if id != 0 && id == callerID {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "CANNOT_DELETE_SELF"})
	}
	res := database.DB.Delete(&models.User{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "DB_ERROR"})
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "NOT_FOUND"})
	}
	return c.NoContent(http.StatusNoContent)
}
