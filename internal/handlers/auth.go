package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/config"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/utils"
)

var (
	errMissingFields = apperr.Validation("missing_fields",
		"name, phone and password are required", "nama, nomor telepon dan kata sandi wajib diisi")
	errWeakPassword = apperr.Validation("password_too_short",
		"password must be at least 8 characters", "kata sandi minimal 8 karakter")
	errPhoneTaken = apperr.Conflict("phone_taken",
		"phone number is already registered", "nomor telepon sudah terdaftar")
)

var errInvalidCredentials = fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type registerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a customer account and signs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" || req.Password == "" || req.Name == "" {
		return errMissingFields
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooShort) {
			return errWeakPassword
		}
		return err
	}

	user := models.User{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: passwordHash,
		Role:         models.RoleCustomer,
	}

	if err := h.db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errPhoneTaken
		}
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, string(user.Role), h.cfg.TokenExpires)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"user": user, "token": token},
	})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	var user models.User
	if err := h.db.WithContext(c.UserContext()).
		Where("phone = ?", strings.TrimSpace(req.Phone)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errInvalidCredentials
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return errInvalidCredentials
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, string(user.Role), h.cfg.TokenExpires)
	if err != nil {
		return err
	}

	return ok(c, fiber.Map{"user": user, "token": token})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err != nil {
		return err
	}
	return ok(c, user)
}
