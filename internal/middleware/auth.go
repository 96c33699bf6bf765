package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/utils"
)

const (
	userContextKey = "currentUserID"
	roleContextKey = "currentRole"
)

var errForbidden = apperr.Permission("forbidden",
	"you do not have permission to access this resource", "anda tidak memiliki akses ke sumber ini")

// AuthMiddleware validates JWT tokens and loads the caller's ID and role into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := bearerClaims(c, secret)
		if err != nil {
			return err
		}

		c.Locals(userContextKey, claims.UserID)
		c.Locals(roleContextKey, models.Role(claims.Role))
		return c.Next()
	}
}

// OptionalAuth loads the caller when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		claims, err := bearerClaims(c, secret)
		if err != nil {
			return err
		}
		c.Locals(userContextKey, claims.UserID)
		c.Locals(roleContextKey, models.Role(claims.Role))
		return c.Next()
	}
}

func bearerClaims(c *fiber.Ctx, secret string) (utils.Claims, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return utils.Claims{}, fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return utils.Claims{}, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	claims, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
	if err != nil {
		return utils.Claims{}, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	return claims, nil
}

// RequireRole rejects callers whose role is not in roles. It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := GetCurrentRole(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return errForbidden
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetCurrentRole extracts the authenticated user's role from context.
func GetCurrentRole(c *fiber.Ctx) (models.Role, bool) {
	role, ok := c.Locals(roleContextKey).(models.Role)
	return role, ok
}
