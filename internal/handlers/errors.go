package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/middleware"
)

var (
	errInvalidBody = apperr.Validation("invalid_body",
		"invalid request body", "body request tidak valid")
	errInvalidID = apperr.Validation("invalid_id",
		"invalid id", "id tidak valid")
	errNotFound = apperr.NotFound("not_found",
		"resource not found", "data tidak ditemukan")
	errDuplicate = apperr.Conflict("duplicate",
		"resource already exists", "data sudah ada")
	errInvalidStatus = apperr.Validation("invalid_status",
		"unknown status", "status tidak dikenal")
	errInvalidDate = apperr.Validation("invalid_date",
		"dates must use YYYY-MM-DD and from must be before to", "tanggal harus berformat YYYY-MM-DD dan from sebelum to")
)

var statusCodes = map[int]string{
	fiber.StatusBadRequest:            "bad_request",
	fiber.StatusUnauthorized:          "unauthorized",
	fiber.StatusForbidden:             "forbidden",
	fiber.StatusNotFound:              "not_found",
	fiber.StatusMethodNotAllowed:      "method_not_allowed",
	fiber.StatusConflict:              "conflict",
	fiber.StatusRequestEntityTooLarge: "payload_too_large",
	fiber.StatusTooManyRequests:       "too_many_requests",
}

// ErrorHandler renders every error as {"success": false, "error": {code, message}}
// with the message localized from Accept-Language.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, code, message := classify(err, c.Get(fiber.HeaderAcceptLanguage))

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    code,
				"message": message,
			},
		})
	}
}

func classify(err error, acceptLanguage string) (int, string, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, ok := statusCodes[fe.Code]
		if !ok {
			code = "error"
		}
		return fe.Code, code, fe.Message
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = errNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		err = errDuplicate
	}

	e := apperr.From(err)
	return apperr.HTTPStatus(e.Kind), e.Code, e.Localized(acceptLanguage)
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}
