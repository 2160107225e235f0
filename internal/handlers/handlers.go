package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

// ErrorHandler renders every error returned by a handler as
// {"error": message}. Unclassified errors become 500 and are logged.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		kind := apperror.KindOf(err)
		if kind == apperror.KindInternal {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
		}
		return c.Status(kind.HTTPStatus()).JSON(fiber.Map{"error": apperror.PublicMessage(err)})
	}
}

// currentUser reads the identity the auth middleware stored on the request.
func currentUser(c *fiber.Ctx) (int64, models.Role, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, "", apperror.Unauthorized("Invalid token")
	}
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", apperror.Unauthorized("Invalid token")
	}
	role, ok := c.Locals("role").(models.Role)
	if !ok {
		return 0, "", apperror.Unauthorized("Invalid token")
	}
	return userID, role, nil
}

func parseIDParam(c *fiber.Ctx, name string, label string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.BadRequest("Invalid " + label)
	}
	return id, nil
}
