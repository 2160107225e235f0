package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/access"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/services"
	"github.com/saeid-a/CoachLinkBack/pkg/utils"
)

// SessionChecker confirms that the session a token was issued for is still
// live.
type SessionChecker interface {
	Authenticate(ctx context.Context, token string, sessionID string) (*services.Identity, error)
}

// AuthRequired validates the bearer token and stores user_id, role and
// session_id on the request. When sessions is set, revoked or expired
// sessions are rejected as well.
func AuthRequired(secret string, sessions SessionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperror.Unauthorized("Missing authorization header")
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return apperror.Unauthorized("Invalid authorization header format")
		}

		tokenString := parts[1]
		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			return apperror.Unauthorized("Invalid or expired token")
		}

		role, ok := access.ParseRole(claims.Role)
		if !ok {
			return apperror.Unauthorized("Invalid or expired token")
		}

		if sessions != nil {
			if claims.SessionID == "" {
				return apperror.Unauthorized("Session expired or revoked")
			}
			if _, err := sessions.Authenticate(c.UserContext(), tokenString, claims.SessionID); err != nil {
				return err
			}
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", role)
		c.Locals("session_id", claims.SessionID)

		return c.Next()
	}
}
