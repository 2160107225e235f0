package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

func newTestApp(userID string, role models.Role) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	app.Use(func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals("user_id", userID)
			c.Locals("role", role)
			c.Locals("session_id", "4b8f2c1e-6a7d-4f10-9d3e-2c5b7a9e1f00")
		}
		return c.Next()
	})
	return app
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return body.Error
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"bad request", apperror.BadRequest("Invalid trainer id"), http.StatusBadRequest, "Invalid trainer id"},
		{"unauthorized", apperror.Unauthorized("Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{"forbidden", apperror.Forbidden("Forbidden"), http.StatusForbidden, "Forbidden"},
		{"not found", apperror.NotFound("Chat not found"), http.StatusNotFound, "Chat not found"},
		{"conflict", apperror.Conflict("Client already has an active trainer"), http.StatusConflict, "Client already has an active trainer"},
		{"unclassified", errors.New("pool exhausted"), http.StatusInternalServerError, "Internal server error"},
		{"fiber error", fiber.NewError(fiber.StatusUpgradeRequired, "WebSocket upgrade required"), http.StatusUpgradeRequired, "WebSocket upgrade required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp("", "")
			app.Get("/boom", func(c *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if got := decodeError(t, resp); got != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, got)
			}
		})
	}
}

func TestCurrentUserRequiresLocals(t *testing.T) {
	app := newTestApp("", "")
	app.Get("/me", func(c *fiber.Ctx) error {
		_, _, err := currentUser(c)
		return err
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPageParamsClampsLimit(t *testing.T) {
	app := newTestApp("", "")
	app.Get("/page", func(c *fiber.Ctx) error {
		page, limit := pageParams(c, defaultPageLimit, maxPageLimit)
		return c.JSON(fiber.Map{"page": page, "limit": limit})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/page?page=-2&limit=500", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Page != 1 || body.Limit != maxPageLimit {
		t.Fatalf("unexpected page params: %+v", body)
	}
}
