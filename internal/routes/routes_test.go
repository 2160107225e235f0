package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/handlers"
)

func newRoutesTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(nil)})
	denyAll := func(c *fiber.Ctx) error {
		return apperror.Unauthorized("Missing authorization header")
	}
	registerAPIRoutes(app.Group("/api/v1"), apiHandlers{
		auth:          handlers.NewAuthHandler(nil),
		relationships: handlers.NewRelationshipHandler(nil),
		chats:         handlers.NewChatHandler(nil),
		notifications: handlers.NewNotificationHandler(nil),
	}, denyAll)
	return app
}

func TestUnknownAPIPathReturnsNotFound(t *testing.T) {
	app := newRoutesTestApp()

	for _, path := range []string{"/api/v1/nope", "/api/v1/invites/5/nope", "/api/v1/notifications/nope/extra"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestProtectedAPIRoutesRequireAuth(t *testing.T) {
	app := newRoutesTestApp()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/invites"},
		{http.MethodPost, "/api/v1/invites/5/accept"},
		{http.MethodDelete, "/api/v1/invites/trainer/8"},
		{http.MethodGet, "/api/v1/chats/17/messages"},
		{http.MethodGet, "/api/v1/17/messages"},
		{http.MethodPatch, "/api/v1/notifications/mark-all-read"},
		{http.MethodGet, "/api/v1/auth/me"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
		if err != nil {
			t.Fatalf("app.Test %s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, resp.StatusCode)
		}
	}
}
