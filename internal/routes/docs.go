package routes

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/docs"
	"github.com/saeid-a/CoachLinkBack/internal/config"
)

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    body { margin: 0; font-family: Georgia, "Times New Roman", serif; color: #132019; background: #f6f7f4; }
    main { max-width: 1120px; margin: 0 auto; padding: 48px 20px 64px; }
    h1 { margin: 0 0 12px; }
    p { color: #536258; line-height: 1.6; }
    a { color: #1f6f4a; font-weight: 600; }
    pre { padding: 20px; overflow: auto; border-radius: 14px; background: #0f172a; color: #e2e8f0; font-size: 0.92rem; line-height: 1.5; }
  </style>
</head>
<body>
  <main>
    <h1>{{ .Title }}</h1>
    <p>Loaded {{ .LoadedAt }}. The raw spec is served at <a href="/docs/openapi.yaml">/docs/openapi.yaml</a>. The websocket gateway lives at <code>/api/v1/ws?token=...&amp;session_id=...</code>.</p>
    <pre>{{ .Spec }}</pre>
  </main>
</body>
</html>
`

type docsPageData struct {
	Title    string
	LoadedAt string
	Spec     string
}

func registerDocsRoutes(app fiber.Router, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}
	if len(docs.OpenAPI) == 0 {
		return fmt.Errorf("load openapi spec: embedded spec is empty")
	}

	indexTemplate, err := template.New("docs-index").Parse(docsIndexHTML)
	if err != nil {
		return fmt.Errorf("parse docs template: %w", err)
	}

	pageData := docsPageData{
		Title:    "CoachLink API Docs",
		LoadedAt: time.Now().UTC().Format(time.RFC3339),
		Spec:     string(docs.OpenAPI),
	}

	indexHandler := func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")

		var body bytes.Buffer
		if err := indexTemplate.Execute(&body, pageData); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render api docs")
		}
		return c.Status(fiber.StatusOK).Send(body.Bytes())
	}

	app.Get("/docs", indexHandler)
	app.Get("/docs/", indexHandler)
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, "application/yaml; charset=utf-8")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="openapi.yaml"`)
		return c.Status(fiber.StatusOK).Send(docs.OpenAPI)
	})

	return nil
}

func applyDocsBaseHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("Cross-Origin-Resource-Policy", "same-origin")
	c.Set("X-Robots-Tag", "noindex, nofollow")
}
