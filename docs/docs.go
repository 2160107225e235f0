// Package docs embeds the OpenAPI description served in development.
package docs

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
