// Package api carries the OpenAPI document served at /api/docs.
package api

import _ "embed"

// OpenAPISpec is the m3ucatalog HTTP API description, embedded at build time.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
