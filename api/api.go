// Package api embeds the OpenAPI description of the FleetOps HTTP API,
// served by the handler package at /openapi.yaml.
package api

import _ "embed"

// OpenAPI is the raw openapi.yaml document.
//
//go:embed openapi.yaml
var OpenAPI []byte
