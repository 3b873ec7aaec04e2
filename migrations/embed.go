// Package migrations holds the goose SQL migrations for the FleetOps schema
// and applies them at server start and in integration tests.
package migrations

import "embed"

// FS holds every *.sql migration, embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
