// Package migrations embeds the goose SQL migrations for the Postgres
// snapshot store. The server applies them at startup and tests apply them
// through testutil.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
