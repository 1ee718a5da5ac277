// Package migrations embeds the SQL schema migrations for the scheduler
// database. cmd/migrate applies them with golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
