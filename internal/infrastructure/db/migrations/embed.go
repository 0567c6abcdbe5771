// Package migrations holds the goose SQL migrations for the account schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
