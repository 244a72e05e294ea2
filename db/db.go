// Package db carries the schema migrations, embedded so the binary can migrate
// without a checkout.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
