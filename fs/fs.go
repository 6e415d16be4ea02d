// Package appfs embeds the files the binaries need at runtime: SQL migrations and e-mail templates.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
)
