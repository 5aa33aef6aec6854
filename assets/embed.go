// Package assets holds the files compiled into the binaries: database migrations,
// email and portal templates, portal static files and the common passwords list.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/* templates/portal/* static/* common-passwords.txt
var FS embed.FS

const (
	MigrationsDir       = "migrations"
	CommonPasswordsFile = "common-passwords.txt"
	PortalTemplatesDir  = "templates/portal"
	StaticDir           = "static"
)
