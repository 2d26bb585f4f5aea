// Package db holds the schema migrations, embedded so the binaries and the
// integration tests do not depend on the working directory.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
