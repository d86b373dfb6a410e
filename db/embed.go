// Package db embeds the SQL migration scripts so the server binary can
// apply them without access to the source tree.
package db

import _ "embed"

//go:embed migrations/init.sql
var InitMigration string

//go:embed migrations/down.sql
var DownMigration string
