// Package migrations embeds the SQL schema and seed files shipped with the
// service.
package migrations

import "embed"

// FS holds the migration and seed SQL.
//
//go:embed sql/*.sql seeds/*.sql
var FS embed.FS
