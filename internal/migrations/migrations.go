// Package migrations embeds the SQL schema of the catalog database.
package migrations

import "embed"

// FS holds golang-migrate compatible files named <version>_<title>.<up|down>.sql.
//
//go:embed *.sql
var FS embed.FS
