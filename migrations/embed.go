// Package migrations embeds the SQL schema for every supported store.
package migrations

import "embed"

// FS holds one directory per driver ("sqlite", "postgres") in golang-migrate layout.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
