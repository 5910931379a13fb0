package migrations

import "embed"

// FS embeds the SQL migration files in this directory; the
// golang-migrate iofs driver reads them on startup.
//
//go:embed *.sql
var FS embed.FS

const Version = 1
