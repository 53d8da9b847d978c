// Package migrations holds the SQL schema applied by `clinicaldocs migrate`.
package migrations

import "embed"

// FS contains every numbered migration file.
//
//go:embed *.sql
var FS embed.FS
