// Package migrations holds the versioned SQL schema of the checkout service.
package migrations

import "embed"

// FS contains every *.sql migration, read by golang-migrate through iofs
//
//go:embed *.sql
var FS embed.FS
