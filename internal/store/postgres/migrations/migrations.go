// Package migrations holds the goose migrations. SQL files are embedded;
// Go migrations register themselves in init.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
