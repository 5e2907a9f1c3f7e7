//go:build !cgo_sqlite

package archive

// Default build. Pure Go, no C compiler required.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver the archive opens
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
