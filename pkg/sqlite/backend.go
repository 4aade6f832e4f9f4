// Package sqlite provides the public API for the SQLite pack archive.
// This package exposes the factory function for creating SQLite backends
// while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/annopack/internal/sqlite"
	"github.com/mesh-intelligence/annopack/pkg/types"
)

// NewBackend creates a new SQLite archive instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	archive := sqlite.NewBackend()
//	err := archive.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".annopack",
//	})
//	defer archive.Detach()
func NewBackend() types.Archive {
	return sqlite.NewBackend()
}
