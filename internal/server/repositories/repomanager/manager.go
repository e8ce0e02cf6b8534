// Package repomanager hands out repositories bound to a storage backend and
// runs work that must be atomic across several repository calls.
package repomanager

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/gallery"
)

// MemoryDSN selects the in-memory backend.
const MemoryDSN = "memory://"

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Gallery() gallery.Repository
	// WithTx runs fn against a repository whose writes are applied
	// atomically: all of them or, when fn returns an error, none.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo gallery.Repository) error) error
	Close() error
}

// IsMemoryDSN reports whether dsn asks for the in-memory backend.
func IsMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, MemoryDSN)
}
