package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/gallery"
)

// MemoryRepositoryManager keeps everything in process memory. Used for local
// development (DSN "memory://") and tests.
type MemoryRepositoryManager struct {
	txMu    sync.Mutex
	gallery *gallery.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{gallery: gallery.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Gallery() gallery.Repository {
	return m.gallery
}

// WithTx runs fn against a private copy of the store. When fn succeeds the
// items it changed are written back; when it fails or panics nothing is.
// Transactions are serialised; writes outside a transaction are not blocked.
func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo gallery.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	base := m.gallery.Snapshot()
	staged := gallery.NewMemoryRepositoryFrom(base)

	if err := fn(ctx, staged); err != nil {
		return err
	}
	m.gallery.Apply(base, staged.Snapshot())
	return nil
}

func (m *MemoryRepositoryManager) Close() error {
	return nil
}
