package gallery

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/inkstudio/internal/common"
	"github.com/dmitrijs2005/inkstudio/internal/server/models"
)

// MemoryRepository keeps items in process memory. It orders results the same
// way PostgresRepository does and is safe for concurrent use.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.GalleryItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.GalleryItem)}
}

// NewMemoryRepositoryFrom returns a repository holding copies of items.
func NewMemoryRepositoryFrom(items map[string]*models.GalleryItem) *MemoryRepository {
	r := NewMemoryRepository()
	for id, item := range items {
		r.items[id] = clone(item)
	}
	return r
}

func (r *MemoryRepository) Create(ctx context.Context, item *models.GalleryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; ok {
		return fmt.Errorf("duplicate id %s: %w", item.ID, common.ErrorValidation)
	}
	r.items[item.ID] = clone(item)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.GalleryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(item), nil
}

func (r *MemoryRepository) Update(ctx context.Context, item *models.GalleryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[item.ID]
	if !ok {
		return common.ErrorNotFound
	}
	cur.Title = item.Title
	cur.Description = item.Description
	cur.Tags = slices.Clone(item.Tags)
	cur.Order = item.Order
	cur.UpdatedAt = item.UpdatedAt
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryRepository) SetOrder(ctx context.Context, id string, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	item.Order = order
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) ListAfter(ctx context.Context, after *models.Position, limit int) ([]*models.GalleryItem, error) {
	all := r.sorted(compareFeed)

	result := make([]*models.GalleryItem, 0, min(limit, len(all)))
	for _, item := range all {
		if len(result) == limit {
			break
		}
		if after != nil && !after.Before(item) {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func (r *MemoryRepository) ListAll(ctx context.Context) ([]*models.GalleryItem, error) {
	return r.sorted(compareAdmin), nil
}

func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

// Snapshot returns a deep copy of the current contents.
func (r *MemoryRepository) Snapshot() map[string]*models.GalleryItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.GalleryItem, len(r.items))
	for id, item := range r.items {
		out[id] = clone(item)
	}
	return out
}

// Apply writes the difference between base and staged: items that staged
// added or changed are stored, items it dropped are deleted. Entries that
// staged left as they were in base are not touched, so concurrent writes to
// them survive.
func (r *MemoryRepository) Apply(base, staged map[string]*models.GalleryItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, item := range staged {
		if before, ok := base[id]; ok && sameItem(before, item) {
			continue
		}
		r.items[id] = clone(item)
	}
	for id := range base {
		if _, ok := staged[id]; !ok {
			delete(r.items, id)
		}
	}
}

func (r *MemoryRepository) sorted(cmp func(a, b *models.GalleryItem) int) []*models.GalleryItem {
	r.mu.RLock()
	out := make([]*models.GalleryItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, clone(item))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, cmp)
	return out
}

func compareFeed(a, b *models.GalleryItem) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

func compareAdmin(a, b *models.GalleryItem) int {
	if a.Order != b.Order {
		return a.Order - b.Order
	}
	return compareFeed(a, b)
}

func clone(item *models.GalleryItem) *models.GalleryItem {
	c := *item
	c.Tags = slices.Clone(item.Tags)
	return &c
}

func sameItem(a, b *models.GalleryItem) bool {
	return a.ID == b.ID &&
		a.ImageURL == b.ImageURL &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		slices.Equal(a.Tags, b.Tags) &&
		a.Order == b.Order &&
		a.CreatedBy == b.CreatedBy &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}
