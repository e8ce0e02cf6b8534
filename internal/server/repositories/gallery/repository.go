// Package gallery persists gallery items.
package gallery

import (
	"context"

	"github.com/dmitrijs2005/inkstudio/internal/server/models"
)

// Repository stores gallery items. Missing items are reported as
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, item *models.GalleryItem) error
	Get(ctx context.Context, id string) (*models.GalleryItem, error)
	Update(ctx context.Context, item *models.GalleryItem) error
	Delete(ctx context.Context, id string) error
	SetOrder(ctx context.Context, id string, order int) error

	// ListAfter returns up to limit items strictly after the given position
	// in (created_at DESC, id DESC) order. A nil position starts at the top.
	ListAfter(ctx context.Context, after *models.Position, limit int) ([]*models.GalleryItem, error)

	// ListAll returns every item ordered by order ASC, created_at DESC.
	ListAll(ctx context.Context) ([]*models.GalleryItem, error)
	Count(ctx context.Context) (int, error)
}
