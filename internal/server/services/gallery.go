package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/inkstudio/internal/common"
	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/config"
	"github.com/dmitrijs2005/inkstudio/internal/server/metrics"
	"github.com/dmitrijs2005/inkstudio/internal/server/models"
	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/gallery"
	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// GalleryUnavailableMessage is shown to visitors when the gallery backend
// cannot be read.
const GalleryUnavailableMessage = "Unable to load gallery at this time"

const (
	deleteConcurrency = 8

	// Rough storage estimate shown on the dashboard.
	estimatedImageMB = 2
	storageBudgetMB  = 5000
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BlobStore keeps image bytes and maps object keys to public URLs.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}

// PageResult is one page of the public feed. Error is set, and the page
// empty, when the backend could not be read.
type PageResult struct {
	Images      []models.GalleryImage `json:"images"`
	HasMore     bool                  `json:"hasMore"`
	LastImageID *string               `json:"lastImageId"`
	Error       string                `json:"error,omitempty"`
}

type CreateInput struct {
	ImageURL    string   `json:"imageUrl" validate:"required,url"`
	Title       string   `json:"title" validate:"max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Tags        []string `json:"tags" validate:"max=32,dive,max=64"`
	Order       int      `json:"order" validate:"gte=0"`
	CreatedBy   string   `json:"-"`
}

// Patch lists the fields of an update; nil fields are left untouched.
type Patch struct {
	Title       *string   `json:"title" validate:"omitnil,max=200"`
	Description *string   `json:"description" validate:"omitnil,max=2000"`
	Tags        *[]string `json:"tags" validate:"omitnil,max=32,dive,max=64"`
	Order       *int      `json:"order" validate:"omitnil,gte=0"`
}

// UploadFile is one file received from the dashboard.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ItemResult is the outcome of one element of a batch operation.
type ItemResult struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	err error
}

// BatchResult keeps per-item outcomes in input order.
type BatchResult struct {
	Results []ItemResult `json:"results"`
}

// Failed returns the number of items that did not succeed.
func (b BatchResult) Failed() int {
	n := 0
	for _, r := range b.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// Err joins the errors of all failed items, or returns nil.
func (b BatchResult) Err() error {
	var errs []error
	for _, r := range b.Results {
		if !r.Success {
			label := r.ID
			if label == "" {
				label = r.Name
			}
			errs = append(errs, fmt.Errorf("%s: %w", label, r.err))
		}
	}
	return errors.Join(errs...)
}

// Stats summarises the gallery for the dashboard.
type Stats struct {
	TotalImages    int     `json:"totalImages"`
	StorageUsedMB  int     `json:"storageUsedMB"`
	StorageLimitMB int     `json:"storageLimitMB"`
	StoragePercent float64 `json:"storagePercent"`
}

type GalleryService struct {
	repos   repomanager.RepositoryManager
	blobs   BlobStore
	metrics *metrics.Metrics
	logger  logging.Logger

	defaultPageSize int
	maxPageSize     int
	blobPrefix      string
	uploadMaxSize   int64

	now   func() time.Time
	newID func() string
}

func NewGalleryService(repos repomanager.RepositoryManager, blobs BlobStore, cfg *config.Config, m *metrics.Metrics, logger logging.Logger) *GalleryService {
	return &GalleryService{
		repos:           repos,
		blobs:           blobs,
		metrics:         m,
		logger:          logger.With("module", "gallery"),
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		blobPrefix:      strings.Trim(cfg.BlobPrefix, "/"),
		uploadMaxSize:   cfg.UploadMaxSize,
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

func (s *GalleryService) repo() gallery.Repository {
	return s.repos.Gallery()
}

// Page returns the page of the public feed that follows the item cursor
// (the id of the last item of the previous page, empty for the first page).
// It never fails: a backend error yields an empty page with Error set.
func (s *GalleryService) Page(ctx context.Context, limit int, cursor string) PageResult {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if s.maxPageSize > 0 && limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	var after *models.Position
	if cursor != "" {
		last, err := s.repo().Get(ctx, cursor)
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "unknown gallery cursor", "cursor", cursor)
			s.metrics.GalleryPages.WithLabelValues("ok").Inc()
			return PageResult{Images: []models.GalleryImage{}}
		}
		if err != nil {
			return s.pageFailed(ctx, err)
		}
		pos := last.Position()
		after = &pos
	}

	items, err := s.repo().ListAfter(ctx, after, limit+1)
	if err != nil {
		return s.pageFailed(ctx, err)
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	res := PageResult{Images: make([]models.GalleryImage, 0, len(items)), HasMore: hasMore}
	for _, it := range items {
		res.Images = append(res.Images, it.View())
	}
	if n := len(items); n > 0 {
		id := items[n-1].ID
		res.LastImageID = &id
	}

	s.metrics.GalleryPages.WithLabelValues("ok").Inc()
	return res
}

func (s *GalleryService) pageFailed(ctx context.Context, err error) PageResult {
	s.logger.Error(ctx, "error fetching public gallery", "error", err)
	s.metrics.GalleryPages.WithLabelValues("error").Inc()
	return PageResult{Images: []models.GalleryImage{}, Error: GalleryUnavailableMessage}
}

// ListAll returns every item for the dashboard: order ascending, newest
// first within the same order.
func (s *GalleryService) ListAll(ctx context.Context) ([]models.GalleryImage, error) {
	items, err := s.repo().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}
	out := make([]models.GalleryImage, 0, len(items))
	for _, it := range items {
		out = append(out, it.View())
	}
	return out, nil
}

func (s *GalleryService) Create(ctx context.Context, in CreateInput) (*models.GalleryItem, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	now := s.now().UTC()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	item := &models.GalleryItem{
		ID:          s.newID(),
		ImageURL:    in.ImageURL,
		Title:       in.Title,
		Description: in.Description,
		Tags:        tags,
		Order:       in.Order,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo().Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create gallery item: %w", err)
	}

	s.logger.Info(ctx, "gallery item created", "id", item.ID)
	return item, nil
}

// Update merges the non-nil fields of p into item id.
func (s *GalleryService) Update(ctx context.Context, id string, p Patch) (*models.GalleryItem, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	item, err := s.repo().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Tags != nil {
		item.Tags = *p.Tags
	}
	if p.Order != nil {
		item.Order = *p.Order
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.repo().Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Reorder sets the order of each listed item to its index, atomically.
func (s *GalleryService) Reorder(ctx context.Context, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty id", common.ErrorValidation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %s", common.ErrorValidation, id)
		}
		seen[id] = struct{}{}
	}

	return s.repos.WithTx(ctx, func(ctx context.Context, repo gallery.Repository) error {
		for i, id := range ids {
			if err := repo.SetOrder(ctx, id, i); err != nil {
				return fmt.Errorf("set order of %s: %w", id, err)
			}
		}
		return nil
	})
}

// Delete removes the image blob (best effort) and then the record. A blob
// that cannot be resolved or deleted never blocks the record removal.
func (s *GalleryService) Delete(ctx context.Context, id string) error {
	item, err := s.repo().Get(ctx, id)
	if err != nil {
		return err
	}

	s.deleteBlob(ctx, item)

	if err := s.repo().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "gallery item deleted", "id", id)
	return nil
}

func (s *GalleryService) deleteBlob(ctx context.Context, item *models.GalleryItem) {
	key, ok := s.blobs.KeyFromURL(item.ImageURL)
	if !ok {
		s.logger.Debug(ctx, "image url not in blob store, skipping", "id", item.ID)
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.metrics.BlobCleanupFailure.Inc()
		s.logger.Warn(ctx, "could not delete image blob", "id", item.ID, "key", key, "error", err)
	}
}

// DeleteMany deletes every id concurrently and reports each outcome. One
// failing item does not stop the others.
func (s *GalleryService) DeleteMany(ctx context.Context, ids []string) BatchResult {
	results := make([]ItemResult, len(ids))

	var g errgroup.Group
	g.SetLimit(deleteConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = ItemResult{ID: id, Success: true}
			if err := s.Delete(ctx, id); err != nil {
				results[i] = ItemResult{ID: id, Error: err.Error(), err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	return BatchResult{Results: results}
}

// Upload stores one image and returns its public URL. Object keys look like
// "{prefix}/{unix millis}-{random}{.ext}".
func (s *GalleryService) Upload(ctx context.Context, f UploadFile, uploader string) (string, error) {
	if !strings.HasPrefix(f.ContentType, "image/") {
		return "", fmt.Errorf("%w: %s is not an image", common.ErrorValidation, f.Name)
	}
	if f.Size <= 0 {
		return "", fmt.Errorf("%w: %s is empty", common.ErrorValidation, f.Name)
	}
	if f.Size > s.uploadMaxSize {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", common.ErrorValidation, f.Name, s.uploadMaxSize)
	}

	suffix, err := common.MakeRandHexString(6)
	if err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s/%d-%s%s", s.blobPrefix, now.UnixMilli(), suffix, strings.ToLower(filepath.Ext(f.Name)))
	meta := map[string]string{
		"uploaded-by":   uploader,
		"original-name": url.PathEscape(f.Name),
		"uploaded-at":   now.Format(time.RFC3339),
	}

	if err := s.blobs.Put(ctx, key, f.Body, f.Size, f.ContentType, meta); err != nil {
		s.metrics.Uploads.WithLabelValues("error").Inc()
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}

	s.metrics.Uploads.WithLabelValues("ok").Inc()
	s.logger.Info(ctx, "image uploaded", "key", key, "size", f.Size)
	return s.blobs.URL(key), nil
}

// UploadMany uploads files one after another and creates a gallery item for
// each stored image, appended after the existing ones.
func (s *GalleryService) UploadMany(ctx context.Context, files []UploadFile, uploader string) BatchResult {
	results := make([]ItemResult, 0, len(files))

	next, err := s.repo().Count(ctx)
	if err != nil {
		s.logger.Warn(ctx, "could not count gallery items", "error", err)
	}

	for _, f := range files {
		res := ItemResult{Name: f.Name}

		imageURL, err := s.Upload(ctx, f, uploader)
		if err != nil {
			res.Error, res.err = err.Error(), err
			results = append(results, res)
			continue
		}

		item, err := s.Create(ctx, CreateInput{ImageURL: imageURL, Order: next, CreatedBy: uploader})
		if err != nil {
			s.deleteBlob(ctx, &models.GalleryItem{ImageURL: imageURL})
			res.Error, res.err = err.Error(), err
			results = append(results, res)
			continue
		}

		next++
		res.ID, res.URL, res.Success = item.ID, imageURL, true
		results = append(results, res)
	}

	return BatchResult{Results: results}
}

func (s *GalleryService) Stats(ctx context.Context) (*Stats, error) {
	n, err := s.repo().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count gallery: %w", err)
	}
	used := n * estimatedImageMB
	return &Stats{
		TotalImages:    n,
		StorageUsedMB:  used,
		StorageLimitMB: storageBudgetMB,
		StoragePercent: float64(used) / storageBudgetMB * 100,
	}, nil
}
