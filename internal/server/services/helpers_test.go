package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/config"
	"github.com/dmitrijs2005/inkstudio/internal/server/metrics"
	"github.com/dmitrijs2005/inkstudio/internal/server/models"
	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/gallery"
	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/repomanager"
)

const blobBase = "http://cdn.local/inkstudio/"

func testLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard, "error")
}

func testConfig() *config.Config {
	return &config.Config{
		AdminEmail:      "owner@studio.test",
		ClientEmail:     "artist@studio.test",
		DefaultPageSize: 9,
		MaxPageSize:     48,
		BlobPrefix:      "gallery",
		UploadMaxSize:   1024,
	}
}

// fakeBlobs is a concurrency-safe in-memory BlobStore.
type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string]string
	meta      map[string]map[string]string
	deleted   []string
	putErr    error
	deleteErr map[string]error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{
		objects:   map[string]string{},
		meta:      map[string]map[string]string{},
		deleteErr: map[string]error{},
	}
}

func (f *fakeBlobs) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(b)
	f.meta[key] = metadata
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[key]; err != nil {
		return err
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) URL(key string) string { return blobBase + key }

func (f *fakeBlobs) KeyFromURL(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, blobBase)
	return key, ok && key != ""
}

func (f *fakeBlobs) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// brokenRepo fails every call with err.
type brokenRepo struct {
	gallery.Repository
	err error
}

func (r brokenRepo) Get(context.Context, string) (*models.GalleryItem, error) { return nil, r.err }
func (r brokenRepo) ListAfter(context.Context, *models.Position, int) ([]*models.GalleryItem, error) {
	return nil, r.err
}
func (r brokenRepo) ListAll(context.Context) ([]*models.GalleryItem, error) { return nil, r.err }
func (r brokenRepo) Count(context.Context) (int, error)                     { return 0, r.err }
func (r brokenRepo) Create(context.Context, *models.GalleryItem) error      { return r.err }

type brokenManager struct {
	repomanager.RepositoryManager
	repo gallery.Repository
}

func (m brokenManager) Gallery() gallery.Repository { return m.repo }

var errBackend = errors.New("backend down")

type fixture struct {
	svc     *GalleryService
	repos   *repomanager.MemoryRepositoryManager
	blobs   *fakeBlobs
	metrics *metrics.Metrics
	clock   time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repos:   repomanager.NewMemoryRepositoryManager(),
		blobs:   newFakeBlobs(),
		metrics: metrics.NewNop(),
		clock:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewGalleryService(f.repos, f.blobs, testConfig(), f.metrics, testLogger())

	var n int
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return f
}

// seed stores items named after ids, oldest first.
func (f *fixture) seed(ctx context.Context, ids ...string) {
	for _, id := range ids {
		f.clock = f.clock.Add(time.Minute)
		item := &models.GalleryItem{
			ID:        id,
			ImageURL:  blobBase + "gallery/" + id + ".jpg",
			CreatedAt: f.clock,
			UpdatedAt: f.clock,
		}
		if err := f.repos.Gallery().Create(ctx, item); err != nil {
			panic(err)
		}
		f.blobs.objects["gallery/"+id+".jpg"] = id
	}
}

func imageIDs(images []models.GalleryImage) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}
