package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/inkstudio/internal/common"
	"github.com/dmitrijs2005/inkstudio/internal/server/config"
	"github.com/dmitrijs2005/inkstudio/internal/server/identity"
	"github.com/dmitrijs2005/inkstudio/internal/server/metrics"
	"github.com/dmitrijs2005/inkstudio/internal/server/models"
	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/gallery"
	"github.com/dmitrijs2005/inkstudio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/inkstudio/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	blobBase    = "http://cdn.local/inkstudio/"
	adminEmail  = "owner@studio.test"
	validToken  = "good"
	allowOrigin = "https://studio.test"
)

type fakeIDP struct {
	mu        sync.Mutex
	accounts  map[string]*identity.Account
	signIn    *identity.SignIn
	signInErr error
	signIns   int
}

func (f *fakeIDP) LookupAccount(ctx context.Context, token string) (*identity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[token]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return acc, nil
}

func (f *fakeIDP) SignInWithPassword(ctx context.Context, email, password string) (*identity.SignIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.signIn, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeBlobs) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, metadata map[string]string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(b)
	return nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobs) URL(key string) string { return blobBase + key }

func (f *fakeBlobs) KeyFromURL(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, blobBase)
	return key, ok && key != ""
}

func (f *fakeBlobs) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// failingRepo fails every read the public feed performs.
type failingRepo struct {
	gallery.Repository
}

var errBackend = errors.New("backend down")

func (failingRepo) Get(context.Context, string) (*models.GalleryItem, error) { return nil, errBackend }
func (failingRepo) ListAfter(context.Context, *models.Position, int) ([]*models.GalleryItem, error) {
	return nil, errBackend
}

type failingManager struct {
	repomanager.RepositoryManager
}

func (failingManager) Gallery() gallery.Repository { return failingRepo{} }

type testEnv struct {
	handler http.Handler
	repos   repomanager.RepositoryManager
	blobs   *fakeBlobs
	idp     *fakeIDP
	clock   time.Time
}

func testConfig(environment string) *config.Config {
	return &config.Config{
		EndpointAddrHTTP: ":0",
		Environment:      environment,
		AdminEmail:       adminEmail,
		ClientEmail:      "artist@studio.test",
		BlobPrefix:       "gallery",
		UploadMaxSize:    1024,
		DefaultPageSize:  9,
		MaxPageSize:      48,
		CORSOrigins:      []string{allowOrigin},
		LogLevel:         "error",
	}
}

func newEnvWith(t *testing.T, cfg *config.Config, repos repomanager.RepositoryManager) *testEnv {
	t.Helper()

	env := &testEnv{
		repos: repos,
		blobs: &fakeBlobs{objects: map[string]string{}},
		idp: &fakeIDP{accounts: map[string]*identity.Account{
			validToken: {LocalID: "uid-1", Email: adminEmail},
		}},
		clock: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := discardLogger()

	env.handler = New(cfg, Deps{
		Admin:    services.NewAdminService(env.idp, cfg, logger),
		Gallery:  services.NewGalleryService(repos, env.blobs, cfg, m, logger),
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	}).Handler()
	return env
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWith(t, testConfig(config.EnvDevelopment), repomanager.NewMemoryRepositoryManager())
}

// seed stores items named after ids, oldest first, each with a blob.
func (e *testEnv) seed(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		e.clock = e.clock.Add(time.Minute)
		key := "gallery/" + id + ".jpg"
		require.NoError(t, e.repos.Gallery().Create(context.Background(), &models.GalleryItem{
			ID:        id,
			ImageURL:  blobBase + key,
			Title:     "Title " + id,
			Tags:      []string{},
			CreatedAt: e.clock,
			UpdatedAt: e.clock,
		}))
		e.blobs.objects[key] = id
	}
}

// do sends a request; a non-empty token is attached as the session cookie.
func (e *testEnv) do(method, target, token string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: common.AdminTokenCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target, token string) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, target, token, nil, nil)
}

func (e *testEnv) send(method, target, token, body string) *httptest.ResponseRecorder {
	return e.do(method, target, token, strings.NewReader(body), nil)
}
