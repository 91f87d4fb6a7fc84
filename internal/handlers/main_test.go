package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abrezinsky/munreg/internal/auth"
	"github.com/abrezinsky/munreg/internal/handlers"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/mailqueue"
	"github.com/abrezinsky/munreg/internal/metrics"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
	"github.com/abrezinsky/munreg/internal/services"
	"github.com/abrezinsky/munreg/internal/testutil"
)

const adminEmail = "chair@example.com"

// testServer serves the full router over an in-memory repository seeded
// with the sample catalog
type testServer struct {
	repo    *repository.Repository
	auth    *auth.Auth
	router  http.Handler
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	testutil.SeedCatalog(t, repo)

	log := logger.Discard()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	queue := mailqueue.NewOutboxQueue(repo)
	notifier := services.NewNotifier(log, repo, queue, m, services.NotifierOptions{Workers: 2})
	t.Cleanup(notifier.Close)

	alloc := services.NewAllocator(log, repo, m, services.AllocatorOptions{})
	alloc.SetNotifier(notifier)

	authn := auth.New(log, "handler-test-secret", "munreg", []string{adminEmail})
	h := handlers.New(log, handlers.Services{
		Catalog:       services.NewCatalogService(log, repo),
		Registrations: services.NewRegistrationService(log, repo, m, 0, 2),
		Allocator:     alloc,
		Rosters:       services.NewRosterService(log, repo),
		Notifier:      notifier,
		Badges:        services.NewBadgeService(log, repo),
	}, authn, queue, repo, m.Handler(), nil)

	return &testServer{repo: repo, auth: authn, router: h.Router(), metrics: m}
}

func (s *testServer) token(t *testing.T, id string) string {
	t.Helper()
	tok, err := s.auth.Mint(id, id+"@example.com", false, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return tok
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	tok, err := s.auth.Mint("chair", adminEmail, false, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint admin token: %v", err)
	}
	return tok
}

// do sends a request with an optional JSON body and bearer token
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) delegate(t *testing.T, id string, verified bool, prefs ...models.Preference) {
	t.Helper()
	testutil.CreateDelegate(t, s.repo, id, verified, prefs...)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	var apiErr handlers.APIError
	decode(t, rec, &apiErr)
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, apiErr.Code, apiErr.Message)
	}
}
