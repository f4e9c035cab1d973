package scheduler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/internal/config"
	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/stretchr/testify/require"
)

// site is an in-memory documentation site served over httptest.
type site struct {
	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	pages    map[string]string
	handlers map[string]http.HandlerFunc
	robots   string
	hits     map[string]int
	order    []string
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{
		t:        t,
		pages:    make(map[string]string),
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)
	return s
}

func (s *site) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.RequestURI()

	if r.URL.Path == "/robots.txt" {
		s.mu.Lock()
		body := s.robots
		s.mu.Unlock()
		if body == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
		return
	}

	s.mu.Lock()
	s.hits[path]++
	s.order = append(s.order, path)
	handler, hasHandler := s.handlers[path]
	body, hasPage := s.pages[path]
	s.mu.Unlock()

	switch {
	case hasHandler:
		handler(w, r)
	case hasPage:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}

// page registers an HTML page whose body contains one anchor per href.
func (s *site) page(path string, hrefs ...string) {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(path)
	b.WriteString("</title></head><body>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, href)
	}
	b.WriteString("</body></html>")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = b.String()
}

func (s *site) handle(path string, handler http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = handler
}

func (s *site) setRobots(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.robots = body
}

func (s *site) url(path string) string {
	return s.server.URL + path
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *site) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

// testConfig returns a fast, deterministic configuration for seed.
func testConfig(t *testing.T, seed string, opts ...func(*config.Config)) config.Config {
	t.Helper()
	builder := config.WithDefault(mustParse(t, seed)).
		WithBaseDelay(0).
		WithJitter(0).
		WithMaxAttempt(1).
		WithBackoffInitialDuration(time.Millisecond).
		WithBackoffMaxDuration(5 * time.Millisecond).
		WithTimeout(2 * time.Second).
		WithOutputPath(filepath.Join(t.TempDir(), "discovered_urls.txt"))
	for _, opt := range opts {
		opt(builder)
	}
	cfg, err := builder.Build()
	require.NoError(t, err)
	return cfg
}

func urlStrings(urls []url.URL) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.String())
	}
	return out
}

// recordingSink is a concurrency-safe test double for metadata.MetadataSink
// and metadata.CrawlFinalizer.
type recordingSink struct {
	metadata.NoopSink
	mu         sync.Mutex
	finalStats []metadata.CrawlStats
	skips      map[string]string
	causes     []metadata.ErrorCause
	artifacts  []metadata.ArtifactKind
}

func newRecordingSink() *recordingSink {
	return &recordingSink{skips: make(map[string]string)}
}

func (r *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.causes = append(r.causes, cause)
}

func (r *recordingSink) RecordSkip(skipUrl string, reason string, crawlDepth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips[skipUrl] = reason
}

func (r *recordingSink) skipReason(skipUrl string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skips[skipUrl]
}

func (r *recordingSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, kind)
}

func (r *recordingSink) RecordFinalCrawlStats(stats metadata.CrawlStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalStats = append(r.finalStats, stats)
}
