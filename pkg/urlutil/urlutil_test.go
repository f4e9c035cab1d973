package urlutil_test

import (
	"net/url"
	"testing"

	"github.com/rohmanhakim/docs-link-crawler/pkg/urlutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases scheme and host", "HTTPS://Docs.Atlan.COM/Guide", "https://docs.atlan.com/Guide"},
		{"removes default https port", "https://docs.atlan.com:443/a", "https://docs.atlan.com/a"},
		{"removes default http port", "http://docs.atlan.com:80/a", "http://docs.atlan.com/a"},
		{"keeps non default port", "http://localhost:8080/a", "http://localhost:8080/a"},
		{"empty path becomes root", "https://docs.atlan.com", "https://docs.atlan.com/"},
		{"strips fragment", "https://docs.atlan.com/page#section", "https://docs.atlan.com/page"},
		{"keeps query", "https://docs.atlan.com/search?q=lineage", "https://docs.atlan.com/search?q=lineage"},
		{"keeps trailing slash", "https://docs.atlan.com/x/", "https://docs.atlan.com/x/"},
		{"drops user info", "https://user:pw@docs.atlan.com/a", "https://docs.atlan.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := urlutil.Canonicalize(mustParse(t, tt.input))
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"HTTPS://Docs.Atlan.com:443/Setup?x=1#frag",
		"http://example.com",
		"https://example.com/a/b/",
	}
	for _, raw := range inputs {
		once := urlutil.Canonicalize(mustParse(t, raw))
		twice := urlutil.Canonicalize(once)
		assert.Equal(t, once.String(), twice.String())
	}
}

func TestCanonicalize_DoesNotMutateInput(t *testing.T) {
	u := mustParse(t, "HTTPS://Example.com/a#frag")
	_ = urlutil.Canonicalize(u)
	assert.Equal(t, "frag", u.Fragment)
	assert.Equal(t, "Example.com", u.Host)
}

func TestKey_EquivalentSpellingsCollide(t *testing.T) {
	a := urlutil.Key(mustParse(t, "https://docs.atlan.com:443/guide#intro"))
	b := urlutil.Key(mustParse(t, "HTTPS://DOCS.ATLAN.COM/guide"))
	assert.Equal(t, a, b)
}

func TestIsHTTP(t *testing.T) {
	assert.True(t, urlutil.IsHTTP(mustParse(t, "https://a.com")))
	assert.True(t, urlutil.IsHTTP(mustParse(t, "HTTP://a.com")))
	assert.False(t, urlutil.IsHTTP(mustParse(t, "mailto:someone@a.com")))
	assert.False(t, urlutil.IsHTTP(mustParse(t, "javascript:void(0)")))
}
