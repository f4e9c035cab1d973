package config_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) url.URL {
	t.Helper()
	u, err := config.ParseSeedURL("https://docs.atlan.com/")
	require.NoError(t, err)
	return u
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault(seed(t)).Build()
	require.NoError(t, err)

	seedURL := cfg.SeedURL()
	assert.Equal(t, "https://docs.atlan.com/", seedURL.String())
	assert.Equal(t, config.OriginExact, cfg.OriginMode())
	assert.Empty(t, cfg.AllowedHosts())
	assert.Empty(t, cfg.AllowedPathPrefix())
	assert.Equal(t, []string{".pdf"}, cfg.ExcludedExtensions())
	assert.Equal(t, 0, cfg.MaxDepth())
	assert.Equal(t, 0, cfg.MaxPages())
	assert.Equal(t, 1, cfg.Concurrency())
	assert.Equal(t, time.Second, cfg.BaseDelay())
	assert.Equal(t, 500*time.Millisecond, cfg.Jitter())
	assert.True(t, cfg.RespectRobots())
	assert.Equal(t, 3, cfg.MaxAttempt())
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffInitialDuration())
	assert.Equal(t, 2.0, cfg.BackoffMultiplier())
	assert.Equal(t, 10*time.Second, cfg.BackoffMaxDuration())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, "docs-link-crawler/1.0", cfg.UserAgent())
	assert.Equal(t, int64(5*1024*1024), cfg.MaxBodyBytes())
	assert.Equal(t, "discovered_urls.txt", cfg.OutputPath())
	assert.Empty(t, cfg.DBPath())
	assert.Empty(t, cfg.SnapshotDir())
	assert.False(t, cfg.DryRun())
	assert.Equal(t, "info", cfg.LogLevel())
	assert.Equal(t, "text", cfg.LogFormat())
}

func TestBuilder_OverridesAndNormalizes(t *testing.T) {
	cfg, err := config.WithDefault(seed(t)).
		WithOriginMode(config.OriginSubdomains).
		WithAllowedHosts([]string{" Help.Atlan.com ", ""}).
		WithExcludedExtensions([]string{"PDF", ".zip", " "}).
		WithMaxDepth(2).
		WithMaxPages(50).
		WithConcurrency(4).
		WithRequestsPerSecond(2.5).
		WithRespectRobots(false).
		WithOutputPath("out/urls.txt").
		Build()
	require.NoError(t, err)

	assert.Equal(t, config.OriginSubdomains, cfg.OriginMode())
	assert.Equal(t, map[string]struct{}{"help.atlan.com": {}}, cfg.AllowedHosts())
	assert.Equal(t, []string{".pdf", ".zip"}, cfg.ExcludedExtensions())
	assert.Equal(t, 2, cfg.MaxDepth())
	assert.Equal(t, 50, cfg.MaxPages())
	assert.Equal(t, 4, cfg.Concurrency())
	assert.Equal(t, 2.5, cfg.RequestsPerSecond())
	assert.False(t, cfg.RespectRobots())
	assert.Equal(t, "out/urls.txt", cfg.OutputPath())
}

func TestGettersReturnCopies(t *testing.T) {
	cfg, err := config.WithDefault(seed(t)).
		WithAllowedHosts([]string{"a.com"}).
		WithAllowedPathPrefix([]string{"/docs"}).
		Build()
	require.NoError(t, err)

	hosts := cfg.AllowedHosts()
	hosts["b.com"] = struct{}{}
	prefixes := cfg.AllowedPathPrefix()
	prefixes[0] = "/changed"
	exts := cfg.ExcludedExtensions()
	exts[0] = ".html"

	assert.Len(t, cfg.AllowedHosts(), 1)
	assert.Equal(t, []string{"/docs"}, cfg.AllowedPathPrefix())
	assert.Equal(t, []string{".pdf"}, cfg.ExcludedExtensions())
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name  string
		apply func(c *config.Config)
	}{
		{"negative depth", func(c *config.Config) { c.WithMaxDepth(-1) }},
		{"negative pages", func(c *config.Config) { c.WithMaxPages(-1) }},
		{"zero concurrency", func(c *config.Config) { c.WithConcurrency(0) }},
		{"zero attempts", func(c *config.Config) { c.WithMaxAttempt(0) }},
		{"zero timeout", func(c *config.Config) { c.WithTimeout(0) }},
		{"negative delay", func(c *config.Config) { c.WithBaseDelay(-time.Second) }},
		{"negative rps", func(c *config.Config) { c.WithRequestsPerSecond(-1) }},
		{"small multiplier", func(c *config.Config) { c.WithBackoffMultiplier(0.5) }},
		{"unknown scope", func(c *config.Config) { c.WithOriginMode("galaxy") }},
		{"empty output", func(c *config.Config) { c.WithOutputPath("") }},
		{"zero body cap", func(c *config.Config) { c.WithMaxBodyBytes(0) }},
		{"non http seed", func(c *config.Config) { c.WithSeedURL(url.URL{Scheme: "ftp", Host: "a.com"}) }},
		{"seed without host", func(c *config.Config) { c.WithSeedURL(url.URL{Scheme: "https", Path: "/x"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := config.WithDefault(seed(t))
			tt.apply(builder)
			_, err := builder.Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestBuild_DryRunAllowsEmptyOutput(t *testing.T) {
	_, err := config.WithDefault(seed(t)).WithOutputPath("").WithDryRun(true).Build()
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.WithDefault(seed(t)).Build()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	assert.ErrorIs(t, config.Config{}.Validate(), config.ErrInvalidConfig)
}

func TestParseSeedURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"https://docs.atlan.com/", false},
		{"  http://localhost:8080/docs  ", false},
		{"", true},
		{"docs.atlan.com", true},
		{"/relative/path", true},
		{"mailto:someone@atlan.com", true},
		{"https://%zz", true},
	}
	for _, tt := range tests {
		_, err := config.ParseSeedURL(tt.raw)
		if tt.wantErr {
			assert.ErrorIs(t, err, config.ErrInvalidConfig, tt.raw)
		} else {
			assert.NoError(t, err, tt.raw)
		}
	}
}

func TestWithConfigFile_JSON(t *testing.T) {
	path := writeFile(t, "crawl.json", `{
		"seedUrl": "https://docs.atlan.com/",
		"scope": "site",
		"maxDepth": 0,
		"maxPages": 25,
		"concurrency": 3,
		"baseDelay": "250ms",
		"jitter": 0,
		"respectRobots": false,
		"backoff": {"initial": "1s", "multiplier": 3, "max": "30s"},
		"timeout": "5s",
		"excludedExtensions": ["pdf", "png"],
		"outputPath": "urls.txt",
		"dbPath": "crawl.db",
		"log": {"level": "debug", "format": "json"}
	}`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, config.OriginSite, cfg.OriginMode())
	assert.Equal(t, 0, cfg.MaxDepth())
	assert.Equal(t, 25, cfg.MaxPages())
	assert.Equal(t, 3, cfg.Concurrency())
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay())
	assert.Equal(t, time.Duration(0), cfg.Jitter())
	assert.False(t, cfg.RespectRobots())
	assert.Equal(t, time.Second, cfg.BackoffInitialDuration())
	assert.Equal(t, 3.0, cfg.BackoffMultiplier())
	assert.Equal(t, 30*time.Second, cfg.BackoffMaxDuration())
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, []string{".pdf", ".png"}, cfg.ExcludedExtensions())
	assert.Equal(t, "urls.txt", cfg.OutputPath())
	assert.Equal(t, "crawl.db", cfg.DBPath())
	assert.Equal(t, "debug", cfg.LogLevel())
	assert.Equal(t, "json", cfg.LogFormat())
}

func TestWithConfigFile_YAML(t *testing.T) {
	path := writeFile(t, "crawl.yaml", `
seedUrl: https://docs.atlan.com/
scope: subdomains
allowedHosts:
  - help.atlan.com
maxPages: 10
timeout: 3s
baseDelay: 2
snapshotDir: snapshots
`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, config.OriginSubdomains, cfg.OriginMode())
	assert.Contains(t, cfg.AllowedHosts(), "help.atlan.com")
	assert.Equal(t, 10, cfg.MaxPages())
	assert.Equal(t, 3*time.Second, cfg.Timeout())
	assert.Equal(t, 2*time.Second, cfg.BaseDelay())
	assert.Equal(t, "snapshots", cfg.SnapshotDir())
	assert.True(t, cfg.RespectRobots())
}

func TestWithConfigFile_Errors(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)

	_, err = config.WithConfigFile(writeFile(t, "crawl.toml", "seedUrl = 'x'"))
	assert.ErrorIs(t, err, config.ErrUnsupportedFormat)

	_, err = config.WithConfigFile(writeFile(t, "broken.json", "{"))
	assert.ErrorIs(t, err, config.ErrConfigParsingFail)

	_, err = config.WithConfigFile(writeFile(t, "bad-duration.yaml", "seedUrl: https://a.com/\ntimeout: soon\n"))
	assert.ErrorIs(t, err, config.ErrConfigParsingFail)

	_, err = config.WithConfigFile(writeFile(t, "noseed.json", `{"maxPages": 3}`))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
