package cmd_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	cmd "github.com/rohmanhakim/docs-link-crawler/internal/cli"
	"github.com/rohmanhakim/docs-link-crawler/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigWithError_FlagsOverrideDefaults(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	cmd.SetSeedURLForTest("https://docs.example.com/guide/")
	cmd.SetOutputPathForTest("urls.txt")
	cmd.SetScopeForTest("subdomains")
	cmd.SetMaxDepthForTest(3)
	cmd.SetMaxPagesForTest(50)
	cmd.SetConcurrencyForTest(4)
	cmd.SetTimeoutForTest(5 * time.Second)
	cmd.SetExcludedExtensionsForTest([]string{"PDF", ".zip"})
	cmd.SetIgnoreRobotsForTest(true)
	cmd.SetDryRunForTest(true)

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)

	seed := cfg.SeedURL()
	assert.Equal(t, "https://docs.example.com/guide/", seed.String())
	assert.Equal(t, "urls.txt", cfg.OutputPath())
	assert.Equal(t, config.OriginSubdomains, cfg.OriginMode())
	assert.Equal(t, 3, cfg.MaxDepth())
	assert.Equal(t, 50, cfg.MaxPages())
	assert.Equal(t, 4, cfg.Concurrency())
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, []string{".pdf", ".zip"}, cfg.ExcludedExtensions())
	assert.False(t, cfg.RespectRobots())
	assert.True(t, cfg.DryRun())
}

func TestInitConfigWithError_Defaults(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	cmd.SetSeedURLForTest("https://docs.example.com")

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)

	assert.Equal(t, "discovered_urls.txt", cfg.OutputPath())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 1, cfg.Concurrency())
	assert.Equal(t, []string{".pdf"}, cfg.ExcludedExtensions())
	assert.True(t, cfg.RespectRobots())
}

func TestInitConfigWithError_MissingSeed(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	_, err := cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestInitConfigWithError_InvalidSeed(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	for _, raw := range []string{"docs.example.com", "ftp://docs.example.com", "http://"} {
		cmd.SetSeedURLForTest(raw)
		_, err := cmd.InitConfigWithError()
		assert.ErrorIs(t, err, config.ErrInvalidConfig, raw)
	}
}

func TestInitConfigWithError_ConfigFileWins(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	path := filepath.Join(t.TempDir(), "crawl.yaml")
	content := "seedUrl: https://docs.example.com/\nmaxPages: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd.SetConfigFileForTest(path)
	cmd.SetSeedURLForTest("https://ignored.example.com/")
	cmd.SetMaxPagesForTest(99)

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)

	seed := cfg.SeedURL()
	assert.Equal(t, "docs.example.com", seed.Host)
	assert.Equal(t, 7, cfg.MaxPages())
}

func TestInitConfigWithError_ConfigFileMissing(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	cmd.SetConfigFileForTest(filepath.Join(t.TempDir(), "missing.json"))

	_, err := cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)
}

func TestExecuteArgs_CrawlsSiteAndWritesList(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	html := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/docs/intro", html(`<a href="/docs/install">install</a><a href="#top">top</a><a href="/manual.pdf">pdf</a>`))
	mux.HandleFunc("/docs/install", html(`<a href="/docs/intro">back</a><a href="https://elsewhere.example.org/">out</a>`))

	output := filepath.Join(t.TempDir(), "urls.txt")
	var stdout, stderr bytes.Buffer
	err := cmd.ExecuteArgs(context.Background(), []string{
		"--seed-url", server.URL + "/docs/intro",
		"--output", output,
		"--base-delay", "1ms",
		"--jitter", "1ms",
		"--log-level", "error",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Equal(t, "Discovered 2 documentation URLs.\n", stdout.String())

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/docs/intro\n"+server.URL+"/docs/install\n", string(content))
}

func TestExecuteArgs_MissingSeedFails(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	var stdout, stderr bytes.Buffer
	err := cmd.ExecuteArgs(context.Background(), []string{}, &stdout, &stderr)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Empty(t, stdout.String())
}

func TestExecuteArgs_Version(t *testing.T) {
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	var stdout, stderr bytes.Buffer
	err := cmd.ExecuteArgs(context.Background(), []string{"version"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "docs-link-crawler")
}
