package metadata_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONRecorder(t *testing.T, level slog.Level) (*metadata.Recorder, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return metadata.NewRecorder(logger, "run-1"), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestRecorder_RecordErrorIsTaggedAndWarn(t *testing.T) {
	rec, buf := newJSONRecorder(t, slog.LevelDebug)

	rec.RecordError(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"fetcher",
		"HtmlFetcher.Fetch",
		metadata.CauseNetworkFailure,
		"timeout",
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, "https://docs.atlan.com/a")},
	)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "run-1", entries[0]["crawl_id"])
	assert.Equal(t, "network_failure", entries[0]["cause"])
	assert.Equal(t, "https://docs.atlan.com/a", entries[0]["url"])
	assert.Equal(t, "fetcher", entries[0]["package"])
}

func TestRecorder_FetchAndSkipAreDebug(t *testing.T) {
	rec, buf := newJSONRecorder(t, slog.LevelInfo)

	rec.RecordFetch("https://docs.atlan.com/", 200, time.Millisecond, "text/html", 0, 0)
	rec.RecordSkip("https://docs.atlan.com/a.pdf", "excluded_extension", 1)

	assert.Empty(t, decodeLines(t, buf))
}

func TestRecorder_FinalStats(t *testing.T) {
	rec, buf := newJSONRecorder(t, slog.LevelInfo)

	rec.RecordFinalCrawlStats(metadata.NewCrawlStats(5, 4, 1, 3, 1500*time.Millisecond))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "crawl finished", entries[0]["msg"])
	assert.EqualValues(t, 5, entries[0]["fetched"])
	assert.EqualValues(t, 4, entries[0]["discovered"])
	assert.EqualValues(t, 1, entries[0]["failed"])
	assert.EqualValues(t, 3, entries[0]["filtered"])
	assert.EqualValues(t, 1500, entries[0]["duration_ms"])
}

func TestRecorder_Artifact(t *testing.T) {
	rec, buf := newJSONRecorder(t, slog.LevelInfo)

	rec.RecordArtifact(metadata.ArtifactURLList, "out/discovered_urls.txt",
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrCount, "3")})

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "url_list", entries[0]["kind"])
	assert.Equal(t, "3", entries[0]["count"])
}

func TestErrorCause_String(t *testing.T) {
	assert.Equal(t, "unknown", metadata.CauseUnknown.String())
	assert.Equal(t, "policy_disallow", metadata.CausePolicyDisallow.String())
	assert.Equal(t, "storage_failure", metadata.CauseStorageFailure.String())
}

func TestNoopSink_SatisfiesInterfaces(t *testing.T) {
	var sink metadata.MetadataSink = &metadata.NoopSink{}
	var finalizer metadata.CrawlFinalizer = &metadata.NoopSink{}

	sink.RecordFetch("u", 200, 0, "", 0, 0)
	finalizer.RecordFinalCrawlStats(metadata.CrawlStats{})
}
