package metadata

import (
	"log/slog"
	"time"
)

/*
Metadata is write-only.
No component may read metadata to influence crawl decisions.

Determinism guarantees:
 - Metadata does not affect control flow
 - Errors do not reorder the frontier
 - Jitter is seed-controlled
*/

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		crawlDepth int,
	)

	RecordSkip(skipUrl string, reason string, crawlDepth int)

	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type CrawlFinalizer interface {
	// RecordFinalCrawlStats MUST be called exactly once per crawl execution,
	// after the crawl has terminated.
	RecordFinalCrawlStats(stats CrawlStats)
}

/*
Recorder turns crawl events into structured log records.
Every record carries the crawl id so interleaved runs stay separable.
Events are emitted synchronously in the order a single goroutine reports them;
no global ordering across workers is guaranteed.
*/
type Recorder struct {
	logger  *slog.Logger
	crawlID string
}

func NewRecorder(logger *slog.Logger, crawlID string) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger:  logger.With(slog.String("crawl_id", crawlID)),
		crawlID: crawlID,
	}
}

func (r *Recorder) CrawlID() string {
	return r.crawlID
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	args := []any{
		slog.Time("observed_at", observedAt),
		slog.String("package", packageName),
		slog.String("action", action),
		slog.String("cause", cause.String()),
		slog.String("error", details),
	}
	r.logger.Warn("crawl error", append(args, toArgs(attrs)...)...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
	r.logger.Debug("fetch",
		slog.String("url", fetchUrl),
		slog.Int("http_status", httpStatus),
		slog.Duration("duration", duration),
		slog.String("content_type", contentType),
		slog.Int("retry_count", retryCount),
		slog.Int("depth", crawlDepth),
	)
}

func (r *Recorder) RecordSkip(skipUrl string, reason string, crawlDepth int) {
	r.logger.Debug("skip",
		slog.String("url", skipUrl),
		slog.String("reason", reason),
		slog.Int("depth", crawlDepth),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := []any{
		slog.String("kind", string(kind)),
		slog.String("path", path),
	}
	r.logger.Info("artifact written", append(args, toArgs(attrs)...)...)
}

func (r *Recorder) RecordFinalCrawlStats(stats CrawlStats) {
	r.logger.Info("crawl finished",
		slog.Int("fetched", stats.TotalFetched()),
		slog.Int("discovered", stats.TotalDiscovered()),
		slog.Int("failed", stats.TotalErrors()),
		slog.Int("filtered", stats.TotalFiltered()),
		slog.Int64("duration_ms", stats.DurationMs()),
	)
}

func toArgs(attrs []Attribute) []any {
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, slog.String(string(a.Key), a.Value))
	}
	return args
}

// NoopSink implements MetadataSink and CrawlFinalizer but does nothing.
// The scheduler (or a test) decides whether to inject a Recorder or a NoopSink.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
	crawlDepth int,
) {
}

func (n *NoopSink) RecordSkip(skipUrl string, reason string, crawlDepth int) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalCrawlStats(stats CrawlStats) {}
