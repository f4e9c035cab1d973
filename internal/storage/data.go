package storage

import "time"

type WriteResult struct {
	urlHash     string // identity (filename without extension), empty for URL lists
	path        string
	contentHash string
	count       int
}

func NewWriteResult(
	urlHash string,
	path string,
	contentHash string,
	count int,
) WriteResult {
	return WriteResult{
		urlHash:     urlHash,
		path:        path,
		contentHash: contentHash,
		count:       count,
	}
}

func (w *WriteResult) URLHash() string {
	return w.urlHash
}

func (w *WriteResult) Path() string {
	return w.path
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}

// Count is the number of records written.
func (w *WriteResult) Count() int {
	return w.count
}

type VisitOutcome string

const (
	OutcomeDiscovered VisitOutcome = "discovered"
	OutcomeFailed     VisitOutcome = "failed"
	OutcomeSkipped    VisitOutcome = "skipped"
)

// VisitRecord is one row of the crawl ledger.
type VisitRecord struct {
	URL         string
	Depth       int
	Outcome     VisitOutcome
	HTTPStatus  int
	ContentHash string
	SizeBytes   int64
	Error       string
	VisitedAt   time.Time
}

// RunSummary is the ledger view of one crawl run.
type RunSummary struct {
	ID         string
	Seed       string
	StartedAt  time.Time
	FinishedAt time.Time
	Discovered int
	Failed     int
}

// snapshotFrontmatter heads every Markdown snapshot.
type snapshotFrontmatter struct {
	Source    string    `yaml:"source"`
	Title     string    `yaml:"title,omitempty"`
	Depth     int       `yaml:"depth"`
	FetchedAt time.Time `yaml:"fetched_at"`
}
