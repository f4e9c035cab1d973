package scheduler

import (
	"net/url"

	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
)

// CrawlingExecution is the outcome of one crawl run.
// Discovered holds successfully fetched pages in visit order.
type CrawlingExecution struct {
	CrawlID    string
	RunID      string
	Discovered []url.URL
	Failures   []FailureRecord
	Stats      metadata.CrawlStats
	OutputPath string
	Cancelled  bool
}

// FailureRecord describes a URL that was visited but not discovered.
type FailureRecord struct {
	URL   url.URL
	Depth int
	Err   error
}

// pageOutcome is what a worker reports back for one frontier token.
type pageOutcome struct {
	fetched     bool
	discovered  bool
	cancelled   bool
	finalURL    url.URL
	httpStatus  int
	contentHash string
	sizeBytes   int64
	body        []byte
	links       []linkRef
	err         error
}

const (
	skipAlreadyVisited    = "already_visited"
	skipRedirectToVisited = "redirect_to_visited"
)

type linkRef struct {
	raw string
	url url.URL
}
