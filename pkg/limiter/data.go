package limiter

import (
	"time"

	"github.com/rohmanhakim/docs-link-crawler/pkg/timeutil"
)

// LimiterParam carries the politeness settings a limiter is built with.
type LimiterParam struct {
	BaseDelay  time.Duration
	Jitter     time.Duration
	RandomSeed int64
	// RequestsPerSecond enables a per-host token bucket when > 0.
	RequestsPerSecond float64
	Backoff           timeutil.BackoffParam
}

// timing-related data used to track when to fetch host during crawling
type hostTiming struct {
	nextSlotAt   time.Time
	backoffDelay time.Duration
	crawlDelay   time.Duration
	backoffCount int
}

func (h hostTiming) CrawlDelay() time.Duration {
	return h.crawlDelay
}

func (h hostTiming) BackoffDelay() time.Duration {
	return h.backoffDelay
}

func (h hostTiming) NextSlotAt() time.Time {
	return h.nextSlotAt
}

func (h hostTiming) BackoffCount() int {
	return h.backoffCount
}
