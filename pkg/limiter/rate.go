package limiter

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/pkg/timeutil"
	"golang.org/x/time/rate"
)

// RateLimiter
// Specialized component to manage rate limiting during crawling
// Responsibilities:
// - Bookkeep each hostname's next allowed fetch slot
// - Compute the final delay for each hostname given various factors
// - Make sure the crawling process respect the server's policy
type RateLimiter interface {
	SetCrawlDelay(host string, delay time.Duration)
	Backoff(host string)
	ResetBackoff(host string)
	ResolveDelay(host string) time.Duration
	Wait(ctx context.Context, host string) error
}

type ConcurrentRateLimiter struct {
	mu          sync.Mutex
	rngMu       sync.Mutex
	param       LimiterParam
	hostTimings map[string]hostTiming
	buckets     map[string]*rate.Limiter
	rng         *rand.Rand
	now         func() time.Time
}

func NewConcurrentRateLimiter(param LimiterParam) *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		param:       param,
		hostTimings: make(map[string]hostTiming),
		buckets:     make(map[string]*rate.Limiter),
		rng:         rand.New(rand.NewSource(param.RandomSeed)),
		now:         time.Now,
	}
}

// Set delay to given host, separated from global base delay
func (r *ConcurrentRateLimiter) SetCrawlDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.crawlDelay = delay
	r.hostTimings[host] = timing
}

// Backoff triggers exponential backoff for the given host.
// It increments the backoff counter and recomputes the delay.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.backoffCount++

	r.rngMu.Lock()
	timing.backoffDelay = timeutil.ExponentialBackoffDelay(
		timing.backoffCount,
		r.param.Jitter,
		r.rng,
		r.param.Backoff,
	)
	r.rngMu.Unlock()

	r.hostTimings[host] = timing
}

// ResetBackoff clears backoff state after a successful request.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing, exists := r.hostTimings[host]
	if !exists {
		return
	}
	timing.backoffCount = 0
	timing.backoffDelay = 0
	r.hostTimings[host] = timing
}

// ResolveDelay reports how long a request to host would have to wait now,
// without reserving anything.
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	r.mu.Lock()
	timing, exists := r.hostTimings[host]
	r.mu.Unlock()

	if !exists || timing.nextSlotAt.IsZero() {
		return 0
	}
	if remaining := timing.nextSlotAt.Sub(r.now()); remaining > 0 {
		return remaining
	}
	return 0
}

// Wait blocks until host may be fetched again, then reserves the
// following slot so concurrent callers queue up behind each other.
// FinalDelay = max(BaseDelay, crawlDelay, BackoffDelay) + Jitter
func (r *ConcurrentRateLimiter) Wait(ctx context.Context, host string) error {
	r.mu.Lock()
	timing := r.hostTimings[host]
	now := r.now()

	start := now
	if timing.nextSlotAt.After(now) {
		start = timing.nextSlotAt
	}

	gap := timeutil.MaxDuration([]time.Duration{
		r.param.BaseDelay,
		timing.crawlDelay,
		timing.backoffDelay,
	})
	r.rngMu.Lock()
	gap += timeutil.ComputeJitter(r.param.Jitter, r.rng)
	r.rngMu.Unlock()

	timing.nextSlotAt = start.Add(gap)
	r.hostTimings[host] = timing
	bucket := r.bucketFor(host)
	r.mu.Unlock()

	if err := timeutil.SleepContext(ctx, start.Sub(now)); err != nil {
		return err
	}
	if bucket != nil {
		return bucket.Wait(ctx)
	}
	return nil
}

// bucketFor returns the token bucket for host, nil when disabled.
// Caller must hold r.mu.
func (r *ConcurrentRateLimiter) bucketFor(host string) *rate.Limiter {
	if r.param.RequestsPerSecond <= 0 {
		return nil
	}
	bucket, ok := r.buckets[host]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(r.param.RequestsPerSecond), 1)
		r.buckets[host] = bucket
	}
	return bucket
}

// HostTimings returns a snapshot of per-host state.
func (r *ConcurrentRateLimiter) HostTimings() map[string]hostTiming {
	r.mu.Lock()
	defer r.mu.Unlock()

	copyMap := make(map[string]hostTiming, len(r.hostTimings))
	for k, v := range r.hostTimings {
		copyMap[k] = v
	}
	return copyMap
}
