package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rohmanhakim/docs-link-crawler/internal/config"
	"github.com/rohmanhakim/docs-link-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-link-crawler/internal/fetcher"
	"github.com/rohmanhakim/docs-link-crawler/internal/frontier"
	"github.com/rohmanhakim/docs-link-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/internal/robots"
	"github.com/rohmanhakim/docs-link-crawler/internal/robots/cache"
	"github.com/rohmanhakim/docs-link-crawler/internal/scope"
	"github.com/rohmanhakim/docs-link-crawler/internal/storage"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-link-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-link-crawler/pkg/limiter"
	"github.com/rohmanhakim/docs-link-crawler/pkg/retry"
	"github.com/rohmanhakim/docs-link-crawler/pkg/timeutil"
	"github.com/rohmanhakim/docs-link-crawler/pkg/urlutil"
)

/*
 Scheduler is the sole control-plane authority of the crawl.

 Admission guarantees:
 - Only the scheduler decides whether a URL enters the frontier.
 - Exclusion filters are checked before scope, and both before the
   visited set; a URL that fails any of them is never fetched.
 - Every dequeued URL is marked visited before its fetch, whatever
   the outcome, so no URL is fetched twice in a run.
 - A redirect is not followed into a page already visited, and its
   final target counts as visited once the page is merged.
 - Pipeline stages detect and classify failure but never decide
   retry, continuation or abortion.

 Concurrency:
 - Up to N consecutive frontier tokens are fetched in parallel.
 - Their links are merged back on the calling goroutine in token
   order, so the frontier sees exactly the sequence a single worker
   would produce. Frontier and visited set are never shared.
 - A page an earlier page of the same batch redirected to is dropped
   at merge time, as a single worker would never have fetched it.

 Metadata emission is observational only and MUST NOT influence
 scheduling, retries, or crawl termination.
*/

type robotsDecider interface {
	Decide(ctx context.Context, u url.URL) (robots.Decision, error)
}

type linkExtractor interface {
	Extract(pageURL url.URL, body []byte) (extractor.ExtractionResult, failure.ClassifiedError)
}

type Scheduler struct {
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	crawlID        string
	transport      http.RoundTripper
}

// NewScheduler creates a Scheduler that reports through a structured
// log recorder with a fresh crawl id.
func NewScheduler(logger *slog.Logger) Scheduler {
	recorder := metadata.NewRecorder(logger, uuid.NewString())
	return Scheduler{
		metadataSink:   recorder,
		crawlFinalizer: recorder,
		crawlID:        recorder.CrawlID(),
	}
}

// NewSchedulerWithDeps creates a Scheduler with injected metadata
// dependencies for testing.
func NewSchedulerWithDeps(
	crawlFinalizer metadata.CrawlFinalizer,
	metadataSink metadata.MetadataSink,
) Scheduler {
	return Scheduler{
		metadataSink:   metadataSink,
		crawlFinalizer: crawlFinalizer,
		crawlID:        uuid.NewString(),
	}
}

// WithTransport returns a copy of s whose page and robots requests use rt.
func (s Scheduler) WithTransport(rt http.RoundTripper) Scheduler {
	s.transport = rt
	return s
}

func (s Scheduler) CrawlID() string {
	return s.crawlID
}

// crawlRun owns all mutable state of one ExecuteCrawling call.
type crawlRun struct {
	cfg          config.Config
	metadataSink metadata.MetadataSink
	scope        scope.Scope
	frontier     *frontier.Frontier
	visited      frontier.Set[string]
	// claimed holds keys settled in merge order, redirect targets included.
	// Workers read it while no merge is running.
	claimed frontier.Set[string]
	fetcher      fetcher.Fetcher
	retryParam   retry.RetryParam
	rateLimiter  limiter.RateLimiter
	robot        robotsDecider
	extractor    linkExtractor
	converter    mdconvert.Converter
	snapshots    storage.SnapshotWriter
	ledger       storage.Ledger
	runID        string

	discovered []url.URL
	failures   []FailureRecord
	fetched    int
	filtered   int
	visits     int
}

func (s Scheduler) newCrawlRun(ctx context.Context, cfg config.Config) (*crawlRun, error) {
	crawlScope := scope.NewScope(cfg)

	htmlFetcher := fetcher.NewHtmlFetcher(s.metadataSink, fetcher.Options{
		Timeout:      cfg.Timeout(),
		MaxBodyBytes: cfg.MaxBodyBytes(),
		AllowRedirect: func(target url.URL) bool {
			_, ok := crawlScope.Admit("", target)
			return ok
		},
		Transport: s.transport,
	})

	backoff := timeutil.NewBackoffParam(
		cfg.BackoffInitialDuration(),
		cfg.BackoffMultiplier(),
		cfg.BackoffMaxDuration(),
	)

	linkExtractor := extractor.NewLinkExtractor(s.metadataSink)

	run := &crawlRun{
		cfg:          cfg,
		metadataSink: s.metadataSink,
		scope:        crawlScope,
		frontier:     frontier.NewCrawlFrontier(),
		visited:      frontier.NewSet[string](),
		claimed:      frontier.NewSet[string](),
		fetcher:      &htmlFetcher,
		retryParam:   retry.NewRetryParam(cfg.Jitter(), cfg.RandomSeed(), cfg.MaxAttempt(), backoff),
		rateLimiter: limiter.NewConcurrentRateLimiter(limiter.LimiterParam{
			BaseDelay:         cfg.BaseDelay(),
			Jitter:            cfg.Jitter(),
			RandomSeed:        cfg.RandomSeed(),
			RequestsPerSecond: cfg.RequestsPerSecond(),
			Backoff:           backoff,
		}),
		extractor: &linkExtractor,
		robot:     robots.DisabledRobot{},
		ledger:    storage.NoopLedger{},
	}

	if cfg.RespectRobots() {
		robotsFetcher := robots.NewRobotsFetcherWithClient(
			cfg.UserAgent(),
			&http.Client{Timeout: cfg.Timeout(), Transport: s.transport},
			cache.NewMemoryCache(),
		)
		robot := robots.NewRobot(s.metadataSink, robotsFetcher)
		run.robot = &robot
	}

	if cfg.SnapshotDir() != "" {
		snapshotSink := storage.NewSnapshotSink(s.metadataSink)
		run.converter = mdconvert.NewMarkdownConverter(s.metadataSink)
		run.snapshots = &snapshotSink
	}

	if cfg.DBPath() != "" {
		ledger, err := storage.OpenSQLiteLedger(ctx, cfg.DBPath())
		if err != nil {
			return nil, err
		}
		run.ledger = ledger
		s.metadataSink.RecordArtifact(
			metadata.ArtifactLedger,
			cfg.DBPath(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrWritePath, cfg.DBPath())},
		)
	}

	seed := cfg.SeedURL()
	runID, err := run.ledger.BeginRun(ctx, seed.String(), time.Now())
	if err != nil {
		_ = run.ledger.Close()
		return nil, err
	}
	run.runID = runID

	return run, nil
}

// ExecuteCrawling runs one breadth-first crawl from cfg's seed.
//
// On cancellation the partial result is still persisted and returned
// together with ctx.Err(). The only other errors are fatal ones: the
// ledger cannot be opened or the URL list cannot be written. A config
// that did not come out of config.Build is rejected before any request.
func (s Scheduler) ExecuteCrawling(ctx context.Context, cfg config.Config) (CrawlingExecution, error) {
	crawlStartTime := time.Now()
	execution := CrawlingExecution{CrawlID: s.crawlID}

	if err := cfg.Validate(); err != nil {
		return execution, err
	}

	// Final stats are recorded exactly once, whatever the outcome
	defer func() {
		s.crawlFinalizer.RecordFinalCrawlStats(execution.Stats)
	}()

	run, err := s.newCrawlRun(ctx, cfg)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"Scheduler.ExecuteCrawling",
			metadata.CauseStorageFailure,
			err.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrWritePath, cfg.DBPath())},
		)
		execution.Stats = metadata.NewCrawlStats(0, 0, 0, 0, time.Since(crawlStartTime))
		return execution, err
	}
	defer run.ledger.Close()

	run.crawl(ctx)

	cancelled := ctx.Err() != nil
	execution.RunID = run.runID
	execution.Discovered = run.discovered
	execution.Failures = run.failures
	execution.Cancelled = cancelled
	execution.Stats = metadata.NewCrawlStats(
		run.fetched,
		len(run.discovered),
		len(run.failures),
		run.filtered,
		time.Since(crawlStartTime),
	)

	// Persisting must not be interrupted by the cancellation that ended the crawl
	persistCtx := context.WithoutCancel(ctx)
	if err := run.ledger.FinishRun(persistCtx, run.runID, time.Now(), len(run.discovered), len(run.failures)); err != nil {
		run.recordLedgerError(err)
	}

	if !cfg.DryRun() {
		urlList := storage.NewURLListSink(s.metadataSink)
		if _, err := urlList.Write(cfg.OutputPath(), run.discovered); err != nil {
			return execution, err
		}
		execution.OutputPath = cfg.OutputPath()
	}

	if cancelled {
		return execution, ctx.Err()
	}
	return execution, nil
}

// crawl drains the frontier until it is empty, a bound is hit, or ctx ends.
func (r *crawlRun) crawl(ctx context.Context) {
	seed := urlutil.Canonicalize(r.cfg.SeedURL())
	r.frontier.Submit(frontier.NewCrawlAdmissionCandidate(
		seed,
		frontier.SourceSeed,
		frontier.NewDiscoveryMetadata(0, ""),
	))

	concurrency := max(r.cfg.Concurrency(), 1)

	for ctx.Err() == nil {
		batchSize := concurrency
		if maxPages := r.cfg.MaxPages(); maxPages > 0 {
			remaining := maxPages - r.visits
			if remaining <= 0 {
				return
			}
			batchSize = min(batchSize, remaining)
		}

		batch := r.frontier.DequeueBatch(batchSize)
		if len(batch) == 0 {
			return
		}

		work := r.admitBatch(batch)
		outcomes := make([]pageOutcome, len(work))
		keys := make([]string, len(work))
		for i, token := range work {
			keys[i] = urlutil.Key(token.URL())
		}

		var g errgroup.Group
		g.SetLimit(concurrency)
		for i, token := range work {
			g.Go(func() error {
				outcomes[i] = r.visit(ctx, token, r.redirectVisited(keys[:i]))
				return nil
			})
		}
		_ = g.Wait()

		for i, token := range work {
			r.merge(token, outcomes[i])
		}
	}
}

// admitBatch applies the dequeue-time checks and marks survivors visited.
func (r *crawlRun) admitBatch(batch []frontier.CrawlToken) []frontier.CrawlToken {
	work := make([]frontier.CrawlToken, 0, len(batch))
	for _, token := range batch {
		u := token.URL()
		if reason, excluded := r.scope.Excluded("", u); excluded {
			r.filtered++
			r.metadataSink.RecordSkip(u.String(), string(reason), token.Depth())
			continue
		}
		if !r.visited.AddIfAbsent(urlutil.Key(u)) {
			continue
		}
		r.visits++
		work = append(work, token)
	}
	return work
}

// redirectVisited reports redirect targets a sequential crawl would
// already have visited: pages settled in earlier batches and pages
// before this one in the current batch.
func (r *crawlRun) redirectVisited(earlier []string) func(target url.URL) bool {
	return func(target url.URL) bool {
		key := urlutil.Key(target)
		return r.claimed.Contains(key) || slices.Contains(earlier, key)
	}
}

// visit runs robots, politeness, fetch and extraction for one token.
// It is called from worker goroutines and only reads run state.
func (r *crawlRun) visit(ctx context.Context, token frontier.CrawlToken, redirectVisited func(url.URL) bool) pageOutcome {
	u := token.URL()

	decision, err := r.robot.Decide(ctx, u)
	if err != nil {
		return pageOutcome{cancelled: true, err: err}
	}
	if decision.CrawlDelay != nil {
		r.rateLimiter.SetCrawlDelay(u.Host, *decision.CrawlDelay)
	}
	if !decision.Allowed {
		return pageOutcome{err: &SchedulerError{
			Message:   u.String(),
			Retryable: false,
			Cause:     ErrCauseRobotsDisallowed,
		}}
	}

	if err := r.rateLimiter.Wait(ctx, u.Host); err != nil {
		return pageOutcome{cancelled: true, err: err}
	}

	fetchParam := fetcher.NewFetchParam(u, r.cfg.UserAgent()).WithVisitedCheck(redirectVisited)
	result, fetchErr := r.fetcher.Fetch(ctx, token.Depth(), fetchParam, r.retryParam)
	if fetchErr != nil {
		outcome := pageOutcome{fetched: true, err: fetchErr}
		if isCancellation(fetchErr) {
			outcome.cancelled = true
			return outcome
		}
		var fe *fetcher.FetchError
		if errors.As(fetchErr, &fe) {
			outcome.httpStatus = fe.StatusCode
		}
		if fetcher.IsThrottled(fetchErr) {
			r.rateLimiter.Backoff(u.Host)
		}
		return outcome
	}
	r.rateLimiter.ResetBackoff(u.Host)

	outcome := pageOutcome{
		fetched:    true,
		discovered: true,
		finalURL:   result.FinalURL(),
		httpStatus: result.Code(),
		sizeBytes:  int64(result.SizeByte()),
		body:       result.Body(),
	}
	if hash, err := hashutil.HashBytes(result.Body(), hashutil.HashAlgoBLAKE3); err == nil {
		outcome.contentHash = hash
	}

	// Unparseable markup yields zero links; the page is still discovered
	if extraction, err := r.extractor.Extract(result.FinalURL(), result.Body()); err == nil {
		outcome.links = make([]linkRef, 0, len(extraction.Links))
		for _, link := range extraction.Links {
			outcome.links = append(outcome.links, linkRef{raw: link.Raw, url: link.URL})
		}
	}

	return outcome
}

// isCancellation reports whether a fetch ended because ctx was cancelled,
// either mid-request or while waiting out a retry backoff.
func isCancellation(err error) bool {
	var retryErr *retry.RetryError
	if errors.As(err, &retryErr) && retryErr.Cause == retry.ErrCancelled {
		return true
	}
	var fetchErr *fetcher.FetchError
	return errors.As(err, &fetchErr) && fetchErr.Cause == fetcher.ErrCauseCancelled
}

func (r *crawlRun) writeSnapshot(token frontier.CrawlToken, outcome pageOutcome) {
	if r.snapshots == nil {
		return
	}
	u := token.URL()
	doc, err := r.converter.Convert(outcome.body, outcome.finalURL)
	if err != nil {
		return
	}
	// failures are recorded by the sink and never affect the crawl
	_, _ = r.snapshots.Write(r.cfg.SnapshotDir(), urlutil.Key(u), token.Depth(), doc, hashutil.HashAlgoBLAKE3)
}

// merge folds one outcome into run state. Called only from the crawl loop.
func (r *crawlRun) merge(token frontier.CrawlToken, outcome pageOutcome) {
	u := token.URL()
	depth := token.Depth()

	if outcome.fetched {
		r.fetched++
	}

	if outcome.cancelled {
		return
	}

	if !r.claimed.AddIfAbsent(urlutil.Key(u)) {
		// an earlier page of this batch redirected here
		r.visits--
		r.metadataSink.RecordSkip(u.String(), skipAlreadyVisited, depth)
		return
	}

	if fetcher.IsRedirectToVisited(outcome.err) {
		r.skipRedirectToVisited(u, depth, outcome)
		return
	}

	if !outcome.discovered {
		r.failures = append(r.failures, FailureRecord{URL: u, Depth: depth, Err: outcome.err})
		var schedErr *SchedulerError
		if errors.As(outcome.err, &schedErr) && schedErr.Cause == ErrCauseRobotsDisallowed {
			r.metadataSink.RecordError(
				time.Now(),
				"scheduler",
				"crawlRun.visit",
				metadata.CausePolicyDisallow,
				outcome.err.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrURL, u.String()),
					metadata.NewAttr(metadata.AttrReason, string(robots.DisallowedByRobots)),
				},
			)
		}
		r.recordVisit(u, depth, storage.OutcomeFailed, outcome)
		return
	}

	// a redirect target counts as visited so it is not fetched again
	final := urlutil.Canonicalize(outcome.finalURL)
	if finalKey := urlutil.Key(final); final.Host != "" && finalKey != urlutil.Key(u) {
		if !r.claimed.AddIfAbsent(finalKey) {
			r.skipRedirectToVisited(u, depth, outcome)
			return
		}
		r.visited.Add(finalKey)
	}

	r.discovered = append(r.discovered, u)
	r.recordVisit(u, depth, storage.OutcomeDiscovered, outcome)
	r.writeSnapshot(token, outcome)

	childDepth := depth + 1
	for _, link := range outcome.links {
		if reason, ok := r.scope.Admit(link.raw, link.url); !ok {
			r.filtered++
			r.metadataSink.RecordSkip(link.url.String(), string(reason), childDepth)
			continue
		}
		if maxDepth := r.cfg.MaxDepth(); maxDepth > 0 && childDepth > maxDepth {
			r.metadataSink.RecordSkip(link.url.String(), "max_depth", childDepth)
			continue
		}
		if r.visited.Contains(urlutil.Key(link.url)) {
			continue
		}
		r.frontier.Submit(frontier.NewCrawlAdmissionCandidate(
			link.url,
			frontier.SourceCrawl,
			frontier.NewDiscoveryMetadata(childDepth, u.String()),
		))
	}
}

// skipRedirectToVisited drops a page that resolved to one already visited.
func (r *crawlRun) skipRedirectToVisited(u url.URL, depth int, outcome pageOutcome) {
	r.metadataSink.RecordSkip(u.String(), skipRedirectToVisited, depth)
	outcome.err = nil
	r.recordVisit(u, depth, storage.OutcomeSkipped, outcome)
}

func (r *crawlRun) recordVisit(u url.URL, depth int, result storage.VisitOutcome, outcome pageOutcome) {
	visit := storage.VisitRecord{
		URL:         u.String(),
		Depth:       depth,
		Outcome:     result,
		HTTPStatus:  outcome.httpStatus,
		ContentHash: outcome.contentHash,
		SizeBytes:   outcome.sizeBytes,
		VisitedAt:   time.Now(),
	}
	if outcome.err != nil {
		visit.Error = outcome.err.Error()
	}
	if err := r.ledger.RecordVisit(context.Background(), r.runID, visit); err != nil {
		r.recordLedgerError(err)
	}
}

func (r *crawlRun) recordLedgerError(err error) {
	r.metadataSink.RecordError(
		time.Now(),
		"scheduler",
		"crawlRun.ledger",
		metadata.CauseStorageFailure,
		(&SchedulerError{Message: err.Error(), Retryable: true, Cause: ErrCauseLedgerFailure}).Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrWritePath, r.cfg.DBPath())},
	)
}
