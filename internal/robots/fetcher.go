package robots

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohmanhakim/docs-link-crawler/internal/robots/cache"
)

// maxRobotsBytes bounds how much of a robots.txt body is read.
const maxRobotsBytes = 500 * 1024

// RobotsFetcher downloads robots.txt once per scheme+host and caches the
// raw result. Parsing and permission decisions belong to Robot.
type RobotsFetcher struct {
	httpClient *http.Client
	userAgent  string
	cache      cache.Cache
}

// NewRobotsFetcher creates a RobotsFetcher with a default HTTP client.
// A nil cache disables caching.
func NewRobotsFetcher(userAgent string, timeout time.Duration, cache cache.Cache) *RobotsFetcher {
	return NewRobotsFetcherWithClient(userAgent, &http.Client{Timeout: timeout}, cache)
}

func NewRobotsFetcherWithClient(userAgent string, httpClient *http.Client, cache cache.Cache) *RobotsFetcher {
	return &RobotsFetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		cache:      cache,
	}
}

func cacheKey(scheme, host string) string {
	return fmt.Sprintf("%s://%s/robots.txt", scheme, host)
}

func serializeResult(result RobotsFetchResult) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func deserializeResult(data string) (RobotsFetchResult, error) {
	var result RobotsFetchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return RobotsFetchResult{}, err
	}
	return result, nil
}

// Fetch retrieves robots.txt for scheme://host.
//
// 2xx bodies and 4xx statuses are cached as-is. Transport failures, 429
// and 5xx are cached as a fail-open result and reported once through the
// returned error; later calls for the same host hit the cache silently.
// Cancellation is never cached.
func (f *RobotsFetcher) Fetch(ctx context.Context, scheme, host string) (RobotsFetchResult, *RobotsError) {
	key := cacheKey(scheme, host)
	if f.cache != nil {
		if cachedData, found := f.cache.Get(key); found {
			if result, err := deserializeResult(cachedData); err == nil {
				return result, nil
			}
		}
	}

	result, robotsErr := f.fetch(ctx, key)
	if robotsErr != nil && robotsErr.Cause == ErrCauseCancelled {
		return RobotsFetchResult{}, robotsErr
	}
	if robotsErr != nil {
		result = RobotsFetchResult{
			SourceURL:  key,
			HTTPStatus: result.HTTPStatus,
			FetchedAt:  time.Now(),
			FailOpen:   true,
		}
	}

	if f.cache != nil {
		if cachedData, err := serializeResult(result); err == nil {
			f.cache.Put(key, cachedData)
		}
	}
	return result, robotsErr
}

func (f *RobotsFetcher) fetch(ctx context.Context, robotsURL string) (RobotsFetchResult, *RobotsError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return RobotsFetchResult{}, &RobotsError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCausePreFetchFailure,
		}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,text/html,*/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return RobotsFetchResult{}, &RobotsError{
				Message:   ctx.Err().Error(),
				Retryable: false,
				Cause:     ErrCauseCancelled,
			}
		}
		return RobotsFetchResult{}, &RobotsError{
			Message:   fmt.Sprintf("failed to fetch %s: %v", robotsURL, err),
			Retryable: true,
			Cause:     ErrCauseHttpFetchFailure,
		}
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		content, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
		if err != nil {
			return RobotsFetchResult{HTTPStatus: status}, &RobotsError{
				Message:   fmt.Sprintf("failed to read robots.txt body: %v", err),
				Retryable: true,
				Cause:     ErrCauseHttpFetchFailure,
			}
		}
		return RobotsFetchResult{
			SourceURL:  robotsURL,
			HTTPStatus: status,
			Body:       string(content),
			FetchedAt:  time.Now(),
		}, nil

	case status == http.StatusTooManyRequests:
		return RobotsFetchResult{HTTPStatus: status}, &RobotsError{
			Message:   fmt.Sprintf("rate limited (429) when fetching %s", robotsURL),
			Retryable: true,
			Cause:     ErrCauseHttpTooManyRequests,
		}

	case status >= 400 && status < 500:
		// no robots.txt, no restrictions
		return RobotsFetchResult{
			SourceURL:  robotsURL,
			HTTPStatus: status,
			FetchedAt:  time.Now(),
		}, nil

	case status >= 500:
		return RobotsFetchResult{HTTPStatus: status}, &RobotsError{
			Message:   fmt.Sprintf("server error (%d) when fetching %s", status, robotsURL),
			Retryable: true,
			Cause:     ErrCauseHttpServerError,
		}

	default:
		return RobotsFetchResult{HTTPStatus: status}, &RobotsError{
			Message:   fmt.Sprintf("unexpected status code %d for %s", status, robotsURL),
			Retryable: true,
			Cause:     ErrCauseHttpUnexpectedStatus,
		}
	}
}

func (f *RobotsFetcher) UserAgent() string {
	return f.userAgent
}
