package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
	"github.com/rohmanhakim/docs-link-crawler/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Handle redirects safely
- Classify responses

Fetch Semantics

- Only successful HTML responses are returned
- Non-HTML content is a failure
- Redirect chains are bounded and must stay in scope
- All fetches are reported to the metadata sink

The fetcher never parses content; it only returns bytes and metadata.
*/

const DefaultMaxRedirects = 10

type Options struct {
	// Timeout bounds a single attempt, body read included.
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRedirects int
	// AllowRedirect decides whether a redirect target may be followed.
	// nil allows every target.
	AllowRedirect func(target url.URL) bool
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

type HtmlFetcher struct {
	metadataSink  metadata.MetadataSink
	httpClient    *http.Client
	timeout       time.Duration
	maxBodyBytes  int64
	maxRedirects  int
	allowRedirect func(target url.URL) bool
}

// redirectError is returned from CheckRedirect and surfaces wrapped in *url.Error.
type redirectError struct {
	cause  FetchErrorCause
	target string
}

func (r *redirectError) Error() string {
	return fmt.Sprintf("%s: %s", r.cause, r.target)
}

func NewHtmlFetcher(
	metadataSink metadata.MetadataSink,
	opts Options,
) HtmlFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	h := HtmlFetcher{
		metadataSink:  metadataSink,
		timeout:       opts.Timeout,
		maxBodyBytes:  opts.MaxBodyBytes,
		maxRedirects:  opts.MaxRedirects,
		allowRedirect: opts.AllowRedirect,
	}
	h.httpClient = &http.Client{
		Transport:     opts.Transport,
		CheckRedirect: h.checkRedirect(nil),
	}
	return h
}

func (h *HtmlFetcher) checkRedirect(visited func(target url.URL) bool) func(*http.Request, []*http.Request) error {
	maxRedirects := h.maxRedirects
	allowRedirect := h.allowRedirect
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return &redirectError{cause: ErrCauseRedirectLimitExceeded, target: req.URL.String()}
		}
		if allowRedirect != nil && !allowRedirect(*req.URL) {
			return &redirectError{cause: ErrCauseRedirectOutOfScope, target: req.URL.String()}
		}
		if visited != nil && visited(*req.URL) {
			return &redirectError{cause: ErrCauseRedirectToVisited, target: req.URL.String()}
		}
		return nil
	}
}

// clientFor returns the shared client, or a copy of it carrying the
// per-fetch visited check.
func (h *HtmlFetcher) clientFor(fetchParam FetchParam) *http.Client {
	if fetchParam.redirectVisited == nil {
		return h.httpClient
	}
	client := *h.httpClient
	client.CheckRedirect = h.checkRedirect(fetchParam.redirectVisited)
	return &client
}

func (h *HtmlFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HtmlFetcher.Fetch"
	startTime := time.Now()

	attempts := 0
	result, err := retry.Retry(ctx, retryParam, func(attempt int) (FetchResult, failure.ClassifiedError) {
		attempts = attempt
		return h.performFetch(ctx, fetchParam)
	})

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	} else {
		result.attempts = attempts
		statusCode = result.Code()
		contentType = result.ContentType()
	}

	h.metadataSink.RecordFetch(
		fetchParam.fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		max(attempts-1, 0),
		crawlDepth,
	)

	if err != nil {
		// a redirect into an already visited page is a skip, not a failure
		if !IsRedirectToVisited(err) {
			h.recordError(callerMethod, fetchParam.fetchUrl, err)
		}
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HtmlFetcher) recordError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		cause = mapFetchErrorToMetadataCause(fetchErr)
	}
	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
		},
	)
}

func (h *HtmlFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	fetchUrl := fetchParam.fetchUrl
	attemptCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	for key, value := range requestHeaders(fetchParam.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := h.clientFor(fetchParam).Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if fetchErr := classifyStatus(resp.StatusCode); fetchErr != nil {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return FetchResult{}, fetchErr
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("non-HTML content type: %q", contentType),
			Retryable:  false,
			Cause:      ErrCauseContentTypeInvalid,
			StatusCode: resp.StatusCode,
		}
	}

	body, fetchErr := h.readBody(ctx, resp)
	if fetchErr != nil {
		return FetchResult{}, fetchErr
	}

	finalURL := fetchUrl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = *resp.Request.URL
	}

	return FetchResult{
		url:      fetchUrl,
		finalURL: finalURL,
		body:     body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			contentType:         contentType,
			transferredSizeByte: uint64(len(body)),
		},
	}, nil
}

func classifyTransportError(parent context.Context, err error) *FetchError {
	var redirectErr *redirectError
	if errors.As(err, &redirectErr) {
		return &FetchError{
			Message:   redirectErr.Error(),
			Retryable: false,
			Cause:     redirectErr.cause,
		}
	}

	if parent.Err() != nil {
		return &FetchError{
			Message:   fmt.Sprintf("request cancelled: %v", parent.Err()),
			Retryable: false,
			Cause:     ErrCauseCancelled,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{
			Message:   fmt.Sprintf("request timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}

	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}

func classifyStatus(statusCode int) *FetchError {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil

	case statusCode >= 500:
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", statusCode),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: statusCode,
		}

	case statusCode == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: statusCode,
		}

	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &FetchError{
			Message:    fmt.Sprintf("access denied (%d)", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestPageForbidden,
			StatusCode: statusCode,
		}

	case statusCode >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestClientError,
			StatusCode: statusCode,
		}

	case statusCode >= 300:
		// the client follows redirects, so a 3xx here has no usable Location
		return &FetchError{
			Message:    fmt.Sprintf("redirect error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRedirectLimitExceeded,
			StatusCode: statusCode,
		}

	default:
		return &FetchError{
			Message:    fmt.Sprintf("unexpected status: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseUnexpectedStatus,
			StatusCode: statusCode,
		}
	}
}

func (h *HtmlFetcher) readBody(ctx context.Context, resp *http.Response) ([]byte, *FetchError) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &FetchError{
				Message:    fmt.Sprintf("gzip decode: %v", err),
				Retryable:  false,
				Cause:      ErrCauseReadResponseBodyError,
				StatusCode: resp.StatusCode,
			}
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, h.maxBodyBytes+1))
	if err != nil {
		if te := classifyTransportError(ctx, err); te.Cause == ErrCauseTimeout || te.Cause == ErrCauseCancelled {
			te.StatusCode = resp.StatusCode
			return nil, te
		}
		return nil, &FetchError{
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Retryable:  true,
			Cause:      ErrCauseReadResponseBodyError,
			StatusCode: resp.StatusCode,
		}
	}
	if int64(len(body)) > h.maxBodyBytes {
		return nil, &FetchError{
			Message:    fmt.Sprintf("response body exceeds limit of %d bytes", h.maxBodyBytes),
			Retryable:  false,
			Cause:      ErrCauseBodyTooLarge,
			StatusCode: resp.StatusCode,
		}
	}
	return body, nil
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
	}
}
