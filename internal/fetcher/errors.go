package fetcher

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseCancelled             FetchErrorCause = "cancelled"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseBodyTooLarge          FetchErrorCause = "response body too large"
	ErrCauseContentTypeInvalid    FetchErrorCause = "non-HTML content"
	ErrCauseRedirectLimitExceeded FetchErrorCause = "reached redirect limit"
	ErrCauseRedirectOutOfScope    FetchErrorCause = "redirect out of scope"
	ErrCauseRedirectToVisited     FetchErrorCause = "redirect to visited page"
	ErrCauseRequestPageForbidden  FetchErrorCause = "forbidden"
	ErrCauseRequestClientError    FetchErrorCause = "4xx"
	ErrCauseRequestTooMany        FetchErrorCause = "too many requests"
	ErrCauseRequest5xx            FetchErrorCause = "5xx"
	ErrCauseUnexpectedStatus      FetchErrorCause = "unexpected status"
)

type FetchError struct {
	Message    string
	Retryable  bool
	Cause      FetchErrorCause
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// IsThrottled reports whether err says the host wants us to slow down
// (429 or a 5xx), including when wrapped by an exhausted retry.
func IsThrottled(err error) bool {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	return fetchErr.Cause == ErrCauseRequestTooMany || fetchErr.Cause == ErrCauseRequest5xx
}

// IsRedirectToVisited reports whether err stopped at a redirect into a
// page the crawl has already visited.
func IsRedirectToVisited(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Cause == ErrCauseRedirectToVisited
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseRequest5xx, ErrCauseReadResponseBodyError:
		return metadata.CauseNetworkFailure
	case ErrCauseRequestTooMany, ErrCauseRequestPageForbidden, ErrCauseRedirectOutOfScope:
		return metadata.CausePolicyDisallow
	case ErrCauseContentTypeInvalid, ErrCauseBodyTooLarge, ErrCauseRequestClientError:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
