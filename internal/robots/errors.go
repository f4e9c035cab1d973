package robots

import (
	"fmt"

	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCausePreFetchFailure      RobotsErrorCause = "failed to build robots request"
	ErrCauseHttpFetchFailure     RobotsErrorCause = "failed to fetch robots.txt"
	ErrCauseHttpTooManyRequests  RobotsErrorCause = "robots.txt rate limited"
	ErrCauseHttpServerError      RobotsErrorCause = "robots.txt server error"
	ErrCauseHttpUnexpectedStatus RobotsErrorCause = "unexpected robots.txt status"
	ErrCauseParseError           RobotsErrorCause = "failed to parse robots.txt"
	ErrCauseCancelled            RobotsErrorCause = "robots check cancelled"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s: %s", e.Cause, e.Message)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RobotsError) IsRetryable() bool {
	return e.Retryable
}

// mapRobotsErrorToMetadataCause maps robots-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapRobotsErrorToMetadataCause(err *RobotsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseHttpFetchFailure,
		ErrCauseHttpTooManyRequests,
		ErrCauseHttpServerError,
		ErrCauseHttpUnexpectedStatus,
		ErrCausePreFetchFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseParseError:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
