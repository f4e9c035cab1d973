package metadata

import (
	"time"
)

/*
CrawlStats
  - Represents a terminal, derived summary of a completed crawl
  - Contains only aggregate counts and durations
  - Is computed by the scheduler after crawl termination
  - Is recorded exactly once
  - Must not influence scheduling, retries, or crawl termination
*/
type CrawlStats struct {
	totalFetched    int
	totalDiscovered int
	totalErrors     int
	totalFiltered   int
	durationMs      int64
}

func NewCrawlStats(
	totalFetched int,
	totalDiscovered int,
	totalErrors int,
	totalFiltered int,
	duration time.Duration,
) CrawlStats {
	return CrawlStats{
		totalFetched:    totalFetched,
		totalDiscovered: totalDiscovered,
		totalErrors:     totalErrors,
		totalFiltered:   totalFiltered,
		durationMs:      duration.Milliseconds(),
	}
}

func (c CrawlStats) TotalFetched() int    { return c.totalFetched }
func (c CrawlStats) TotalDiscovered() int { return c.totalDiscovered }
func (c CrawlStats) TotalErrors() int     { return c.totalErrors }
func (c CrawlStats) TotalFiltered() int   { return c.totalFiltered }
func (c CrawlStats) DurationMs() int64    { return c.durationMs }

type ArtifactKind string

const (
	ArtifactURLList  ArtifactKind = "url_list"
	ArtifactSnapshot ArtifactKind = "snapshot"
	ArtifactLedger   ArtifactKind = "ledger"
)

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, continuation, or abort decisions.
	 - Pipeline packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure
  - TCP timeouts, DNS resolution failures, connection resets, 5xx responses
  - robots.txt fetch timeout

# CausePolicyDisallow
  - robots.txt disallow
  - HTTP 401 / 403 / 429
  - redirect leaving the crawl scope

# CauseContentInvalid
  - Non-HTML responses
  - Bodies that cannot be decoded or exceed the size cap

# CauseStorageFailure
  - Output file, ledger or snapshot write failures

# CauseInvariantViolation
  - Internal consistency checks failing
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrDepth      AttributeKey = "depth"
	AttrField      AttributeKey = "field"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrWritePath  AttributeKey = "write_path"
	AttrReason     AttributeKey = "reason"
	AttrCount      AttributeKey = "count"
)
