package robots

import (
	"net/url"
	"time"
)

type DecisionReason string

const (
	AllowedByRobots    DecisionReason = "allowed_by_robots"
	DisallowedByRobots DecisionReason = "disallowed_by_robots"
	NoRobotsFile       DecisionReason = "no_robots_file"
	FailedOpen         DecisionReason = "robots_unavailable_fail_open"
	RobotsDisabled     DecisionReason = "robots_disabled"
)

type Decision struct {
	Url url.URL

	Allowed bool

	// Why this decision was made
	Reason DecisionReason

	// Crawl-delay of the matched group, nil when absent
	CrawlDelay *time.Duration
}

// RobotsFetchResult is the raw outcome of fetching one robots.txt file.
// FailOpen marks a host whose robots.txt could not be obtained; every
// path on it is allowed.
type RobotsFetchResult struct {
	SourceURL  string    `json:"source_url"`
	HTTPStatus int       `json:"http_status"`
	Body       string    `json:"body"`
	FetchedAt  time.Time `json:"fetched_at"`
	FailOpen   bool      `json:"fail_open"`
}
