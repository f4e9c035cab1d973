package robots

import (
	"context"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
)

// Robot answers whether a URL may be fetched under its host's robots.txt.
// Unreachable or broken robots files fail open.
type Robot struct {
	metadataSink metadata.MetadataSink
	fetcher      *RobotsFetcher
}

func NewRobot(metadataSink metadata.MetadataSink, fetcher *RobotsFetcher) Robot {
	return Robot{
		metadataSink: metadataSink,
		fetcher:      fetcher,
	}
}

// DisabledRobot allows every URL without consulting robots.txt.
type DisabledRobot struct{}

func (DisabledRobot) Decide(ctx context.Context, u url.URL) (Decision, error) {
	return Decision{Url: u, Allowed: true, Reason: RobotsDisabled}, nil
}

// Decide returns the robots decision for u. The only error it returns is
// cancellation of ctx; every other robots failure is recorded and allowed.
func (r *Robot) Decide(ctx context.Context, u url.URL) (Decision, error) {
	result, robotsErr := r.fetcher.Fetch(ctx, u.Scheme, u.Host)
	if robotsErr != nil {
		if robotsErr.Cause == ErrCauseCancelled {
			return Decision{}, robotsErr
		}
		r.recordError(u, robotsErr)
	}

	if result.FailOpen {
		return Decision{Url: u, Allowed: true, Reason: FailedOpen}, nil
	}
	if result.HTTPStatus >= 400 {
		return Decision{Url: u, Allowed: true, Reason: NoRobotsFile}, nil
	}

	data, err := robotstxt.FromStatusAndBytes(result.HTTPStatus, []byte(result.Body))
	if err != nil {
		r.recordError(u, &RobotsError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseError,
		})
		return Decision{Url: u, Allowed: true, Reason: FailedOpen}, nil
	}

	group := data.FindGroup(r.fetcher.UserAgent())
	decision := Decision{Url: u, Allowed: true, Reason: AllowedByRobots}
	if group.CrawlDelay > 0 {
		delay := group.CrawlDelay
		decision.CrawlDelay = &delay
	}
	if !group.Test(robotsPath(u)) {
		decision.Allowed = false
		decision.Reason = DisallowedByRobots
	}
	return decision, nil
}

func (r *Robot) recordError(u url.URL, err *RobotsError) {
	r.metadataSink.RecordError(
		time.Now(),
		"robots",
		"Robot.Decide",
		mapRobotsErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, u.String()),
			metadata.NewAttr(metadata.AttrHost, u.Host),
		},
	)
}

func robotsPath(u url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
