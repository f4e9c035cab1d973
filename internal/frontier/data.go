package frontier

import (
	"net/url"
)

type SourceContext string

const (
	SourceSeed  SourceContext = "Seed"
	SourceCrawl SourceContext = "Crawl"
)

// CrawlToken is one unit of work handed out by the frontier.
type CrawlToken struct {
	url   url.URL
	depth int
}

func NewCrawlToken(u url.URL, depth int) CrawlToken {
	return CrawlToken{url: u, depth: depth}
}

func (c CrawlToken) URL() url.URL {
	return c.url
}

func (c CrawlToken) Depth() int {
	return c.depth
}

// CrawlAdmissionCandidate represents a URL that has already been
// admitted by the scheduler.
//
// Invariants:
// - Crawl scope, exclusion filters and depth limit have been enforced
// - Frontier MUST treat this as an admitted URL
// - Frontier MUST NOT re-evaluate admission semantics
type CrawlAdmissionCandidate struct {
	targetURL         url.URL
	sourceContext     SourceContext
	discoveryMetadata DiscoveryMetadata
}

func NewCrawlAdmissionCandidate(
	targetUrl url.URL,
	sourceContext SourceContext,
	discoveryMetadata DiscoveryMetadata,
) CrawlAdmissionCandidate {
	return CrawlAdmissionCandidate{
		targetURL:         targetUrl,
		sourceContext:     sourceContext,
		discoveryMetadata: discoveryMetadata,
	}
}

func (c CrawlAdmissionCandidate) TargetURL() url.URL {
	return c.targetURL
}

func (c CrawlAdmissionCandidate) SourceContext() SourceContext {
	return c.sourceContext
}

func (c CrawlAdmissionCandidate) DiscoveryMetadata() DiscoveryMetadata {
	return c.discoveryMetadata
}

type DiscoveryMetadata struct {
	depth     int
	parentURL string
}

func NewDiscoveryMetadata(depth int, parentURL string) DiscoveryMetadata {
	return DiscoveryMetadata{
		depth:     depth,
		parentURL: parentURL,
	}
}

func (d DiscoveryMetadata) Depth() int {
	return d.depth
}

func (d DiscoveryMetadata) ParentURL() string {
	return d.parentURL
}
