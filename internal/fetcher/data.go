package fetcher

import (
	"net/url"
)

// HTTP boundary

type FetchParam struct {
	fetchUrl  url.URL
	userAgent string
	// redirectVisited reports redirect targets that were already visited
	redirectVisited func(target url.URL) bool
}

func NewFetchParam(fetchUrl url.URL, userAgent string) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		userAgent: userAgent,
	}
}

// WithVisitedCheck makes the fetch stop at a redirect whose target
// visited reports as already seen, failing with ErrCauseRedirectToVisited.
func (p FetchParam) WithVisitedCheck(visited func(target url.URL) bool) FetchParam {
	p.redirectVisited = visited
	return p
}

type FetchResult struct {
	url      url.URL
	finalURL url.URL
	body     []byte
	attempts int
	meta     ResponseMeta
}

// URL is the URL that was requested.
func (f FetchResult) URL() url.URL {
	return f.url
}

// FinalURL is the URL the response was served from after redirects.
// Links in the body resolve against it.
func (f FetchResult) FinalURL() url.URL {
	return f.finalURL
}

func (f FetchResult) Body() []byte {
	return f.body
}

func (f FetchResult) Code() int {
	return f.meta.statusCode
}

func (f FetchResult) ContentType() string {
	return f.meta.contentType
}

// SizeByte is the decoded body size.
func (f FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

// Attempts is the number of HTTP attempts it took to get this result.
func (f FetchResult) Attempts() int {
	return f.attempts
}

type ResponseMeta struct {
	statusCode          int
	contentType         string
	transferredSizeByte uint64
}
