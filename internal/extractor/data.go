package extractor

import (
	"net/url"

	"golang.org/x/net/html"
)

// Link is one hyperlink found in a page.
// Raw is the href exactly as written; URL is Raw resolved against the page base.
type Link struct {
	Raw string
	URL url.URL
}

// ExtractionResult holds the extraction outcome.
// Links are in document order. Base is the URL relative hrefs were resolved
// against: the page URL, or the document's <base href> when present.
type ExtractionResult struct {
	DocumentRoot *html.Node
	Base         url.URL
	Links        []Link
	// Malformed counts hrefs that could not be parsed and were skipped.
	Malformed int
}
