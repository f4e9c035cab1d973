package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
	"golang.org/x/net/html"
)

/*
Responsibilities
  - Parse HTML into a DOM tree
  - Collect every a[href] in document order
  - Resolve each href against the page base

The extractor does not decide scope; it reports every link it can resolve.
A page that cannot be parsed yields an error the caller treats as zero links.
*/
type LinkExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewLinkExtractor(metadataSink metadata.MetadataSink) LinkExtractor {
	return LinkExtractor{
		metadataSink: metadataSink,
	}
}

func (l *LinkExtractor) Extract(
	pageURL url.URL,
	htmlByte []byte,
) (ExtractionResult, failure.ClassifiedError) {
	result, err := extract(pageURL, htmlByte)
	if err != nil {
		l.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"LinkExtractor.Extract",
			mapExtractionErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, pageURL.String()),
			},
		)
		return ExtractionResult{}, err
	}

	if result.Malformed > 0 {
		l.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"LinkExtractor.Extract",
			metadata.CauseContentInvalid,
			"skipped malformed hrefs",
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, pageURL.String()),
				metadata.NewAttr(metadata.AttrCount, strconv.Itoa(result.Malformed)),
			},
		)
	}
	return result, nil
}

func extract(pageURL url.URL, htmlByte []byte) (ExtractionResult, *ExtractionError) {
	root, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		return ExtractionResult{}, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseParseFailed,
		}
	}

	doc := goquery.NewDocumentFromNode(root)
	base := resolveBase(pageURL, doc)

	result := ExtractionResult{
		DocumentRoot: root,
		Base:         base,
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		raw := strings.TrimSpace(href)
		if raw == "" {
			return
		}
		ref, err := url.Parse(raw)
		if err != nil {
			result.Malformed++
			return
		}
		result.Links = append(result.Links, Link{
			Raw: raw,
			URL: *base.ResolveReference(ref),
		})
	})

	return result, nil
}

// resolveBase honours the first <base href> of the document, itself
// resolved against the page URL.
func resolveBase(pageURL url.URL, doc *goquery.Document) url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return pageURL
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return pageURL
	}
	return *pageURL.ResolveReference(ref)
}
