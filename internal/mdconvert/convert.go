package mdconvert

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rohmanhakim/docs-link-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
)

/*
Conversion rules
- Headings, lists, code blocks and tables follow CommonMark/GFM
- Relative links and images become absolute against the page URL
- script, style, noscript, iframe and svg content is dropped
- DOM order preserved
*/

// noiseSelector lists elements that never carry documentation text.
const noiseSelector = "script, style, noscript, iframe, svg, template"

// Converter turns a fetched HTML page into a Markdown snapshot.
type Converter interface {
	Convert(body []byte, pageURL url.URL) (ConversionResult, failure.ClassifiedError)
}

var _ Converter = (*MarkdownConverter)(nil)

type MarkdownConverter struct {
	metadataSink metadata.MetadataSink
	conv         *converter.Converter
}

func NewMarkdownConverter(metadataSink metadata.MetadataSink) *MarkdownConverter {
	return &MarkdownConverter{
		metadataSink: metadataSink,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (m *MarkdownConverter) Convert(body []byte, pageURL url.URL) (ConversionResult, failure.ClassifiedError) {
	result, err := m.convert(body, pageURL)
	if err != nil {
		m.metadataSink.RecordError(
			time.Now(),
			"mdconvert",
			"MarkdownConverter.Convert",
			mapConversionErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, pageURL.String()),
			},
		)
		return ConversionResult{}, err
	}
	return result, nil
}

func (m *MarkdownConverter) convert(body []byte, pageURL url.URL) (ConversionResult, *ConversionError) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ConversionResult{}, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseFailure,
		}
	}

	doc := goquery.NewDocumentFromNode(root)
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(noiseSelector).Remove()

	linkRefs := extractLinkRefs(doc)

	markdown, err := m.conv.ConvertNode(root, converter.WithDomain(domainOf(pageURL)))
	if err != nil {
		return ConversionResult{}, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
		}
	}

	return NewConversionResult(pageURL, title, bytes.TrimSpace(markdown), linkRefs), nil
}

// domainOf returns the page URL without fragment; the converter resolves
// relative references against it.
func domainOf(pageURL url.URL) string {
	pageURL.Fragment = ""
	pageURL.RawFragment = ""
	return pageURL.String()
}

// extractLinkRefs returns anchor and image references in document order.
func extractLinkRefs(doc *goquery.Document) []LinkRef {
	var linkRefs []LinkRef

	doc.Find("a[href], img[src]").Each(func(i int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "a":
			href, _ := s.Attr("href")
			kind := KindNavigation
			if strings.HasPrefix(href, "#") {
				kind = KindAnchor
			}
			linkRefs = append(linkRefs, NewLinkRef(href, kind))
		case "img":
			src, _ := s.Attr("src")
			linkRefs = append(linkRefs, NewLinkRef(src, KindImage))
		}
	})

	return linkRefs
}
