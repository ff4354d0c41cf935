package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/mediascrape/msl/internal/engine"
	"github.com/mediascrape/msl/internal/media"
)

// page is the goquery-backed implementation of engine.Page.
type page struct {
	doc  *goquery.Document
	base *url.URL
}

// newPage wraps a parsed document. base is the page's final URL after
// redirects.
func newPage(doc *goquery.Document, base *url.URL) *page {
	return &page{doc: doc, base: base}
}

// Select returns the elements matching the CSS selector in document
// order. The selector is compiled explicitly so an invalid one is
// reported as an error instead of silently matching nothing.
func (p *page) Select(selector string) ([]engine.Element, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}

	sel := p.doc.FindMatcher(matcher)
	elems := make([]engine.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elems = append(elems, &element{sel: s, base: p.base})
	})
	return elems, nil
}

// BaseURL returns the page's final URL.
func (p *page) BaseURL() *url.URL {
	return p.base
}

// Root returns the whole document as an element, the evaluation target
// for set statements at the crawl root.
func (p *page) Root() engine.Element {
	return &element{sel: p.doc.Selection, base: p.base}
}

// Media enumerates the page's media-bearing elements with absolute
// URLs. Covers img[src], video[src], audio[src], and source[src]
// children of video and audio elements.
func (p *page) Media() []engine.MediaRef {
	refs := make([]engine.MediaRef, 0)

	collect := func(selector string, kind media.Kind) {
		p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("src")
			if !ok {
				return
			}
			if resolved := p.resolve(src); resolved != "" {
				refs = append(refs, engine.MediaRef{URL: resolved, Kind: kind})
			}
		})
	}

	collect("img[src]", media.KindImage)
	collect("video[src], video source[src]", media.KindVideo)
	collect("audio[src], audio source[src]", media.KindAudio)

	return refs
}

// resolve makes a reference absolute against the page's base URL.
// Empty or non-fetchable references (data:, javascript:) resolve to "".
func (p *page) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" ||
		strings.HasPrefix(ref, "data:") ||
		strings.HasPrefix(ref, "javascript:") ||
		strings.HasPrefix(ref, "mailto:") {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return p.base.ResolveReference(u).String()
}

// element is the goquery-backed implementation of engine.Element.
type element struct {
	sel  *goquery.Selection
	base *url.URL
}

// Text returns the element's text content, trimmed.
func (e *element) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

// Attr returns the named attribute's raw value.
func (e *element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

// LinkTarget returns the element's href resolved against the page's
// base URL. Anchors without an href, and references that cannot be
// fetched, report no target.
func (e *element) LinkTarget() (string, bool) {
	href, ok := e.sel.Attr("href")
	if !ok {
		return "", false
	}

	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return "", false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return e.base.ResolveReference(u).String(), true
}

// page must satisfy the engine contracts.
var (
	_ engine.Page    = (*page)(nil)
	_ engine.Element = (*element)(nil)
)
