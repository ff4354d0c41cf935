package engine

import (
	"context"
	"net/url"

	"github.com/mediascrape/msl/internal/media"
)

// Fetcher retrieves pages for the engine. Implementations must be safe
// for concurrent use: sibling branches fetch in parallel.
type Fetcher interface {
	// Fetch retrieves the page at rawURL. The returned Page is owned
	// by the calling branch and is never shared across branches.
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Page is the engine's view of a fetched document. It is deliberately
// small: CSS selector matching, base URL, and media enumeration are
// the only capabilities the statement semantics need, so any HTML
// engine that can provide them can back the interface.
type Page interface {
	// Select returns the elements matching the CSS selector, in
	// document order. An invalid selector is an error; a valid
	// selector with no matches returns an empty slice and nil error.
	Select(selector string) ([]Element, error)

	// BaseURL is the URL the page was fetched from, used to resolve
	// relative references.
	BaseURL() *url.URL

	// Root returns the whole document as an Element. It is the
	// evaluation target for set statements in a root context.
	Root() Element

	// Media enumerates the page's media-bearing elements (img[src],
	// video/source[src], audio/source[src]) with URLs already
	// resolved to absolute form.
	Media() []MediaRef
}

// Element is a single matched node on a page.
type Element interface {
	// Text returns the element's text content with surrounding
	// whitespace trimmed.
	Text() string

	// Attr returns the named attribute's raw value and whether the
	// attribute is present.
	Attr(name string) (string, bool)

	// LinkTarget returns the element's link destination resolved
	// against the page's base URL, and whether the element has one.
	LinkTarget() (string, bool)
}

// MediaRef is one discovered media reference on a page.
type MediaRef struct {
	// URL is the absolute URL of the media resource.
	URL string

	// Kind classifies the reference by its embedding element.
	Kind media.Kind
}

// Storage persists saved media. Implementations must tolerate
// concurrent calls for distinct destination paths; concurrent writes
// to the same resolved path are last-writer-wins.
type Storage interface {
	// Store materializes the resource at sourceURL under destPath,
	// creating intermediate directories as needed.
	Store(ctx context.Context, sourceURL, destPath string) error
}
