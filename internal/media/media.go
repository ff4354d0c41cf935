package media

import (
	"strings"

	"github.com/mediascrape/msl/internal/scope"
)

// Kind classifies a media item by how it is embedded in a page.
type Kind int

// Media kinds recognized by the discovery grammar.
const (
	// KindImage covers <img src> elements.
	KindImage Kind = iota

	// KindVideo covers <video src> and <video><source src> elements.
	KindVideo

	// KindAudio covers <audio src> and <audio><source src> elements.
	KindAudio
)

// String returns the keyword used for the kind in scripts.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// SrcOp is the comparison operator of a "where src" directive.
type SrcOp int

// Operators supported by the "where src" directive.
const (
	// SrcContains matches when the URL contains the pattern ("~").
	SrcContains SrcOp = iota

	// SrcEquals matches when the URL equals the pattern exactly ("=").
	SrcEquals

	// SrcNotEquals matches when the URL differs from the pattern ("!=").
	SrcNotEquals
)

// String returns the script syntax for the operator.
func (op SrcOp) String() string {
	switch op {
	case SrcContains:
		return "~"
	case SrcEquals:
		return "="
	case SrcNotEquals:
		return "!="
	default:
		return "?"
	}
}

// Block is one kind-specific discovery rule inside a media statement.
// A zero-valued filter field means "no constraint".
type Block struct {
	// Kind restricts the block to one media kind.
	Kind Kind

	// SrcPattern, when non-empty, constrains the item URL according
	// to SrcOp.
	SrcPattern string

	// SrcOp is the comparison applied between URL and SrcPattern.
	// Ignored when SrcPattern is empty.
	SrcOp SrcOp

	// Extensions, when non-empty, restricts items to URLs whose file
	// extension (case-insensitive, without the dot) is in the list.
	Extensions []string
}

// Item is a discovered media reference pending a save. The Scope is a
// snapshot of the branch's variables at discovery time, so a later
// save resolves its path template against the bindings that were
// live when the item qualified.
type Item struct {
	// URL is the absolute URL of the media resource.
	URL string

	// Kind is the media kind the item was discovered as.
	Kind Kind

	// Scope is the branch's variable snapshot at discovery time.
	Scope scope.Scope
}

// Matches reports whether item qualifies under block. An item
// qualifies iff the kinds agree, the URL passes the src constraint
// (when present), and the URL's extension is in the block's extension
// list (when present). Pure function: no I/O, no mutation.
func Matches(item Item, block Block) bool {
	if item.Kind != block.Kind {
		return false
	}

	if block.SrcPattern != "" {
		switch block.SrcOp {
		case SrcContains:
			if !strings.Contains(item.URL, block.SrcPattern) {
				return false
			}
		case SrcEquals:
			if item.URL != block.SrcPattern {
				return false
			}
		case SrcNotEquals:
			if item.URL == block.SrcPattern {
				return false
			}
		}
	}

	if len(block.Extensions) > 0 && !hasExtension(item.URL, block.Extensions) {
		return false
	}

	return true
}

// Filter returns the items that qualify under at least one of the
// given blocks, in input order. An empty block list selects nothing.
func Filter(items []Item, blocks []Block) []Item {
	matched := make([]Item, 0, len(items))
	for _, item := range items {
		for _, block := range blocks {
			if Matches(item, block) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

// hasExtension reports whether the URL path ends with one of the
// extensions, compared case-insensitively. Query strings and
// fragments are ignored so "a.png?w=200" still matches "png".
func hasExtension(rawURL string, extensions []string) bool {
	path := rawURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || dot == len(path)-1 {
		return false
	}
	ext := path[dot+1:]

	for _, want := range extensions {
		if strings.EqualFold(ext, strings.TrimPrefix(want, ".")) {
			return true
		}
	}
	return false
}
