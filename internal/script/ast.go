package script

import (
	"time"

	"github.com/mediascrape/msl/internal/media"
)

// Script is a parsed crawl script: an ordered sequence of top-level
// statements. It is immutable once parsed and safe to execute from
// multiple goroutines.
type Script struct {
	Statements []Statement
}

// Statement is one instruction in a script. The set of implementations
// is closed; the engine dispatches with an exhaustive type switch so a
// new statement kind cannot be added without updating every dispatch
// site.
type Statement interface {
	// Pos returns the statement's source position for diagnostics.
	Pos() (line, column int)

	stmt()
}

// position is embedded in every statement to carry its source location.
type position struct {
	Line   int
	Column int
}

// Pos returns the 1-based source position of the statement.
func (p position) Pos() (int, int) { return p.Line, p.Column }

// OpenStmt navigates the current branch to a URL.
type OpenStmt struct {
	position

	// URL is the absolute URL to fetch.
	URL string
}

// ClickStmt fans out over every element matching Selector on the
// current page, executing Body once per matched link in a child branch.
type ClickStmt struct {
	position

	// Selector is a CSS selector for the elements to follow.
	Selector string

	// Body is executed in each child branch, in source order.
	Body []Statement
}

// SetStmt binds a variable in the current branch's scope.
type SetStmt struct {
	position

	// Name is the variable name.
	Name string

	// Expr produces the value from the branch's matched element.
	Expr ValueExpr
}

// MediaStmt declares discovery rules for the current page's media.
type MediaStmt struct {
	position

	// Blocks are the kind-specific rules, in source order.
	Blocks []media.Block

	// Save, when non-nil, is a save statement written inside the media
	// block at kind-block depth. It runs right after the media
	// statement, exactly as a sibling save on the next line would.
	Save *SaveStmt
}

// SaveStmt materializes all pending media in the current branch,
// resolving PathTemplate against each item's scope snapshot.
type SaveStmt struct {
	position

	// PathTemplate is the destination path with {name} placeholders.
	PathTemplate string
}

// WaitStmt suspends only the issuing branch before its next statement.
type WaitStmt struct {
	position

	// Duration is how long to wait.
	Duration time.Duration
}

func (*OpenStmt) stmt()  {}
func (*ClickStmt) stmt() {}
func (*SetStmt) stmt()   {}
func (*MediaStmt) stmt() {}
func (*SaveStmt) stmt()  {}
func (*WaitStmt) stmt()  {}

// ValueExpr produces a string value from the element that created the
// current branch. The set of implementations is closed.
type ValueExpr interface {
	expr()
}

// TextExpr yields the trimmed text content of the element.
type TextExpr struct{}

// AttrExpr yields the named attribute of the element, then applies
// Transforms left to right.
type AttrExpr struct {
	// Name is the attribute name, e.g. "href".
	Name string

	// Transforms are applied in order to the attribute value.
	Transforms []Transform
}

func (TextExpr) expr() {}
func (AttrExpr) expr() {}

// Transform rewrites an extracted string value.
type Transform interface {
	transform()
}

// SplitTransform splits the value on Sep and selects element Index.
// A negative index counts from the end, so -1 selects the last part.
type SplitTransform struct {
	Sep   string
	Index int
}

func (SplitTransform) transform() {}
