package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mediascrape/msl/internal/media"
	"github.com/mediascrape/msl/internal/scope"
	"github.com/mediascrape/msl/internal/script"
)

// DefaultConcurrency bounds the number of child branches a single
// click statement executes at once. Pages routinely match dozens of
// links; without a bound a deep script could fan out into thousands of
// simultaneous fetches.
const DefaultConcurrency = 8

// Engine interprets a parsed script against live pages. It drives one
// root branch and recursively fans out over matched links, with each
// branch carrying its own scope snapshot and pending media list.
type Engine struct {
	fetcher     Fetcher
	storage     Storage
	logger      *slog.Logger
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConcurrency bounds concurrent child branches per click fan-out.
// Non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New creates an Engine with the given collaborators.
func New(fetcher Fetcher, storage Storage, opts ...Option) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		storage:     storage,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// branch is one node of the crawl tree: a page handle, the element
// that produced the branch, the branch's scope snapshot, and media
// pending a save. Branches are never shared between goroutines; all
// cross-branch communication goes through the collector.
type branch struct {
	page    Page
	elem    Element
	scope   scope.Scope
	pending []media.Item
	trail   []string
	saves   int
}

// Execute runs the script to completion. Branch failures are recorded
// in the summary, not returned: a partial crawl is a valid result. The
// error return is reserved for run-level failures, currently context
// cancellation.
func (e *Engine) Execute(ctx context.Context, s *script.Script) (*Summary, error) {
	started := time.Now()
	c := &collector{}

	root := &branch{scope: scope.New()}
	err := e.run(ctx, root, s.Statements, c)
	c.recordBranch(BranchOutcome{Trail: root.trail, Saves: root.saves, Err: err})

	summary := c.summary(started, time.Now())

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

// run executes a statement list in a branch, in source order. The
// returned error terminates only this branch's subtree.
func (e *Engine) run(ctx context.Context, b *branch, stmts []script.Statement, c *collector) *Error {
	for _, stmt := range stmts {
		if ctx.Err() != nil {
			return &Error{Kind: Cancelled, Err: ctx.Err()}
		}

		var err *Error
		switch st := stmt.(type) {
		case *script.OpenStmt:
			err = e.execOpen(ctx, b, st, c)
		case *script.ClickStmt:
			err = e.execClick(ctx, b, st, c)
		case *script.SetStmt:
			err = e.execSet(b, st)
		case *script.MediaStmt:
			err = e.execMedia(b, st)
			if err == nil && st.Save != nil {
				err = e.execSave(ctx, b, st.Save, c)
			}
		case *script.SaveStmt:
			err = e.execSave(ctx, b, st, c)
		case *script.WaitStmt:
			err = e.execWait(ctx, st)
		default:
			// The statement set is closed; reaching this means the
			// parser and engine disagree about the AST.
			panic(fmt.Sprintf("engine: unhandled statement %T", stmt))
		}

		if err != nil {
			line, col := stmt.Pos()
			e.logger.Warn("branch failed",
				"kind", err.Kind.String(),
				"statement", fmt.Sprintf("%d:%d", line, col),
				"trail", b.trail,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// execOpen fetches a page into the branch, replacing any current page.
func (e *Engine) execOpen(ctx context.Context, b *branch, st *script.OpenStmt, c *collector) *Error {
	e.logger.Debug("open", "url", st.URL)

	page, err := e.fetcher.Fetch(ctx, st.URL)
	if err != nil {
		return &Error{Kind: FetchFailed, Subject: st.URL, Err: err}
	}

	c.recordFetch()
	b.page = page
	b.trail = append(b.trail, st.URL)
	return nil
}

// execClick fans out over the elements matching the selector. Zero
// matches is a no-op, not an error. Each matched link becomes a child
// branch with a snapshot of the parent's scope; children run
// concurrently up to the engine's concurrency bound, and a child's
// failure is recorded without disturbing its siblings. execClick
// returns after every child completes, keeping statement order within
// this branch strictly sequential.
func (e *Engine) execClick(ctx context.Context, b *branch, st *script.ClickStmt, c *collector) *Error {
	if b.page == nil {
		return &Error{Kind: NoActivePage, Subject: st.Selector}
	}

	elems, err := b.page.Select(st.Selector)
	if err != nil {
		return &Error{Kind: ExtractionFailed, Subject: st.Selector, Err: err}
	}
	if len(elems) == 0 {
		e.logger.Debug("click matched nothing", "selector", st.Selector)
		return nil
	}

	parentScope := b.scope
	parentTrail := b.trail

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, elem := range elems {
		target, ok := elem.LinkTarget()
		if !ok {
			// Matched a non-link element; nothing to follow.
			e.logger.Debug("matched element has no link target",
				"selector", st.Selector, "index", i)
			continue
		}

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			trail := make([]string, len(parentTrail), len(parentTrail)+1)
			copy(trail, parentTrail)
			trail = append(trail, fmt.Sprintf("%s -> %s", st.Selector, target))

			child := &branch{
				elem:  elem,
				scope: parentScope.Child(nil),
				trail: trail,
			}

			page, err := e.fetcher.Fetch(gctx, target)
			if err != nil {
				c.recordBranch(BranchOutcome{
					Trail: child.trail,
					Err:   &Error{Kind: FetchFailed, Subject: target, Err: err},
				})
				// Branch errors never propagate to siblings.
				return nil
			}
			c.recordFetch()
			child.page = page

			branchErr := e.run(gctx, child, st.Body, c)
			c.recordBranch(BranchOutcome{Trail: child.trail, Saves: child.saves, Err: branchErr})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &Error{Kind: Cancelled, Err: err}
	}
	return nil
}

// execSet evaluates the expression against the branch's originating
// element and binds the result in the branch scope, overwriting any
// existing binding of the same name.
func (e *Engine) execSet(b *branch, st *script.SetStmt) *Error {
	target := b.elem
	if target == nil {
		if b.page == nil {
			return &Error{Kind: NoActivePage, Subject: st.Name}
		}
		// Root context: evaluate against the whole document.
		target = b.page.Root()
	}

	value, err := evaluate(st.Expr, target)
	if err != nil {
		return &Error{Kind: ExtractionFailed, Subject: st.Name, Err: err}
	}

	e.logger.Debug("set", "name", st.Name, "value", value)
	b.scope = b.scope.Bind(st.Name, value)
	return nil
}

// execMedia classifies and filters the current page's media, appending
// qualifying items to the branch's pending list with a snapshot of the
// current scope. Scope itself is untouched.
func (e *Engine) execMedia(b *branch, st *script.MediaStmt) *Error {
	if b.page == nil {
		return &Error{Kind: NoActivePage}
	}

	refs := b.page.Media()
	items := make([]media.Item, 0, len(refs))
	for _, ref := range refs {
		items = append(items, media.Item{URL: ref.URL, Kind: ref.Kind, Scope: b.scope})
	}

	matched := media.Filter(items, st.Blocks)
	e.logger.Debug("media discovered",
		"total", len(items),
		"matched", len(matched),
	)

	b.pending = append(b.pending, matched...)
	return nil
}

// execSave materializes every pending item: each item's path template
// is resolved against the scope snapshot taken at discovery time, and
// (url, path) is handed to storage. Pending media is cleared after a
// successful save, so a later save in the same branch never re-saves
// earlier items.
func (e *Engine) execSave(ctx context.Context, b *branch, st *script.SaveStmt, c *collector) *Error {
	if b.page == nil {
		return &Error{Kind: NoActivePage, Subject: st.PathTemplate}
	}

	for _, item := range b.pending {
		destPath, err := scope.ResolveTemplate(st.PathTemplate, item.Scope)
		if err != nil {
			return &Error{Kind: TemplateFailed, Subject: st.PathTemplate, Err: err}
		}

		if err := e.storage.Store(ctx, item.URL, destPath); err != nil {
			return &Error{Kind: StorageFailed, Subject: destPath, Err: err}
		}

		e.logger.Info("saved media", "source", item.URL, "dest", destPath)
		c.recordSave(item.URL, destPath)
		b.saves++
	}

	// Items are saved at most once per branch.
	b.pending = nil
	return nil
}

// execWait suspends only this branch. Siblings keep running.
func (e *Engine) execWait(ctx context.Context, st *script.WaitStmt) *Error {
	e.logger.Debug("wait", "duration", st.Duration)
	select {
	case <-ctx.Done():
		return &Error{Kind: Cancelled, Err: ctx.Err()}
	case <-time.After(st.Duration):
		return nil
	}
}
