// Package engine interprets parsed crawl scripts against live pages.
//
// # Execution model
//
// A run is a tree of branches. The root branch starts with an empty
// variable scope and no page; an open statement loads a page, and each
// click statement fans out into one child branch per matched link. A child
// inherits a snapshot of its parent's scope at creation time, so bindings
// made later in the parent, or in any sibling, are invisible to it.
//
// Sibling branches run concurrently up to a configured bound, using
// errgroup with a limit. Statements within one branch are strictly
// sequential. An error in a branch terminates only that branch's subtree;
// the run records the failure with the trail of URLs and selectors that
// led to it and continues elsewhere, so the summary reports partial
// success rather than all-or-nothing.
//
// # Collaborators
//
// The engine has no opinion about HTTP or HTML: it talks to a Fetcher that
// produces Pages (CSS selection, base URL, media enumeration) and a
// Storage that persists (source URL, destination path) pairs. Both must be
// safe for concurrent use.
package engine
