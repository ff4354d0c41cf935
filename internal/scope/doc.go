// Package scope provides immutable variable environments for crawl branches.
//
// Every branch of a crawl carries its own Scope snapshot. A child scope is
// created by copying the parent's bindings at fan-out time, so changes made
// in one branch are invisible to the parent and to sibling branches. This
// copy-on-branch model is what makes concurrent branch execution safe
// without any locking.
//
// The package also resolves save-path templates: "{name}" placeholders are
// replaced with the values bound in a scope, and an unbound name is a hard
// error rather than an empty substitution.
package scope
