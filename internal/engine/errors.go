package engine

import "fmt"

// ErrorKind classifies branch-scoped execution failures.
type ErrorKind int

// Branch error kinds. Each is scoped to the branch that raised it:
// an error terminates that branch's subtree and is recorded in the run
// summary, but never cancels sibling branches.
const (
	// NoActivePage: a selector-dependent statement ran before any
	// open loaded a page into the branch.
	NoActivePage ErrorKind = iota

	// FetchFailed: the fetcher could not retrieve a page.
	FetchFailed

	// ExtractionFailed: a set statement could not produce a value
	// (missing attribute, split index out of range, bad selector).
	ExtractionFailed

	// TemplateFailed: a save path template referenced an unbound
	// variable or was malformed.
	TemplateFailed

	// StorageFailed: the storage collaborator rejected a save.
	StorageFailed

	// Cancelled: the run's context was cancelled while the branch
	// was still executing.
	Cancelled
)

// String returns a stable name for the kind, used in summaries.
func (k ErrorKind) String() string {
	switch k {
	case NoActivePage:
		return "no-active-page"
	case FetchFailed:
		return "fetch-failed"
	case ExtractionFailed:
		return "extraction-failed"
	case TemplateFailed:
		return "template-failed"
	case StorageFailed:
		return "storage-failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a branch-scoped execution failure.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Subject is the thing that failed: the URL for FetchFailed, the
	// variable name for ExtractionFailed, the placeholder or template
	// for TemplateFailed, the destination path for StorageFailed.
	Subject string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Subject != "" && e.Err != nil:
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Subject, e.Err)
	case e.Subject != "":
		return fmt.Sprintf("%s (%s)", e.Kind, e.Subject)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}
