package engine

import (
	"sync"
	"time"
)

// SaveRecord is one completed save instruction: the media source and
// the destination path its template resolved to.
type SaveRecord struct {
	// SourceURL is the media URL that was stored.
	SourceURL string `json:"source_url"`

	// DestPath is the resolved destination path.
	DestPath string `json:"dest_path"`
}

// BranchOutcome is the result of one branch (one node of the crawl
// tree). Trail is the sequence of URLs and selectors that led to the
// branch, so failures deep in a crawl stay diagnosable.
type BranchOutcome struct {
	// Trail is the path from the root to this branch.
	Trail []string `json:"trail"`

	// Saves is the number of save instructions the branch completed.
	Saves int `json:"saves"`

	// Err is the branch's failure, nil on success.
	Err *Error `json:"-"`

	// ErrorKind and ErrorMessage mirror Err for serialized output.
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

// Succeeded reports whether the branch completed without error.
func (b BranchOutcome) Succeeded() bool {
	return b.Err == nil
}

// Summary aggregates the outcome of a whole run. Branch failures do
// not make the run itself an error: a partial crawl is a valid result
// and the summary carries the per-branch detail.
type Summary struct {
	// Started and Finished bound the run's wall-clock duration.
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// PagesFetched counts successful fetches across all branches.
	PagesFetched int `json:"pages_fetched"`

	// Branches holds one outcome per completed branch, root included.
	// Ordering between sibling branches is not significant.
	Branches []BranchOutcome `json:"branches"`

	// Saves lists every completed save instruction across the run.
	Saves []SaveRecord `json:"saves"`
}

// Failed returns the outcomes of branches that ended in an error.
func (s *Summary) Failed() []BranchOutcome {
	failed := make([]BranchOutcome, 0)
	for _, b := range s.Branches {
		if !b.Succeeded() {
			failed = append(failed, b)
		}
	}
	return failed
}

// collector accumulates branch outcomes and save records from
// concurrently executing branches.
type collector struct {
	mu       sync.Mutex
	branches []BranchOutcome
	saves    []SaveRecord
	fetched  int
}

// recordBranch appends a completed branch's outcome.
func (c *collector) recordBranch(outcome BranchOutcome) {
	if outcome.Err != nil {
		outcome.ErrorKind = outcome.Err.Kind.String()
		outcome.ErrorMessage = outcome.Err.Error()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.branches = append(c.branches, outcome)
}

// recordSave appends one completed save instruction.
func (c *collector) recordSave(sourceURL, destPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, SaveRecord{SourceURL: sourceURL, DestPath: destPath})
}

// recordFetch counts one successful page fetch.
func (c *collector) recordFetch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched++
}

// summary builds the final Summary.
func (c *collector) summary(started, finished time.Time) *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Summary{
		Started:      started,
		Finished:     finished,
		PagesFetched: c.fetched,
		Branches:     c.branches,
		Saves:        c.saves,
	}
}
