package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mediascrape/msl/internal/media"
	"github.com/mediascrape/msl/internal/script"
)

// fakeElement is a scripted Element.
type fakeElement struct {
	text  string
	attrs map[string]string
	href  string
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func (e *fakeElement) LinkTarget() (string, bool) {
	return e.href, e.href != ""
}

// fakePage is a scripted Page keyed by selector.
type fakePage struct {
	url     string
	selects map[string][]Element
	media   []MediaRef
	root    *fakeElement
}

func (p *fakePage) Select(selector string) ([]Element, error) {
	if selector == "!!invalid" {
		return nil, errors.New("invalid selector")
	}
	return p.selects[selector], nil
}

func (p *fakePage) BaseURL() *url.URL {
	u, _ := url.Parse(p.url)
	return u
}

func (p *fakePage) Root() Element {
	if p.root != nil {
		return p.root
	}
	return &fakeElement{}
}

func (p *fakePage) Media() []MediaRef { return p.media }

// fakeFetcher serves scripted pages by URL.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*fakePage
	failing map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failing[rawURL]; ok {
		return nil, err
	}
	page, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("no page for %s", rawURL)
	}
	f.fetched = append(f.fetched, rawURL)
	return page, nil
}

// fakeStorage records stores and optionally fails.
type fakeStorage struct {
	mu     sync.Mutex
	stored []SaveRecord
	err    error
}

func (s *fakeStorage) Store(_ context.Context, sourceURL, destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, SaveRecord{SourceURL: sourceURL, DestPath: destPath})
	return nil
}

func (s *fakeStorage) records() []SaveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SaveRecord, len(s.stored))
	copy(out, s.stored)
	return out
}

// galleryFetcher builds the standard two-photo gallery fixture:
// a gallery page linking to /1 and /2, each with one PNG.
func galleryFetcher() *fakeFetcher {
	photo := func(id string) *fakePage {
		return &fakePage{
			url: "https://example.com/" + id,
			media: []MediaRef{
				{URL: "https://cdn.example.com/" + id + ".png", Kind: media.KindImage},
				{URL: "https://cdn.example.com/" + id + ".mp4", Kind: media.KindVideo},
			},
		}
	}

	gallery := &fakePage{
		url: "https://example.com/gallery",
		selects: map[string][]Element{
			"a.item": {
				&fakeElement{text: "one", href: "https://example.com/1"},
				&fakeElement{text: "two", href: "https://example.com/2"},
			},
		},
	}

	return &fakeFetcher{
		pages: map[string]*fakePage{
			"https://example.com/gallery": gallery,
			"https://example.com/1":       photo("1"),
			"https://example.com/2":       photo("2"),
		},
	}
}

// galleryScript parses the standard gallery script.
func galleryScript(t *testing.T) *script.Script {
	t.Helper()

	s, err := script.Parse(`open "https://example.com/gallery"
click "a.item"
    set name = text
    media
        image
            extensions png
    save to "./out/{name}"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return s
}

func newTestEngine(f Fetcher, s Storage, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(f, s, opts...)
}

func destPaths(records []SaveRecord) []string {
	paths := make([]string, 0, len(records))
	for _, r := range records {
		paths = append(paths, r.DestPath)
	}
	sort.Strings(paths)
	return paths
}

// TestEngine_Execute_Gallery tests the full fan-out crawl.
func TestEngine_Execute_Gallery(t *testing.T) {
	t.Parallel()

	fetcher := galleryFetcher()
	store := &fakeStorage{}
	eng := newTestEngine(fetcher, store)

	summary, err := eng.Execute(context.Background(), galleryScript(t))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if summary.PagesFetched != 3 {
		t.Errorf("PagesFetched = %d, want 3", summary.PagesFetched)
	}
	if len(summary.Branches) != 3 {
		t.Errorf("len(Branches) = %d, want 3 (root + 2 children)", len(summary.Branches))
	}
	for _, b := range summary.Branches {
		if !b.Succeeded() {
			t.Errorf("branch %v failed: %v", b.Trail, b.ErrorMessage)
		}
	}

	// Each branch resolved the template against its own binding, and
	// the mp4 was filtered out by the image block
	want := []string{"./out/one", "./out/two"}
	got := destPaths(store.records())
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("stored paths = %v, want %v", got, want)
	}
	if len(summary.Saves) != 2 {
		t.Errorf("len(summary.Saves) = %d, want 2", len(summary.Saves))
	}
}

// TestEngine_Execute_ConcurrencyLevels tests that the save set does not
// depend on the concurrency bound.
func TestEngine_Execute_ConcurrencyLevels(t *testing.T) {
	t.Parallel()

	var baseline []string
	for _, concurrency := range []int{1, 2, 8} {
		store := &fakeStorage{}
		eng := newTestEngine(galleryFetcher(), store, WithConcurrency(concurrency))

		if _, err := eng.Execute(context.Background(), galleryScript(t)); err != nil {
			t.Fatalf("Execute with concurrency %d failed: %v", concurrency, err)
		}

		got := destPaths(store.records())
		if baseline == nil {
			baseline = got
			continue
		}
		if len(got) != len(baseline) {
			t.Fatalf("concurrency %d stored %v, baseline %v", concurrency, got, baseline)
		}
		for i := range got {
			if got[i] != baseline[i] {
				t.Errorf("concurrency %d stored %v, baseline %v", concurrency, got, baseline)
				break
			}
		}
	}
}

// TestEngine_Execute_ScopeIsolation tests that sibling branches cannot
// observe each other's bindings.
func TestEngine_Execute_ScopeIsolation(t *testing.T) {
	t.Parallel()

	fetcher := galleryFetcher()
	store := &fakeStorage{}
	eng := newTestEngine(fetcher, store, WithConcurrency(8))

	// name is bound before the fan-out; children shadow it
	s, err := script.Parse(`open "https://example.com/gallery"
click "a.item"
    set name = text
    media
        image
            extensions png
    save to "./out/{name}"
click "a.item"
    media
        image
            extensions png
    save to "./again/{name}"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	summary, execErr := eng.Execute(context.Background(), s)
	if execErr != nil {
		t.Fatalf("Execute failed: %v", execErr)
	}

	// The second click's children never bound name, so their saves
	// fail with a template error while the first click's succeed
	var templateFailures int
	for _, b := range summary.Failed() {
		if b.ErrorKind == "template-failed" {
			templateFailures++
		}
	}
	if templateFailures != 2 {
		t.Errorf("template failures = %d, want 2", templateFailures)
	}

	got := destPaths(store.records())
	want := []string{"./out/one", "./out/two"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("stored paths = %v, want %v", got, want)
	}
}

// TestEngine_Execute_ZeroMatches tests that an empty selector match is
// a no-op rather than an error.
func TestEngine_Execute_ZeroMatches(t *testing.T) {
	t.Parallel()

	fetcher := galleryFetcher()
	store := &fakeStorage{}
	eng := newTestEngine(fetcher, store)

	s, err := script.Parse(`open "https://example.com/gallery"
click "a.missing"
    save to "./out"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	summary, execErr := eng.Execute(context.Background(), s)
	if execErr != nil {
		t.Fatalf("Execute failed: %v", execErr)
	}

	if len(summary.Branches) != 1 {
		t.Errorf("len(Branches) = %d, want 1 (root only)", len(summary.Branches))
	}
	if !summary.Branches[0].Succeeded() {
		t.Errorf("root branch failed: %v", summary.Branches[0].ErrorMessage)
	}
	if len(store.records()) != 0 {
		t.Errorf("stored %d items, want 0", len(store.records()))
	}
}

// TestEngine_Execute_BranchErrors tests branch-scoped failure recording.
func TestEngine_Execute_BranchErrors(t *testing.T) {
	t.Parallel()

	t.Run("click before open", func(t *testing.T) {
		t.Parallel()

		eng := newTestEngine(galleryFetcher(), &fakeStorage{})
		s, err := script.Parse("click \"a.item\"\n    set x = text\n")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		summary, execErr := eng.Execute(context.Background(), s)
		if execErr != nil {
			t.Fatalf("Execute failed: %v", execErr)
		}
		if len(summary.Branches) != 1 || summary.Branches[0].ErrorKind != "no-active-page" {
			t.Errorf("branches = %+v, want one no-active-page failure", summary.Branches)
		}
	})

	t.Run("child fetch failure leaves siblings intact", func(t *testing.T) {
		t.Parallel()

		fetcher := galleryFetcher()
		fetcher.failing = map[string]error{
			"https://example.com/2": errors.New("status 404"),
		}
		store := &fakeStorage{}
		eng := newTestEngine(fetcher, store)

		summary, execErr := eng.Execute(context.Background(), galleryScript(t))
		if execErr != nil {
			t.Fatalf("Execute failed: %v", execErr)
		}

		failed := summary.Failed()
		if len(failed) != 1 || failed[0].ErrorKind != "fetch-failed" {
			t.Fatalf("failed = %+v, want one fetch-failed", failed)
		}

		got := destPaths(store.records())
		if len(got) != 1 || got[0] != "./out/one" {
			t.Errorf("stored paths = %v, want [./out/one]", got)
		}
	})

	t.Run("invalid selector is extraction failure", func(t *testing.T) {
		t.Parallel()

		eng := newTestEngine(galleryFetcher(), &fakeStorage{})
		s, err := script.Parse("open \"https://example.com/gallery\"\nclick \"!!invalid\"\n    set x = text\n")
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		summary, execErr := eng.Execute(context.Background(), s)
		if execErr != nil {
			t.Fatalf("Execute failed: %v", execErr)
		}
		if summary.Branches[0].ErrorKind != "extraction-failed" {
			t.Errorf("ErrorKind = %q, want extraction-failed", summary.Branches[0].ErrorKind)
		}
	})

	t.Run("missing attribute is extraction failure", func(t *testing.T) {
		t.Parallel()

		eng := newTestEngine(galleryFetcher(), &fakeStorage{})
		s, err := script.Parse(`open "https://example.com/gallery"
click "a.item"
    set x = attr("data-missing")
`)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		summary, execErr := eng.Execute(context.Background(), s)
		if execErr != nil {
			t.Fatalf("Execute failed: %v", execErr)
		}

		failed := summary.Failed()
		if len(failed) != 2 {
			t.Fatalf("failed = %+v, want both children failing", failed)
		}
		for _, b := range failed {
			if b.ErrorKind != "extraction-failed" {
				t.Errorf("ErrorKind = %q, want extraction-failed", b.ErrorKind)
			}
		}
	})

	t.Run("storage failure is branch scoped", func(t *testing.T) {
		t.Parallel()

		store := &fakeStorage{err: errors.New("disk full")}
		eng := newTestEngine(galleryFetcher(), store)

		summary, execErr := eng.Execute(context.Background(), galleryScript(t))
		if execErr != nil {
			t.Fatalf("Execute failed: %v", execErr)
		}

		failed := summary.Failed()
		if len(failed) != 2 {
			t.Fatalf("failed = %+v, want both children failing", failed)
		}
		for _, b := range failed {
			if b.ErrorKind != "storage-failed" {
				t.Errorf("ErrorKind = %q, want storage-failed", b.ErrorKind)
			}
		}
	})
}

// TestEngine_Execute_PendingCleared tests that saved items are not
// saved again by a later save in the same branch.
func TestEngine_Execute_PendingCleared(t *testing.T) {
	t.Parallel()

	fetcher := galleryFetcher()
	store := &fakeStorage{}
	eng := newTestEngine(fetcher, store)

	s, err := script.Parse(`open "https://example.com/gallery"
click "a.item"
    set name = text
    media
        image
            extensions png
    save to "./first/{name}"
    save to "./second/{name}"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, err := eng.Execute(context.Background(), s); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for _, r := range store.records() {
		if r.DestPath == "./second/one" || r.DestPath == "./second/two" {
			t.Errorf("item re-saved by second save: %+v", r)
		}
	}
	if len(store.records()) != 2 {
		t.Errorf("stored %d items, want 2", len(store.records()))
	}
}

// TestEngine_Execute_ScopeSnapshotAtDiscovery tests that a save uses
// the bindings live when the media qualified, not at save time.
func TestEngine_Execute_ScopeSnapshotAtDiscovery(t *testing.T) {
	t.Parallel()

	page := &fakePage{
		url: "https://example.com/photo",
		media: []MediaRef{
			{URL: "https://cdn.example.com/a.png", Kind: media.KindImage},
		},
		root: &fakeElement{attrs: map[string]string{"data-album": "trips"}},
	}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{"https://example.com/photo": page}}
	store := &fakeStorage{}
	eng := newTestEngine(fetcher, store)

	s, err := script.Parse(`open "https://example.com/photo"
set album = attr("data-album")
media
    image
set album = text
save to "./out/{album}"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, err := eng.Execute(context.Background(), s); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	records := store.records()
	if len(records) != 1 {
		t.Fatalf("stored %d items, want 1", len(records))
	}
	if records[0].DestPath != "./out/trips" {
		t.Errorf("DestPath = %q, want ./out/trips (discovery-time binding)", records[0].DestPath)
	}
}

// TestEngine_Execute_Cancellation tests that cancelling the context
// stops the run and surfaces the cancellation.
func TestEngine_Execute_Cancellation(t *testing.T) {
	t.Parallel()

	fetcher := galleryFetcher()
	eng := newTestEngine(fetcher, &fakeStorage{})

	s, err := script.Parse(`open "https://example.com/gallery"
wait 30
click "a.item"
    save to "./out"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	summary, execErr := eng.Execute(ctx, s)
	if execErr == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(execErr, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", execErr)
	}
	if summary == nil {
		t.Fatal("expected partial summary")
	}
	if summary.PagesFetched != 1 {
		t.Errorf("PagesFetched = %d, want 1", summary.PagesFetched)
	}
}

// TestEngine_Execute_SaveInsideMediaBlock tests that a save written at
// kind-block depth inside media stores the same set as a sibling save.
func TestEngine_Execute_SaveInsideMediaBlock(t *testing.T) {
	t.Parallel()

	fetcher := galleryFetcher()
	store := &fakeStorage{}
	eng := newTestEngine(fetcher, store)

	s, err := script.Parse(`open "https://example.com/gallery"
click "a.item"
  set name = text
  media
    image
      extensions png
    save to "./out/{name}"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	summary, execErr := eng.Execute(context.Background(), s)
	if execErr != nil {
		t.Fatalf("Execute failed: %v", execErr)
	}

	for _, b := range summary.Branches {
		if !b.Succeeded() {
			t.Errorf("branch %v failed: %v", b.Trail, b.ErrorMessage)
		}
	}

	want := []string{"./out/one", "./out/two"}
	got := destPaths(store.records())
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("stored paths = %v, want %v", got, want)
	}
	if len(summary.Saves) != 2 {
		t.Errorf("len(summary.Saves) = %d, want 2", len(summary.Saves))
	}
}

// TestEngine_Execute_Wait tests the wait statement.
func TestEngine_Execute_Wait(t *testing.T) {
	t.Parallel()

	t.Run("delays the branch and continues", func(t *testing.T) {
		t.Parallel()

		fetcher := galleryFetcher()
		store := &fakeStorage{}
		eng := newTestEngine(fetcher, store)

		s, err := script.Parse(`open "https://example.com/gallery"
click "a.item"
    set name = text
    wait 0.05
    media
        image
            extensions png
    save to "./out/{name}"
`)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		started := time.Now()
		summary, execErr := eng.Execute(context.Background(), s)
		if execErr != nil {
			t.Fatalf("Execute failed: %v", execErr)
		}

		if elapsed := time.Since(started); elapsed < 50*time.Millisecond {
			t.Errorf("run finished in %v, want at least the 50ms wait", elapsed)
		}
		for _, b := range summary.Branches {
			if !b.Succeeded() {
				t.Errorf("branch %v failed: %v", b.Trail, b.ErrorMessage)
			}
		}
		if len(store.records()) != 2 {
			t.Errorf("stored %d items, want 2", len(store.records()))
		}
	})

	t.Run("unblocks on cancel", func(t *testing.T) {
		t.Parallel()

		fetcher := galleryFetcher()
		store := &fakeStorage{}
		eng := newTestEngine(fetcher, store)

		s, err := script.Parse(`open "https://example.com/gallery"
click "a.item"
    wait 60
    save to "./out"
`)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(30 * time.Millisecond)
			cancel()
		}()

		started := time.Now()
		summary, execErr := eng.Execute(ctx, s)
		if execErr == nil {
			t.Fatal("expected cancellation error")
		}
		if !errors.Is(execErr, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", execErr)
		}
		if elapsed := time.Since(started); elapsed > 5*time.Second {
			t.Errorf("cancel took %v, want the wait to unblock promptly", elapsed)
		}
		if summary == nil {
			t.Fatal("expected partial summary")
		}
		if len(store.records()) != 0 {
			t.Errorf("stored %d items, want 0", len(store.records()))
		}
	})
}

// TestEngine_Execute_NonLinkMatches tests that matched elements without
// a link target are skipped silently.
func TestEngine_Execute_NonLinkMatches(t *testing.T) {
	t.Parallel()

	gallery := &fakePage{
		url: "https://example.com/gallery",
		selects: map[string][]Element{
			"div.card": {
				&fakeElement{text: "no link"},
				&fakeElement{text: "linked", href: "https://example.com/1"},
			},
		},
	}
	photo := &fakePage{url: "https://example.com/1"}
	fetcher := &fakeFetcher{pages: map[string]*fakePage{
		"https://example.com/gallery": gallery,
		"https://example.com/1":       photo,
	}}
	eng := newTestEngine(fetcher, &fakeStorage{})

	s, err := script.Parse("open \"https://example.com/gallery\"\nclick \"div.card\"\n    set x = text\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	summary, execErr := eng.Execute(context.Background(), s)
	if execErr != nil {
		t.Fatalf("Execute failed: %v", execErr)
	}

	// Only the linked element became a branch
	if len(summary.Branches) != 2 {
		t.Errorf("len(Branches) = %d, want 2", len(summary.Branches))
	}
	for _, b := range summary.Branches {
		if !b.Succeeded() {
			t.Errorf("branch %v failed: %v", b.Trail, b.ErrorMessage)
		}
	}
}
