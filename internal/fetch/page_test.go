package fetch

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediascrape/msl/internal/media"
)

// parseTestPage builds a page from raw HTML with the given base URL.
func parseTestPage(t *testing.T, html, base string) *page {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	u, err := url.Parse(base)
	require.NoError(t, err)

	return newPage(doc, u)
}

// TestPage_Select tests CSS selector matching.
func TestPage_Select(t *testing.T) {
	t.Parallel()

	p := parseTestPage(t, `<html><body>
		<a class="item" href="/1">one</a>
		<a class="item" href="/2">two</a>
		<a class="other" href="/3">three</a>
	</body></html>`, "https://example.com/gallery")

	t.Run("matches in document order", func(t *testing.T) {
		t.Parallel()

		elems, err := p.Select("a.item")
		require.NoError(t, err)
		require.Len(t, elems, 2)
		assert.Equal(t, "one", elems[0].Text())
		assert.Equal(t, "two", elems[1].Text())
	})

	t.Run("no matches is not an error", func(t *testing.T) {
		t.Parallel()

		elems, err := p.Select("div.missing")
		require.NoError(t, err)
		assert.Empty(t, elems)
	})

	t.Run("invalid selector is an error", func(t *testing.T) {
		t.Parallel()

		_, err := p.Select("a.[item")
		require.Error(t, err)
	})
}

// TestElement_LinkTarget tests href resolution and filtering.
func TestElement_LinkTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		html   string
		want   string
		wantOK bool
	}{
		{
			name:   "relative href resolves against base",
			html:   `<a id="x" href="/photos/1">p</a>`,
			want:   "https://example.com/photos/1",
			wantOK: true,
		},
		{
			name:   "absolute href passes through",
			html:   `<a id="x" href="https://other.example.com/p">p</a>`,
			want:   "https://other.example.com/p",
			wantOK: true,
		},
		{
			name:   "path-relative href resolves against page path",
			html:   `<a id="x" href="1.html">p</a>`,
			want:   "https://example.com/gallery/1.html",
			wantOK: true,
		},
		{
			name:   "missing href reports no target",
			html:   `<a id="x">p</a>`,
			wantOK: false,
		},
		{
			name:   "fragment-only href reports no target",
			html:   `<a id="x" href="#">p</a>`,
			wantOK: false,
		},
		{
			name:   "javascript href reports no target",
			html:   `<a id="x" href="javascript:void(0)">p</a>`,
			wantOK: false,
		},
		{
			name:   "mailto href reports no target",
			html:   `<a id="x" href="mailto:a@example.com">p</a>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := parseTestPage(t, "<html><body>"+tt.html+"</body></html>", "https://example.com/gallery/")
			elems, err := p.Select("#x")
			require.NoError(t, err)
			require.Len(t, elems, 1)

			got, ok := elems[0].LinkTarget()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestPage_Media tests media discovery and URL resolution.
func TestPage_Media(t *testing.T) {
	t.Parallel()

	p := parseTestPage(t, `<html><body>
		<img src="/img/a.png">
		<img src="https://cdn.example.com/b.jpg">
		<img alt="no src">
		<img src="data:image/png;base64,xyz">
		<video src="/v/clip.mp4"></video>
		<video><source src="/v/other.webm"></video>
		<audio><source src="/a/theme.mp3"></audio>
	</body></html>`, "https://example.com/gallery")

	refs := p.Media()
	require.Len(t, refs, 5)

	byURL := map[string]media.Kind{}
	for _, r := range refs {
		byURL[r.URL] = r.Kind
	}

	assert.Equal(t, media.KindImage, byURL["https://example.com/img/a.png"])
	assert.Equal(t, media.KindImage, byURL["https://cdn.example.com/b.jpg"])
	assert.Equal(t, media.KindVideo, byURL["https://example.com/v/clip.mp4"])
	assert.Equal(t, media.KindVideo, byURL["https://example.com/v/other.webm"])
	assert.Equal(t, media.KindAudio, byURL["https://example.com/a/theme.mp3"])
}

// TestPage_Root tests document-level evaluation.
func TestPage_Root(t *testing.T) {
	t.Parallel()

	p := parseTestPage(t, `<html><body lang="en"><p> hello </p></body></html>`, "https://example.com")

	root := p.Root()
	assert.Equal(t, "hello", root.Text())
}

// TestElement_Text tests whitespace trimming.
func TestElement_Text(t *testing.T) {
	t.Parallel()

	p := parseTestPage(t, `<html><body><a id="x" href="/1">
		Sunset Beach
	</a></body></html>`, "https://example.com")

	elems, err := p.Select("#x")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, "Sunset Beach", elems[0].Text())
}
