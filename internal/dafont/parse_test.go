package dafont

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(Options{
		BaseURL:     "https://www.dafont.com",
		DownloadURL: "https://dl.dafont.com/dl/",
	})
}

func TestSlugFromFontURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.dafont.com/pt/sakuna.font", "sakuna"},
		{"https://www.dafont.com/pt/Academy-FB.font", "academy-fb"},
		{"https://www.dafont.com/pt/sakuna.font?back=theme", "sakuna"},
		{"/pt/sakuna.font", "sakuna"},
		{"https://www.dafont.com/pt/theme.php?id=5", ""},
		{"https://www.dafont.com/", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SlugFromFontURL(tt.url), "url=%q", tt.url)
	}
}

func TestNormalizeLink_FontPage(t *testing.T) {
	c := newTestClient()

	ref, err := c.NormalizeLink("https://www.dafont.com/pt/my-font.font")
	require.NoError(t, err)
	assert.Equal(t, "my-font", ref.Slug)
	assert.Equal(t, "My Font", ref.Name)
	assert.Equal(t, "https://www.dafont.com/pt/my-font.font", ref.PageURL)
	assert.Equal(t, "https://dl.dafont.com/dl/?f=my-font", ref.DownloadURL)
}

func TestNormalizeLink_DownloadLink(t *testing.T) {
	c := newTestClient()

	ref, err := c.NormalizeLink("https://dl.dafont.com/dl/?f=sakuna")
	require.NoError(t, err)
	assert.Equal(t, "sakuna", ref.Slug)
}

func TestNormalizeLink_Rejected(t *testing.T) {
	c := newTestClient()

	for _, link := range []string{
		"https://example.com/whatever",
		"https://www.dafont.com/pt/theme.php?id=5",
		"not a url at all !!",
		"",
	} {
		_, err := c.NormalizeLink(link)
		assert.ErrorIs(t, err, ErrInvalidLink, "link=%q", link)
	}
}

func TestLastPage(t *testing.T) {
	html := `<html><body>
		<a href="mtheme.php?id=5&page=2">2</a>
		<a href="mtheme.php?id=5&page=17">17</a>
		<a href="mtheme.php?id=5&page=3">3</a>
		<a href="other.php">other</a>
	</body></html>`

	assert.Equal(t, 17, LastPage(html))
}

func TestLastPage_NoPagination(t *testing.T) {
	assert.Equal(t, 1, LastPage(`<html><body><a href="/pt/a.font">A</a></body></html>`))
}

func TestParseListing_DeduplicatesBySlug(t *testing.T) {
	c := newTestClient()

	html := `<html><body>
		<a href="/pt/sakuna.font">Sakuna</a>
		<a href="/pt/sakuna.font"><img src="preview.png"></a>
		<a href="/pt/academy-fb.font">Academy FB</a>
		<a href="/pt/theme.php?id=5">Category</a>
	</body></html>`

	fonts := c.ParseListing(html, "basica")
	require.Len(t, fonts, 2)

	assert.Equal(t, "sakuna", fonts[0].Slug)
	assert.Equal(t, "Sakuna", fonts[0].Name)
	assert.Equal(t, "basica", fonts[0].CategoryKey)
	assert.Equal(t, "https://www.dafont.com/pt/sakuna.font", fonts[0].PageURL)
	assert.Equal(t, "https://dl.dafont.com/dl/?f=sakuna", fonts[0].DownloadURL)

	assert.Equal(t, "academy-fb", fonts[1].Slug)
}

func TestParseListing_NameFallsBackToSlug(t *testing.T) {
	c := newTestClient()

	html := `<a href="/pt/cool-font.font"><img src="x.png"></a>`
	fonts := c.ParseListing(html, "tecno")
	require.Len(t, fonts, 1)
	assert.Equal(t, "Cool Font", fonts[0].Name)
}

func TestParseFontDetails(t *testing.T) {
	html := `<html><body>
		<h1>Academy FB</h1>
		<div class="preview" style="background-image:url('/preview.php?text=abc&ttf=academy0&size=60')"></div>
		<div class="preview" style="background-image:url('/img/preview/a/academy1.png')"></div>
		<div class="preview" style="background-image:url('/preview.php?text=abc&ttf=academy0&size=30')"></div>
	</body></html>`

	details := ParseFontDetails(html)
	assert.Equal(t, "Academy FB", details.Name)
	assert.Equal(t, []string{"academy0", "academy1"}, details.PreviewTokens)
}

func TestParseFontDetails_Empty(t *testing.T) {
	details := ParseFontDetails(`<html><body><p>nothing here</p></body></html>`)
	assert.Empty(t, details.Name)
	assert.Empty(t, details.PreviewTokens)
}

func TestParseCharmapTokens(t *testing.T) {
	html := `<script>
		var fontFileName = 'fonts/Academy0.ttf';
		var other = 1; fontFileName = 'fonts/Academy0.ttf';
		fontFileName = 'academy_bold.ttf';
	</script>`

	assert.Equal(t, []string{"academy0", "academy_bold"}, ParseCharmapTokens(html))
}

func TestParseCharmapTokens_Unavailable(t *testing.T) {
	html := `<p>Conjunto de caracteres indisponível</p>
		<script>fontFileName = 'ghost.ttf';</script>`

	assert.Nil(t, ParseCharmapTokens(html))
}
