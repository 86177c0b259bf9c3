package dafont

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fontpeek/fontpeek/internal/entities"
)

// FontRef identifies one font discovered on a page or pasted as a link.
type FontRef struct {
	Slug        string
	Name        string
	PageURL     string
	DownloadURL string
}

// FontDetails is the fixed result shape of detail-page parsing.
type FontDetails struct {
	Name          string
	PreviewTokens []string
}

var (
	pageNumRe      = regexp.MustCompile(`page=(\d+)`)
	previewTTFRe   = regexp.MustCompile(`(?:\?|&|&amp;)ttf=([^&"';]+)`)
	previewImgRe   = regexp.MustCompile(`(?i)/img/preview/.+?/([a-z0-9_-]+)\.png`)
	charmapFileRe  = regexp.MustCompile(`fontFileName\s*=\s*'([^']+\.ttf)'`)
	charmapMissing = "Conjunto de caracteres indisponível"
)

// SlugFromFontURL derives the slug from a .font page URL, or "" when the URL
// does not point at a font page.
func SlugFromFontURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	last := strings.TrimRight(u.Path, "/")
	if idx := strings.LastIndex(last, "/"); idx >= 0 {
		last = last[idx+1:]
	}
	if !strings.HasSuffix(last, ".font") {
		return ""
	}
	return entities.NormalizeSlug(strings.TrimSuffix(last, ".font"))
}

// NormalizeLink validates a pasted link and resolves it to a FontRef without
// any network I/O. Accepted forms: a .font page URL and a dl/?f=<slug>
// download URL. Anything else fails with ErrInvalidLink.
func (c *Client) NormalizeLink(raw string) (*FontRef, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidLink
	}

	if f := u.Query().Get("f"); f != "" {
		slug := entities.NormalizeSlug(f)
		if slug == "" {
			return nil, ErrInvalidLink
		}
		return c.refForSlug(slug, ""), nil
	}

	if slug := SlugFromFontURL(raw); slug != "" {
		return c.refForSlug(slug, ""), nil
	}

	return nil, ErrInvalidLink
}

func (c *Client) refForSlug(slug, name string) *FontRef {
	if name == "" {
		name = nameFromSlug(slug)
	}
	return &FontRef{
		Slug:        slug,
		Name:        name,
		PageURL:     c.PageURL(slug),
		DownloadURL: c.DownloadURLFor(slug),
	}
}

// LastPage extracts the highest page number linked from a category listing
// page. A page without pagination links counts as a single page.
func LastPage(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 1
	}

	last := 1
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if m := pageNumRe.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > last {
				last = n
			}
		}
	})
	return last
}

// ParseListing extracts font entries from a listing page: every anchor whose
// target path ends in .font, deduplicated by slug within the page. The name
// comes from the anchor text, falling back to a slug-derived title.
func (c *Client) ParseListing(html, categoryKey string) []entities.Font {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(c.baseURL)
	seen := make(map[string]struct{})
	var out []entities.Font

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.Contains(href, ".font") {
			return
		}

		abs := href
		if base != nil {
			if rel, err := url.Parse(href); err == nil {
				abs = base.ResolveReference(rel).String()
			}
		}
		slug := SlugFromFontURL(abs)
		if slug == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}

		name := strings.TrimSpace(a.Text())
		if name == "" {
			name = nameFromSlug(slug)
		}

		out = append(out, entities.Font{
			Slug:        slug,
			Name:        name,
			CategoryKey: categoryKey,
			PageURL:     c.PageURL(slug),
			DownloadURL: c.DownloadURLFor(slug),
		})
	})
	return out
}

// ParseFontDetails extracts the display name and preview tokens from a font
// detail page. Tokens come from the preview divs' style attributes, in
// document order, deduplicated.
func ParseFontDetails(html string) FontDetails {
	details := FontDetails{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return details
	}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		details.Name = strings.TrimSpace(h1.Text())
	}

	seen := make(map[string]struct{})
	add := func(token string) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		if _, dup := seen[token]; dup {
			return
		}
		seen[token] = struct{}{}
		details.PreviewTokens = append(details.PreviewTokens, token)
	}

	doc.Find("div.preview").Each(func(_ int, div *goquery.Selection) {
		style, _ := div.Attr("style")
		if m := previewTTFRe.FindStringSubmatch(style); m != nil {
			add(m[1])
		}
	})
	doc.Find("div.preview").Each(func(_ int, div *goquery.Selection) {
		style, _ := div.Attr("style")
		if m := previewImgRe.FindStringSubmatch(style); m != nil {
			add(m[1])
		}
	})

	return details
}

// ParseCharmapTokens extracts preview tokens from a charmap page, the
// fallback source when the detail page exposes none.
func ParseCharmapTokens(html string) []string {
	if strings.Contains(html, charmapMissing) {
		return nil
	}

	seen := make(map[string]struct{})
	var tokens []string
	for _, m := range charmapFileRe.FindAllStringSubmatch(html, -1) {
		name := m[1]
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		token := entities.NormalizeSlug(strings.TrimSuffix(name, ".ttf"))
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

// LastPageForCategory fetches a category listing and returns its page count.
func (c *Client) LastPageForCategory(ctx context.Context, listingURL string) (int, error) {
	html, err := c.FetchText(ctx, listingURL)
	if err != nil {
		return 0, err
	}
	return LastPage(html), nil
}

// FetchListing fetches one page of a category listing and parses its entries.
func (c *Client) FetchListing(ctx context.Context, listingURL, categoryKey string, page int) ([]entities.Font, error) {
	sep := "?"
	if strings.Contains(listingURL, "?") {
		sep = "&"
	}
	html, err := c.FetchText(ctx, fmt.Sprintf("%s%spage=%d", listingURL, sep, page))
	if err != nil {
		return nil, err
	}
	return c.ParseListing(html, categoryKey), nil
}

// FetchFontDetails fetches and parses a font detail page, using the charmap
// page as a token fallback when the detail page exposes none.
func (c *Client) FetchFontDetails(ctx context.Context, pageURL string) (*FontDetails, error) {
	html, err := c.FetchText(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	details := ParseFontDetails(html)
	if len(details.PreviewTokens) == 0 {
		if slug := SlugFromFontURL(pageURL); slug != "" {
			charmapURL := fmt.Sprintf("%s/pt/%s.charmap?f=0", c.baseURL, slug)
			if charmapHTML, err := c.FetchText(ctx, charmapURL); err == nil {
				details.PreviewTokens = ParseCharmapTokens(charmapHTML)
			}
		}
	}
	return &details, nil
}

func nameFromSlug(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
