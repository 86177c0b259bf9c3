package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const minPreviewHeight = 120

// DefaultForeground is the near-white preview text color.
var DefaultForeground = color.RGBA{R: 255, G: 255, B: 255, A: 235}

// RenderRequest carries the semantic inputs of one preview render.
type RenderRequest struct {
	Slug        string
	DownloadURL string
	Text        string
	Size        int
	Width       int
	Padding     int
	Foreground  color.RGBA
}

// RenderResult describes a rendered (or cache-hit) preview.
type RenderResult struct {
	Slug       string
	Text       string
	ImagePath  string
	FontMember string
	CacheHit   bool
}

// RenderPreview guarantees a preview image for the request, running the
// archive and extraction stages first when needed. An image already present
// at the computed cache key is returned unrendered.
func (p *Pipeline) RenderPreview(ctx context.Context, req RenderRequest, progress func(string)) (*RenderResult, error) {
	req = withDefaults(req)

	archivePath, err := p.EnsureArchiveCached(ctx, req.Slug, req.DownloadURL, progress)
	if err != nil {
		return nil, err
	}
	fontPath, member, err := p.EnsureFontExtracted(req.Slug, archivePath, progress)
	if err != nil {
		return nil, err
	}

	key := cacheKey(req.Slug, filepath.Base(fontPath), req.Text, req.Size, req.Width, req.Foreground)
	outPath := p.previewPath(req.Slug, key)
	if isNonEmptyFile(outPath) {
		return &RenderResult{
			Slug:       req.Slug,
			Text:       req.Text,
			ImagePath:  outPath,
			FontMember: member,
			CacheHit:   true,
		}, nil
	}

	report(progress, "Rendering preview offline…")

	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted font: %w", err)
	}

	img := renderText(fontBytes, req.Text, req.Size, req.Width, req.Padding, req.Foreground)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}

	// Temp file plus rename so concurrent renderers of the same key never
	// expose a partial image.
	tmp, err := os.CreateTemp(p.previewDir, ".preview-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create preview temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("finish preview: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("install preview: %w", err)
	}

	report(progress, fmt.Sprintf("Preview generated: %s", filepath.Base(outPath)))

	return &RenderResult{
		Slug:       req.Slug,
		Text:       req.Text,
		ImagePath:  outPath,
		FontMember: member,
		CacheHit:   false,
	}, nil
}

func withDefaults(req RenderRequest) RenderRequest {
	if req.Text = strings.TrimSpace(req.Text); req.Text == "" {
		req.Text = "Teste"
	}
	if req.Size <= 0 {
		req.Size = 64
	}
	if req.Width <= 0 {
		req.Width = 900
	}
	if req.Padding <= 0 {
		req.Padding = 18
	}
	if req.Foreground.A == 0 {
		req.Foreground = DefaultForeground
	}
	return req
}

// renderText draws text onto a transparent canvas with a (2,2) drop shadow.
// A font that fails to parse never fails the render: the built-in face is
// used instead.
func renderText(fontBytes []byte, text string, size, width, padding int, fg color.RGBA) image.Image {
	face := loadFace(fontBytes, size)

	bounds, _ := font.BoundString(face, text)
	textHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()
	if textHeight < 1 {
		textHeight = 1
	}

	height := textHeight + 2*padding
	if height < minPreviewHeight {
		height = minPreviewHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	top := (height - textHeight) / 2
	baseline := top - bounds.Min.Y.Ceil()
	x := padding

	// Shadow color by luma rule: dark shadow under light text, light shadow
	// under dark text.
	shadow := color.RGBA{R: 255, G: 255, B: 255, A: 110}
	if int(fg.R)+int(fg.G)+int(fg.B) > (255*3)/2 {
		shadow = color.RGBA{A: 120}
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(shadow),
		Face: face,
		Dot:  fixed.P(x+2, baseline+2),
	}
	drawer.DrawString(text)

	drawer.Src = image.NewUniform(fg)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)

	return img
}

func loadFace(fontBytes []byte, size int) font.Face {
	parsed, err := opentype.Parse(fontBytes)
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
