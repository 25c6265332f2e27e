package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Format is a download file format.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// pageMargin is the A4 margin in millimetres.
const pageMargin = 10.0

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown download format %q", s)
}

// Ext is the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Write encodes img as f.
func Write(w io.Writer, img image.Image, f Format, title string) error {
	switch f {
	case FormatPNG:
		return PNG(w, img)
	case FormatPDF:
		return PDF(w, img, title)
	}
	return fmt.Errorf("unknown download format %q", f)
}

func PNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PDF places img on a single A4 page, oriented to the image and scaled to fit
// inside the margins.
func PDF(w io.Writer, img image.Image, title string) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode page image: %w", err)
	}

	b := img.Bounds()
	orientation := "P"
	if b.Dx() > b.Dy() {
		orientation = "L"
	}
	p := gofpdf.New(orientation, "mm", "A4", "")
	if title != "" {
		p.SetTitle(title, true)
	}
	p.SetCreator("ClassBoard", true)
	p.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	p.RegisterImageOptionsReader("board", opts, &buf)

	pw, ph := p.GetPageSize()
	aw, ah := pw-2*pageMargin, ph-2*pageMargin
	scale := min(aw/float64(b.Dx()), ah/float64(b.Dy()))
	iw, ih := float64(b.Dx())*scale, float64(b.Dy())*scale
	p.ImageOptions("board", (pw-iw)/2, (ph-ih)/2, iw, ih, false, opts, 0, "")

	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
