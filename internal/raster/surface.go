package raster

import (
	"image"
	"image/color"
	"image/draw"
)

// Surface is a pixel buffer of fixed dimensions. Dimensions never change;
// a resize allocates a new Surface.
type Surface struct {
	W          int
	H          int
	PixelRatio float64
	Img        *image.RGBA
}

func NewSurface(w, h int, ratio float64, bg color.Color) *Surface {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	if ratio <= 0 {
		ratio = 1
	}
	s := &Surface{W: w, H: h, PixelRatio: ratio, Img: image.NewRGBA(image.Rect(0, 0, w, h))}
	s.Clear(bg)
	return s
}

func (s *Surface) Bounds() image.Rectangle { return s.Img.Bounds() }

// Clear fills the whole surface with c.
func (s *Surface) Clear(c color.Color) {
	draw.Draw(s.Img, s.Img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// SameSize reports whether o has identical pixel dimensions.
func (s *Surface) SameSize(o *Surface) bool {
	return o != nil && s.W == o.W && s.H == o.H
}

// Snapshot copies the current pixels.
func (s *Surface) Snapshot() []uint8 {
	out := make([]uint8, len(s.Img.Pix))
	copy(out, s.Img.Pix)
	return out
}

// Restore writes back pixels taken with Snapshot. Snapshots from a surface of
// another size are ignored.
func (s *Surface) Restore(pix []uint8) bool {
	if len(pix) != len(s.Img.Pix) {
		return false
	}
	copy(s.Img.Pix, pix)
	return true
}

// Clone returns an independent copy of the pixels as an image.
func (s *Surface) Clone() *image.RGBA {
	img := image.NewRGBA(s.Img.Bounds())
	copy(img.Pix, s.Img.Pix)
	return img
}

// FillRect paints an integer rectangle, clipped to the surface.
func (s *Surface) FillRect(x, y, w, h int, c color.Color) {
	r := image.Rect(x, y, x+w, y+h).Intersect(s.Img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(s.Img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// StrokeDashedRect outlines a rectangle with dashes of length dash separated
// by gaps of the same length.
func (s *Surface) StrokeDashedRect(x, y, w, h, line, dash int, c color.Color) {
	if line <= 0 {
		line = 1
	}
	if dash <= 0 {
		s.FillRect(x, y, w, line, c)
		s.FillRect(x, y+h-line, w, line, c)
		s.FillRect(x, y, line, h, c)
		s.FillRect(x+w-line, y, line, h, c)
		return
	}
	for off := 0; off < w; off += 2 * dash {
		n := min(dash, w-off)
		s.FillRect(x+off, y, n, line, c)
		s.FillRect(x+off, y+h-line, n, line, c)
	}
	for off := 0; off < h; off += 2 * dash {
		n := min(dash, h-off)
		s.FillRect(x, y+off, line, n, c)
		s.FillRect(x+w-line, y+off, line, n, c)
	}
}
