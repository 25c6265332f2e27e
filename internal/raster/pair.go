package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"ClassBoard/internal/state"

	xdraw "golang.org/x/image/draw"
)

// Tool names a raster-producing tool.
type Tool string

const (
	ToolPen       Tool = "pen"
	ToolEraser    Tool = "eraser"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
)

// Pair is the visible surface and the drawing cache. Every committed stroke
// lands in both so the visible surface can always be rebuilt from the cache.
type Pair struct {
	Visible    *Surface
	Cache      *Surface
	Background color.RGBA
}

func NewPair(w, h int, ratio float64, bg color.RGBA) *Pair {
	return &Pair{
		Visible:    NewSurface(w, h, ratio, bg),
		Cache:      NewSurface(w, h, ratio, bg),
		Background: bg,
	}
}

func (p *Pair) Width() int  { return p.Visible.W }
func (p *Pair) Height() int { return p.Visible.H }

// Aligned reports whether both buffers share dimensions.
func (p *Pair) Aligned() bool {
	return p.Visible.SameSize(p.Cache)
}

// Realign reallocates the visible surface to the cache dimensions. The cache
// holds the committed content, so it wins.
func (p *Pair) Realign() {
	if p.Aligned() {
		return
	}
	p.Visible = NewSurface(p.Cache.W, p.Cache.H, p.Cache.PixelRatio, p.Background)
}

func (p *Pair) both(f func(*Surface)) {
	f(p.Visible)
	f(p.Cache)
}

// PaintStroke applies a committed stroke to both buffers. Shape tools take the
// first and last points as their extent; the eraser paints the background.
func (p *Pair) PaintStroke(tool Tool, pts []state.Point, c color.Color, width float64) {
	if len(pts) == 0 {
		return
	}
	switch tool {
	case ToolEraser:
		p.EraseStroke(pts, width)
	case ToolRectangle, ToolCircle:
		from, to := pts[0], pts[len(pts)-1]
		p.both(func(s *Surface) { DrawShape(s, tool, from, to, c, width) })
	default:
		p.both(func(s *Surface) { StrokeLine(s, pts, c, width) })
	}
}

// EraseStroke paints background-coloured discs of diameter width along pts.
// Painting rather than clearing keeps the cache opaque, so compositing never
// shows through.
func (p *Pair) EraseStroke(pts []state.Point, width float64) {
	p.both(func(s *Surface) { StrokeLine(s, pts, p.Background, width) })
}

// DrawShape draws a rectangle or circle outline spanned by from and to.
func DrawShape(s *Surface, tool Tool, from, to state.Point, c color.Color, width float64) {
	switch tool {
	case ToolRectangle:
		StrokeRect(s, from, to, c, width)
	case ToolCircle:
		StrokeCircle(s, from, Radius(from, to), c, width)
	}
}

// Radius is the distance between the circle centre and the pointer.
func Radius(from, to state.Point) float64 {
	dx, dy := to.X-from.X, to.Y-from.Y
	return math.Hypot(dx, dy)
}

// Clear resets both buffers to the background colour.
func (p *Pair) Clear() {
	p.both(func(s *Surface) { s.Clear(p.Background) })
}

// Rescale rasterizes the current cache, allocates fresh buffers at w×h filled
// with the background, and draws the old content scaled into the new cache.
// The visible surface is left blank for the next redraw.
func (p *Pair) Rescale(w, h int, ratio float64) {
	old := p.Cache.Clone()
	p.Visible = NewSurface(w, h, ratio, p.Background)
	p.Cache = NewSurface(w, h, ratio, p.Background)
	xdraw.CatmullRom.Scale(p.Cache.Img, p.Cache.Img.Bounds(), old, old.Bounds(), draw.Over, nil)
}

// DrawImage paints img into the cache scaled to the buffer size, then copies
// it to the visible surface.
func (p *Pair) DrawImage(img image.Image) {
	dst := p.Cache.Img
	if img.Bounds().Dx() == p.Cache.W && img.Bounds().Dy() == p.Cache.H {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	}
	draw.Draw(p.Visible.Img, p.Visible.Img.Bounds(), dst, image.Point{}, draw.Src)
}
