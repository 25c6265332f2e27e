package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"ClassBoard/internal/state"

	"golang.org/x/image/vector"
)

// path accumulates closed polygons into one coverage mask. Every polygon is
// wound clockwise unless added as a hole, so overlapping pieces merge and
// holes cancel.
type path struct {
	z *vector.Rasterizer
}

func newPath(s *Surface) *path {
	return &path{z: vector.NewRasterizer(s.W, s.H)}
}

func signedArea(pts []state.Point) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

func (p *path) polygon(pts []state.Point, hole bool) {
	if len(pts) < 3 {
		return
	}
	reverse := signedArea(pts) < 0
	if hole {
		reverse = !reverse
	}
	at := func(i int) state.Point {
		if reverse {
			return pts[len(pts)-1-i]
		}
		return pts[i]
	}
	first := at(0)
	p.z.MoveTo(float32(first.X), float32(first.Y))
	for i := 1; i < len(pts); i++ {
		q := at(i)
		p.z.LineTo(float32(q.X), float32(q.Y))
	}
	p.z.ClosePath()
}

func circleSteps(r float64) int {
	n := int(math.Ceil(2 * math.Pi * r / 2))
	return min(max(n, 12), 256)
}

func (p *path) disc(c state.Point, r float64, hole bool) {
	if r <= 0 {
		return
	}
	n := circleSteps(r)
	pts := make([]state.Point, n)
	for i := range pts {
		t := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = state.Point{X: c.X + r*math.Cos(t), Y: c.Y + r*math.Sin(t)}
	}
	p.polygon(pts, hole)
}

// segment adds a quad of the given width centred on a→b.
func (p *path) segment(a, b state.Point, width float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	p.polygon([]state.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, false)
}

// polyline adds a stroke with round caps and joins.
func (p *path) polyline(pts []state.Point, width float64) {
	if width <= 0 {
		width = 1
	}
	for i, pt := range pts {
		p.disc(pt, width/2, false)
		if i > 0 {
			p.segment(pts[i-1], pt, width)
		}
	}
}

func (p *path) fill(s *Surface, c color.Color) {
	p.z.DrawOp = draw.Over
	p.z.Draw(s.Img, s.Img.Bounds(), image.NewUniform(c), image.Point{})
}

// StrokeLine paints a round-capped polyline.
func StrokeLine(s *Surface, pts []state.Point, c color.Color, width float64) {
	if len(pts) == 0 {
		return
	}
	p := newPath(s)
	p.polyline(pts, width)
	p.fill(s, c)
}

// StrokeRect outlines the rectangle spanned by two corners. The line is
// centred on the rectangle edge.
func StrokeRect(s *Surface, from, to state.Point, c color.Color, width float64) {
	if width <= 0 {
		width = 1
	}
	x0, x1 := min(from.X, to.X), max(from.X, to.X)
	y0, y1 := min(from.Y, to.Y), max(from.Y, to.Y)
	h := width / 2

	p := newPath(s)
	p.polygon([]state.Point{{X: x0 - h, Y: y0 - h}, {X: x1 + h, Y: y0 - h}, {X: x1 + h, Y: y1 + h}, {X: x0 - h, Y: y1 + h}}, false)
	if x1-x0 > width && y1-y0 > width {
		p.polygon([]state.Point{{X: x0 + h, Y: y0 + h}, {X: x1 - h, Y: y0 + h}, {X: x1 - h, Y: y1 - h}, {X: x0 + h, Y: y1 - h}}, true)
	}
	p.fill(s, c)
}

// StrokeCircle outlines the circle centred on center with the given radius.
func StrokeCircle(s *Surface, center state.Point, radius float64, c color.Color, width float64) {
	if width <= 0 {
		width = 1
	}
	p := newPath(s)
	p.disc(center, radius+width/2, false)
	p.disc(center, radius-width/2, true)
	p.fill(s, c)
}
