package raster

import (
	"bytes"
	"image/color"
	"testing"

	"ClassBoard/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func pixel(s *Surface, x, y int) color.RGBA {
	return s.Img.RGBAAt(x, y)
}

func annotation(id, text string, x, y float64) state.Annotation {
	st := state.DefaultStyle()
	return state.Annotation{ID: id, X: x, Y: y, Width: 120, Height: 40, Text: text, Style: st, ZOrder: 1}
}

func TestPaintStrokeMirrorsIntoBothBuffers(t *testing.T) {
	p := NewPair(100, 100, 1, white)
	p.PaintStroke(ToolPen, []state.Point{{X: 10, Y: 50}, {X: 90, Y: 50}}, black, 6)

	assert.Equal(t, black, pixel(p.Visible, 50, 50))
	assert.Equal(t, p.Visible.Img.Pix, p.Cache.Img.Pix)
	assert.Equal(t, white, pixel(p.Cache, 50, 10))
}

func TestRedrawIsIdempotent(t *testing.T) {
	p := NewPair(200, 120, 1, white)
	fonts := NewFonts()
	p.PaintStroke(ToolPen, []state.Point{{X: 5, Y: 5}, {X: 150, Y: 100}}, black, 4)
	p.PaintStroke(ToolCircle, []state.Point{{X: 100, Y: 60}, {X: 130, Y: 60}}, color.RGBA{R: 255, A: 255}, 3)

	a := annotation("a", "hello\nworld", 20, 20)
	a.IsSelected = true
	list := []state.Annotation{a}

	Redraw(p, fonts, list)
	first := p.Visible.Snapshot()
	Redraw(p, fonts, list)
	assert.True(t, bytes.Equal(first, p.Visible.Img.Pix))
}

func TestEraseLeavesNoHole(t *testing.T) {
	p := NewPair(100, 100, 1, white)
	fonts := NewFonts()
	p.PaintStroke(ToolPen, []state.Point{{X: 10, Y: 50}, {X: 90, Y: 50}}, black, 8)
	p.EraseStroke([]state.Point{{X: 10, Y: 50}, {X: 90, Y: 50}}, 20)

	Redraw(p, fonts, nil)
	for x := 20; x < 80; x++ {
		require.Equal(t, white, pixel(p.Visible, x, 50), "x=%d", x)
		require.Equal(t, uint8(255), pixel(p.Cache, x, 50).A)
	}

	// an eraser pass is indistinguishable from a white pen stroke
	q := NewPair(100, 100, 1, white)
	q.PaintStroke(ToolPen, []state.Point{{X: 10, Y: 50}, {X: 90, Y: 50}}, black, 8)
	q.PaintStroke(ToolPen, []state.Point{{X: 10, Y: 50}, {X: 90, Y: 50}}, white, 20)
	Redraw(q, fonts, nil)
	assert.Equal(t, q.Visible.Img.Pix, p.Visible.Img.Pix)
}

func TestRedrawSkipsEditingAnnotations(t *testing.T) {
	p := NewPair(200, 100, 1, white)
	fonts := NewFonts()
	a := annotation("a", "MMMM", 10, 10)
	a.IsEditing = true

	Redraw(p, fonts, []state.Annotation{a})
	assert.Equal(t, p.Cache.Img.Pix, p.Visible.Img.Pix)

	a.IsEditing = false
	Redraw(p, fonts, []state.Annotation{a})
	assert.NotEqual(t, p.Cache.Img.Pix, p.Visible.Img.Pix)
}

func TestSelectedAnnotationGetsDashedOutline(t *testing.T) {
	p := NewPair(200, 100, 1, white)
	fonts := NewFonts()
	a := annotation("a", "x", 20, 20)
	a.IsSelected = true

	Redraw(p, fonts, []state.Annotation{a})
	assert.Equal(t, SelectionColor, pixel(p.Visible, 19, 18))
	// gap in the dash pattern
	assert.Equal(t, white, pixel(p.Visible, 25, 18))
}

func TestShapesRespectExtent(t *testing.T) {
	s := NewSurface(100, 100, 1, white)
	DrawShape(s, ToolRectangle, state.Point{X: 80, Y: 80}, state.Point{X: 20, Y: 20}, black, 2)
	assert.Equal(t, black, pixel(s, 50, 20))
	assert.Equal(t, black, pixel(s, 20, 50))
	assert.Equal(t, white, pixel(s, 50, 50), "rectangle is an outline")

	c := NewSurface(100, 100, 1, white)
	DrawShape(c, ToolCircle, state.Point{X: 50, Y: 50}, state.Point{X: 80, Y: 50}, black, 4)
	assert.Equal(t, black, pixel(c, 80, 50))
	assert.Equal(t, black, pixel(c, 50, 20))
	assert.Equal(t, white, pixel(c, 50, 50), "circle is an outline")
}

func TestRescaleKeepsContentProportional(t *testing.T) {
	p := NewPair(100, 50, 1, white)
	p.PaintStroke(ToolPen, []state.Point{{X: 0, Y: 25}, {X: 50, Y: 25}}, black, 10)

	p.Rescale(200, 50, 1)
	require.True(t, p.Aligned())
	assert.Equal(t, 200, p.Width())
	// resampling may round by a unit, so compare by luminance
	assert.Less(t, pixel(p.Cache, 80, 25).R, uint8(8))
	assert.Greater(t, pixel(p.Cache, 180, 25).R, uint8(247))
}

func TestRealignFollowsCache(t *testing.T) {
	p := NewPair(10, 10, 1, white)
	p.Cache = NewSurface(20, 15, 1, white)
	require.False(t, p.Aligned())

	Redraw(p, NewFonts(), nil)
	assert.True(t, p.Aligned())
	assert.Equal(t, 20, p.Visible.W)
}

func TestSnapshotRestore(t *testing.T) {
	s := NewSurface(10, 10, 1, white)
	snap := s.Snapshot()
	s.FillRect(0, 0, 10, 10, black)
	require.True(t, s.Restore(snap))
	assert.Equal(t, white, pixel(s, 5, 5))
	assert.False(t, s.Restore(make([]uint8, 4)))
}

func TestMeasureWraps(t *testing.T) {
	fonts := NewFonts()
	st := state.DefaultStyle()
	w, h := fonts.Measure("hello world again", st, 0)
	assert.Greater(t, w, 60.0)
	assert.InDelta(t, st.LineHeight(), h, 1e-9)

	lines := fonts.Layout("hello world again", st, 60)
	assert.Greater(t, len(lines), 1)
	_, wrappedH := fonts.Measure("hello world again", st, 60)
	assert.InDelta(t, float64(len(lines))*st.LineHeight(), wrappedH, 1e-9)
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"#000000":        black,
		"#fff":           white,
		"white":          white,
		"#3b82f6":        SelectionColor,
		"CornflowerBlue": {R: 0x64, G: 0x95, B: 0xed, A: 0xff},
		"transparent":    {},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseColor("chartreuse-ish")
	assert.Error(t, err)
	assert.Equal(t, "#3b82f6", Hex(SelectionColor))
}
