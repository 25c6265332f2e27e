package whiteboard

import (
	"image/color"

	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
)

// Defaults for a fresh board.
const (
	DefaultBrushSize = 4.0
	DefaultColor     = state.DefaultColor
	eraserFactor     = 2
)

// ToolState is the explicit tool configuration the pipeline reads per event.
type ToolState struct {
	Tool      raster.Tool
	Color     string
	BrushSize float64
	FontSize  float64
	Alignment state.Alignment
}

func DefaultToolState() ToolState {
	return ToolState{
		Tool:      raster.ToolPen,
		Color:     DefaultColor,
		BrushSize: DefaultBrushSize,
		FontSize:  state.DefaultFontSize,
		Alignment: state.AlignLeft,
	}
}

// TextStyle is the style a new annotation gets from the current tools.
func (ts ToolState) TextStyle() state.Style {
	st := state.DefaultStyle()
	st.Color = ts.Color
	st.FontSize = ts.FontSize
	st.Alignment = ts.Alignment
	return st
}

func (ts ToolState) paint() color.RGBA {
	return raster.MustColor(ts.Color, color.RGBA{A: 0xff})
}

// stroke is the state of one pointer-down..pointer-up sequence. It captures
// the tool at pointer-down so switching tools mid-stroke changes nothing.
type stroke struct {
	tool    raster.Tool
	color   color.RGBA
	width   float64
	start   state.Point
	last    state.Point
	preview []uint8
}

func (s *stroke) shape() bool {
	return s.tool == raster.ToolRectangle || s.tool == raster.ToolCircle
}

// beginStroke starts a raster stroke. Pen and eraser mark the starting dot
// right away; shapes remember the visible pixels so previews can be undone.
func beginStroke(p *raster.Pair, ts ToolState, at state.Point) *stroke {
	s := &stroke{
		tool:  ts.Tool,
		color: ts.paint(),
		width: ts.BrushSize,
		start: at,
		last:  at,
	}
	switch s.tool {
	case raster.ToolPen:
		p.PaintStroke(raster.ToolPen, []state.Point{at}, s.color, s.width)
	case raster.ToolEraser:
		s.width *= eraserFactor
		p.EraseStroke([]state.Point{at}, s.width)
	case raster.ToolRectangle, raster.ToolCircle:
		s.preview = p.Visible.Snapshot()
	}
	return s
}

func (s *stroke) move(p *raster.Pair, at state.Point) {
	switch s.tool {
	case raster.ToolPen:
		p.PaintStroke(raster.ToolPen, []state.Point{s.last, at}, s.color, s.width)
	case raster.ToolEraser:
		p.EraseStroke([]state.Point{s.last, at}, s.width)
	case raster.ToolRectangle, raster.ToolCircle:
		p.Visible.Restore(s.preview)
		raster.DrawShape(p.Visible, s.tool, s.start, at, s.color, s.width)
	}
	s.last = at
}

// end commits the stroke. Shapes drop their preview and land in both buffers.
func (s *stroke) end(p *raster.Pair, at state.Point) {
	if s.shape() {
		p.Visible.Restore(s.preview)
		s.preview = nil
		p.PaintStroke(s.tool, []state.Point{s.start, at}, s.color, s.width)
		return
	}
	if at != s.last {
		s.move(p, at)
	}
}
