package ui

import (
	"bytes"
	"image/png"
	"testing"

	"ClassBoard/internal/export"
	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
	"ClassBoard/internal/whiteboard"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(b *BoardWidget, kind whiteboard.PointerKind, x, y float32) {
	ev := &desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Button: desktop.MouseButtonPrimary}
	switch kind {
	case whiteboard.PointerDown:
		b.MouseDown(ev)
	case whiteboard.PointerMove:
		b.Dragged(&fyne.DragEvent{PointEvent: ev.PointEvent})
	case whiteboard.PointerUp:
		b.MouseUp(ev)
	}
}

func newTestBoard(t *testing.T) (*BoardWidget, *whiteboard.Engine) {
	t.Helper()
	test.NewTempApp(t)
	e := whiteboard.New(whiteboard.Options{Log: zerolog.Nop()})
	b := NewBoardWidget(e, zerolog.Nop())
	w := test.NewTempWindow(t, b)
	w.Resize(fyne.NewSize(400, 300))
	b.Resize(fyne.NewSize(360, 260))

	width, height, _ := e.Size()
	require.Equal(t, 360, width)
	require.Equal(t, 260, height)
	return b, e
}

func TestBoardAllocatesSurface(t *testing.T) {
	_, e := newTestBoard(t)
	frame := e.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, uint8(0xff), frame.RGBAAt(5, 5).R)
}

func TestBoardDrawsStroke(t *testing.T) {
	b, e := newTestBoard(t)
	press(b, whiteboard.PointerDown, 20, 50)
	press(b, whiteboard.PointerMove, 100, 50)
	press(b, whiteboard.PointerUp, 100, 50)

	frame := e.Frame()
	assert.Less(t, frame.RGBAAt(60, 50).R, uint8(0x40))
	assert.Equal(t, uint8(0xff), frame.RGBAAt(60, 120).R)
}

func TestDragEndOutsideBoardFinishesShape(t *testing.T) {
	b, e := newTestBoard(t)
	b.Dispatch(whiteboard.SetTool{Tool: raster.ToolRectangle})
	press(b, whiteboard.PointerDown, 20, 20)
	press(b, whiteboard.PointerMove, 120, 80)
	b.DragEnd()

	var buf bytes.Buffer
	require.NoError(t, e.Download(&buf, export.FormatPNG))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	r, _, _, _ := img.At(70, 20).RGBA()
	assert.Less(t, r>>8, uint32(0x40), "rectangle committed on drag end")

	// The late MouseUp, if any, is ignored.
	press(b, whiteboard.PointerUp, 300, 200)
	b.Dispatch(whiteboard.SetTool{Tool: raster.ToolPen})
	press(b, whiteboard.PointerDown, 20, 150)
	press(b, whiteboard.PointerMove, 100, 150)
	b.DragEnd()
	assert.Less(t, e.Frame().RGBAAt(60, 150).R, uint8(0x40))
}

func TestDragEndOutsideBoardFinishesGesture(t *testing.T) {
	b, e := newTestBoard(t)
	b.Dispatch(whiteboard.SetTool{Tool: raster.ToolText})
	press(b, whiteboard.PointerDown, 100, 100)
	a, ok := e.Editing()
	require.True(t, ok)
	b.Dispatch(whiteboard.EditText{ID: a.ID, Text: "move"})
	b.Dispatch(whiteboard.CommitEdit{})
	b.Dispatch(whiteboard.SelectAnnotation{ID: a.ID})

	handle := state.DragHandle(mustAnnotation(t, e, a.ID))
	press(b, whiteboard.PointerDown, float32(handle.X+1), float32(handle.Y+1))
	require.True(t, e.Interacting())
	press(b, whiteboard.PointerMove, float32(handle.X+41), float32(handle.Y+21))
	b.DragEnd()

	assert.False(t, e.Interacting())
	moved := mustAnnotation(t, e, a.ID)
	assert.Equal(t, state.Point{X: 140, Y: 120}, moved.Position())
}

func TestBoardTextEntryFlow(t *testing.T) {
	b, e := newTestBoard(t)
	b.Dispatch(whiteboard.SetTool{Tool: raster.ToolText})
	press(b, whiteboard.PointerDown, 40, 40)
	press(b, whiteboard.PointerUp, 40, 40)

	a, ok := e.Editing()
	require.True(t, ok)
	assert.True(t, b.entry.Visible())
	assert.Equal(t, a.ID, b.entry.id)

	test.Type(b.entry, "hi")
	got, _ := e.Annotation(a.ID)
	assert.Equal(t, "hi", got.Text)

	b.entry.TypedKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	_, editing := e.Editing()
	assert.False(t, editing)
	assert.False(t, b.entry.Visible())
	got, ok = e.Annotation(a.ID)
	require.True(t, ok)
	assert.Equal(t, "hi", got.Text)
}

func TestEntryKeys(t *testing.T) {
	test.NewTempApp(t)
	var commits, cancels int
	var last string
	en := newAnnotationEntry(func(s string) { last = s }, func() { commits++ }, func() { cancels++ }, nil)
	en.id = "a"

	en.TypedKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	assert.Equal(t, 1, commits)

	test.Type(en, "x")
	en.KeyDown(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	en.TypedKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	en.KeyUp(&fyne.KeyEvent{Name: desktop.KeyShiftLeft})
	assert.Equal(t, 1, commits, "shift+enter breaks the line")
	assert.Contains(t, last, "\n")

	en.TypedKey(&fyne.KeyEvent{Name: fyne.KeyEscape})
	assert.Equal(t, 1, cancels)
}

func TestEntryBindKeepsTextForSameAnnotation(t *testing.T) {
	test.NewTempApp(t)
	var changes int
	en := newAnnotationEntry(func(string) { changes++ }, func() {}, func() {}, nil)
	en.bind(testAnnotation("a", "first"))
	assert.Equal(t, "first", en.Text)
	assert.Zero(t, changes, "loading text is not an edit")

	en.bind(testAnnotation("a", "stale"))
	assert.Equal(t, "first", en.Text)

	en.unbind()
	assert.False(t, en.Visible())
	assert.Empty(t, en.id)
}

func testAnnotation(id, text string) state.Annotation {
	return state.Annotation{ID: id, Text: text, Width: 120, Height: 40, Style: state.DefaultStyle(), IsEditing: true}
}

func mustAnnotation(t *testing.T, e *whiteboard.Engine, id string) state.Annotation {
	t.Helper()
	a, ok := e.Annotation(id)
	require.True(t, ok)
	return a
}
