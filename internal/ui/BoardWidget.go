package ui

import (
	"image/color"
	"time"

	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
	"ClassBoard/internal/whiteboard"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
)

// focusGrace is how long after a press on the board a lost entry focus is
// attributed to that press, which already commits through the engine.
const focusGrace = 400 * time.Millisecond

// BoardWidget shows the engine's visible surface and forwards pointer input.
// The text entry for the editing annotation and the gesture outline float
// above the raster.
type BoardWidget struct {
	widget.BaseWidget
	engine *whiteboard.Engine
	log    zerolog.Logger

	entry     *annotationEntry
	lastPress time.Time
	allocated fyne.Size

	// pressed is set between a primary press and its release. lastDrag is
	// where a release outside the board is reported.
	pressed  bool
	lastDrag fyne.Position
}

var (
	_ fyne.Widget            = (*BoardWidget)(nil)
	_ fyne.Draggable         = (*BoardWidget)(nil)
	_ fyne.DoubleTappable    = (*BoardWidget)(nil)
	_ desktop.Mouseable      = (*BoardWidget)(nil)
	_ fyne.SecondaryTappable = (*BoardWidget)(nil)
)

func NewBoardWidget(e *whiteboard.Engine, log zerolog.Logger) *BoardWidget {
	b := &BoardWidget{engine: e, log: log}
	b.entry = newAnnotationEntry(b.editText, b.finishEdit, b.cancelEdit, b.entryFocusLost)
	b.entry.Hide()
	b.ExtendBaseWidget(b)
	e.OnChange(func() { fyne.Do(b.Refresh) })
	return b
}

func (b *BoardWidget) Engine() *whiteboard.Engine { return b.engine }

func (b *BoardWidget) pointer(kind whiteboard.PointerKind, at fyne.Position) {
	if b.engine.Pointer(whiteboard.Pointer{Kind: kind, At: state.Point{X: float64(at.X), Y: float64(at.Y)}}) {
		b.Refresh()
	}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.lastPress = time.Now()
	b.pressed = true
	b.lastDrag = e.Position
	b.pointer(whiteboard.PointerDown, e.Position)
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.release(e.Position)
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.lastDrag = e.Position
	b.pointer(whiteboard.PointerMove, e.Position)
}

// DragEnd reaches the board even when the button is let go over another
// object or outside the window, where MouseUp is never delivered.
func (b *BoardWidget) DragEnd() {
	b.release(b.lastDrag)
}

func (b *BoardWidget) release(at fyne.Position) {
	if !b.pressed {
		return
	}
	b.pressed = false
	b.pointer(whiteboard.PointerUp, at)
}

func (b *BoardWidget) DoubleTapped(e *fyne.PointEvent) {
	b.pointer(whiteboard.PointerDoubleClick, e.Position)
}

// TappedSecondary clears the selection.
func (b *BoardWidget) TappedSecondary(*fyne.PointEvent) {
	if b.engine.Dispatch(whiteboard.SelectAnnotation{}) {
		b.Refresh()
	}
}

func (b *BoardWidget) Dispatch(cmd whiteboard.Command) {
	if b.engine.Dispatch(cmd) {
		b.Refresh()
	}
}

func (b *BoardWidget) editText(text string) {
	if a, ok := b.engine.Editing(); ok && a.ID == b.entry.id {
		b.engine.Dispatch(whiteboard.EditText{ID: a.ID, Text: text})
		b.Refresh()
	}
}

func (b *BoardWidget) finishEdit() { b.Dispatch(whiteboard.CommitEdit{}) }

func (b *BoardWidget) cancelEdit() { b.Dispatch(whiteboard.CancelEdit{}) }

func (b *BoardWidget) entryFocusLost(id string) {
	if time.Since(b.lastPress) < focusGrace {
		return
	}
	if a, ok := b.engine.Editing(); ok && a.ID == id {
		b.Dispatch(whiteboard.CommitEdit{})
	}
}

// allocate hands the current size in device pixels to the engine.
func (b *BoardWidget) allocate(size fyne.Size) {
	if size.Width < 1 || size.Height < 1 || size == b.allocated {
		return
	}
	scale := float32(1)
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		scale = c.Scale()
	}
	b.allocated = size
	b.log.Debug().Float32("width", size.Width).Float32("height", size.Height).Float32("scale", scale).Msg("board allocated")
	b.engine.Dispatch(whiteboard.Resize{
		Width:      int(size.Width * scale),
		Height:     int(size.Height * scale),
		PixelRatio: float64(scale),
	})
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardRenderer{
		board:        b,
		image:        canvas.NewImageFromImage(nil),
		outline:      canvas.NewRectangle(color.Transparent),
		dragHandle:   canvas.NewRectangle(raster.SelectionColor),
		resizeHandle: canvas.NewRectangle(raster.SelectionColor),
	}
	r.image.FillMode = canvas.ImageFillStretch
	r.image.ScaleMode = canvas.ImageScaleFastest
	r.outline.StrokeColor = raster.SelectionColor
	r.outline.StrokeWidth = 2
	r.outline.Hide()
	r.dragHandle.Hide()
	r.resizeHandle.Hide()
	r.objects = []fyne.CanvasObject{r.image, r.outline, r.dragHandle, r.resizeHandle, b.entry}
	return r
}

type boardRenderer struct {
	board        *BoardWidget
	image        *canvas.Image
	outline      *canvas.Rectangle
	dragHandle   *canvas.Rectangle
	resizeHandle *canvas.Rectangle
	objects      []fyne.CanvasObject
}

func (r *boardRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *boardRenderer) MinSize() fyne.Size { return fyne.NewSize(320, 240) }

func (r *boardRenderer) Destroy() {}

func (r *boardRenderer) Layout(size fyne.Size) {
	r.board.allocate(size)
	r.image.Resize(size)
	r.image.Move(fyne.NewPos(0, 0))
	r.place()
}

func (r *boardRenderer) Refresh() {
	if frame := r.board.engine.Frame(); frame != nil {
		r.image.Image = frame
	}
	r.image.Refresh()
	r.place()
}

// displayRect converts raster geometry into widget coordinates.
func (r *boardRenderer) displayRect(rect state.Rect) (fyne.Position, fyne.Size) {
	e := r.board.engine
	tl := e.ToDisplay(state.Point{X: rect.X, Y: rect.Y})
	br := e.ToDisplay(state.Point{X: rect.X + rect.Width, Y: rect.Y + rect.Height})
	return fyne.NewPos(float32(tl.X), float32(tl.Y)), fyne.NewSize(float32(br.X-tl.X), float32(br.Y-tl.Y))
}

func (r *boardRenderer) show(o fyne.CanvasObject, rect state.Rect) {
	pos, size := r.displayRect(rect)
	o.Move(pos)
	o.Resize(size)
	o.Show()
	o.Refresh()
}

// place positions the overlays from engine state.
func (r *boardRenderer) place() {
	e := r.board.engine
	r.outline.Hide()
	r.dragHandle.Hide()
	r.resizeHandle.Hide()

	if a, ok := e.Selected(); ok && !a.IsEditing {
		r.show(r.dragHandle, state.DragHandle(a))
		r.show(r.resizeHandle, state.ResizeHandle(a))
		if e.Interacting() {
			r.show(r.outline, a.Bounds())
		}
	}

	a, ok := e.Editing()
	if !ok {
		r.board.entry.unbind()
		return
	}
	pos, size := r.displayRect(a.Bounds())
	r.board.entry.bind(a)
	r.board.entry.Move(pos)
	r.board.entry.Resize(size.Max(r.board.entry.MinSize()))
	if c := fyne.CurrentApp().Driver().CanvasForObject(r.board); c != nil && c.Focused() != r.board.entry {
		c.Focus(r.board.entry)
	}
}
