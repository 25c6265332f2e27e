package ui

import (
	"context"
	"fmt"
	"image/color"
	"strconv"
	"time"

	"ClassBoard/internal/export"
	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
	"ClassBoard/internal/whiteboard"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const requestTimeout = 15 * time.Second

var palette = []color.Color{
	color.Black,
	color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff},
	color.NRGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff},
	color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
	color.NRGBA{R: 0xea, G: 0xb3, B: 0x08, A: 0xff},
}

var fontSizes = []string{"12", "16", "20", "24", "32", "48"}

type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func(color.Color)
}

func newColorSwatch(c color.Color, tapped func(color.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// Toolbar binds the board's tool settings and control surface to widgets.
type Toolbar struct {
	board  *BoardWidget
	window fyne.Window
	status *widget.Label
}

func NewToolbar(board *BoardWidget, window fyne.Window, status *widget.Label) *Toolbar {
	return &Toolbar{board: board, window: window, status: status}
}

// SetStatus is safe to call from any goroutine.
func (t *Toolbar) SetStatus(text string) {
	fyne.Do(func() { t.status.SetText(text) })
}

func (t *Toolbar) tool(tl raster.Tool) func() {
	return func() {
		t.board.Dispatch(whiteboard.SetTool{Tool: tl})
		t.SetStatus("Tool: " + string(tl))
	}
}

// background runs a network operation off the UI goroutine and reports the
// outcome in the status line.
func (t *Toolbar) background(label string, op func(ctx context.Context) error) {
	t.SetStatus(label + "…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := op(ctx); err != nil {
			t.SetStatus(fmt.Sprintf("%s failed: %v", label, err))
			return
		}
		t.SetStatus(label + " done")
		fyne.Do(t.board.Refresh)
	}()
}

func (t *Toolbar) download() {
	e := t.board.Engine()
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, t.window)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()
		f, err := export.ParseFormat(w.URI().Extension())
		if err != nil {
			f = export.FormatPNG
		}
		if err := e.Download(w, f); err != nil {
			dialog.ShowError(err, t.window)
			return
		}
		t.SetStatus("Downloaded " + w.URI().Name())
	}, t.window)
	d.SetFileName("board-" + e.SessionID() + export.FormatPNG.Ext())
	d.Show()
}

func (t *Toolbar) deleteSelected() {
	if a, ok := t.board.Engine().Selected(); ok {
		t.board.Dispatch(whiteboard.DeleteAnnotation{ID: a.ID})
	}
}

func (t *Toolbar) clear() {
	dialog.ShowConfirm("Clear board", "Remove every stroke and text box?", func(ok bool) {
		if ok && t.board.Engine().Clear() {
			t.board.Refresh()
		}
	}, t.window)
}

func (t *Toolbar) Build() fyne.CanvasObject {
	e := t.board.Engine()
	ts := e.Tools()

	controls := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { t.background("Save", e.Save) }),
		widget.NewToolbarAction(theme.DownloadIcon(), t.download),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() { t.background("Reload", e.Reload) }),
		widget.NewToolbarAction(theme.StorageIcon(), func() { t.background("Cache invalidation", e.InvalidateCache) }),
	)
	if e.ReadOnly() {
		return container.NewHBox(widget.NewLabel("Read only"), layout.NewSpacer(), controls)
	}

	tools := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), t.tool(raster.ToolPen)),
		widget.NewToolbarAction(theme.ContentClearIcon(), t.tool(raster.ToolEraser)),
		widget.NewToolbarAction(theme.CheckButtonIcon(), t.tool(raster.ToolRectangle)),
		widget.NewToolbarAction(theme.RadioButtonIcon(), t.tool(raster.ToolCircle)),
		widget.NewToolbarAction(theme.FileTextIcon(), t.tool(raster.ToolText)),
	)

	onColorTapped := func(c color.Color) {
		t.board.Dispatch(whiteboard.SetColor{Color: raster.Hex(c)})
	}
	colorBox := container.NewHBox()
	for _, c := range palette {
		colorBox.Add(newColorSwatch(c, onColorTapped))
	}

	brush := widget.NewSlider(1, 50)
	brush.SetValue(ts.BrushSize)
	brush.OnChanged = func(v float64) { t.board.Dispatch(whiteboard.SetBrushSize{Size: v}) }
	brushBox := container.New(layout.NewGridWrapLayout(fyne.NewSize(120, 35)), brush)

	size := widget.NewSelect(fontSizes, func(s string) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			t.board.Dispatch(whiteboard.SetFontSize{Size: v})
		}
	})
	size.SetSelected(strconv.FormatFloat(ts.FontSize, 'f', -1, 64))

	align := widget.NewSelect([]string{string(state.AlignLeft), string(state.AlignCenter), string(state.AlignRight)}, func(s string) {
		t.board.Dispatch(whiteboard.SetAlignment{Alignment: state.Alignment(s)})
	})
	align.SetSelected(string(ts.Alignment))

	edit := widget.NewToolbar(
		widget.NewToolbarAction(theme.DeleteIcon(), t.deleteSelected),
		widget.NewToolbarAction(theme.ContentRemoveIcon(), t.clear),
	)

	return container.NewHBox(
		tools,
		widget.NewSeparator(),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		brushBox,
		widget.NewLabel("Font:"),
		size,
		align,
		widget.NewSeparator(),
		edit,
		layout.NewSpacer(),
		controls,
	)
}
