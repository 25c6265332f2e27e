package ui

import (
	"fmt"
	"time"

	"ClassBoard/internal/whiteboard"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
)

// drainTimeout bounds how long quitting waits for an emergency save.
const drainTimeout = 2 * time.Second

// App hosts one board in a window. Build it before the engine so the engine
// can report save failures through Notify.
type App struct {
	fyne   fyne.App
	log    zerolog.Logger
	status *widget.Label
}

func NewApp(log zerolog.Logger) *App {
	return &App{
		fyne:   app.NewWithID("classboard"),
		log:    log,
		status: widget.NewLabel(""),
	}
}

// Notify shows err in the status line. It may be called from any goroutine.
func (a *App) Notify(err error) {
	fyne.Do(func() { a.status.SetText(err.Error()) })
}

// Run shows the board and blocks until the window closes. drain is called
// after the final emergency save so the process can wait for it.
func (a *App) Run(e *whiteboard.Engine, width, height float32, drain func(time.Duration) bool) {
	title := "ClassBoard"
	if id := e.SessionID(); id != "" {
		title = fmt.Sprintf("ClassBoard: session %s", id)
	}
	w := a.fyne.NewWindow(title)
	w.Resize(fyne.NewSize(width, height))

	board := NewBoardWidget(e, a.log.With().Str("component", "board").Logger())
	toolbar := NewToolbar(board, w, a.status)

	lc := a.fyne.Lifecycle()
	lc.SetOnExitedForeground(func() {
		a.log.Debug().Msg("window left foreground")
		e.EmergencySave()
	})
	lc.SetOnStopped(func() {
		e.EmergencySave()
		if drain != nil && !drain(drainTimeout) {
			a.log.Warn().Msg("emergency save still in flight at exit")
		}
	})

	w.SetContent(container.NewBorder(toolbar.Build(), a.status, nil, nil, board))
	w.ShowAndRun()
}
