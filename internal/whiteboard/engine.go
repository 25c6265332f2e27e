// Package whiteboard drives one board: it owns the raster pair and the
// annotation store, turns typed commands into mutations, redraws, and keeps
// the snapshot endpoint up to date.
package whiteboard

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"ClassBoard/internal/persist"
	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"

	"github.com/rs/zerolog"
)

// Persister is the part of the persistence client the engine needs.
type Persister interface {
	Load(ctx context.Context, sessionID string) (persist.Snapshot, error)
	Save(ctx context.Context, req persist.SaveRequest) error
	InvalidateCache(ctx context.Context, sessionID string) error
	EmergencySave(req persist.SaveRequest)
}

type Options struct {
	SessionID     string
	Actor         persist.Actor
	Background    color.RGBA
	AutosaveDelay time.Duration
	// RequestTimeout bounds background loads and autosaves.
	RequestTimeout time.Duration
	Clock          persist.Clock
	Persister      Persister
	// Notify receives save failures. It is called off the UI goroutine.
	Notify   func(error)
	Tools    ToolState
	ReadOnly bool
	Now      func() time.Time
	Log      zerolog.Logger
}

// gesture is an in-progress drag or resize on one annotation.
type gesture struct {
	handle state.Handle
	id     string
	origin state.Point
	offset state.Point
	size   state.Size
}

// Engine is one board instance. All methods are safe to call from the host's
// event goroutine while autosave timers and loads run on others.
type Engine struct {
	opts  Options
	log   zerolog.Logger
	store *state.Store
	fonts *raster.Fonts

	autosave *persist.Debouncer
	loads    sync.WaitGroup

	mu       sync.Mutex
	pair     *raster.Pair
	tools    ToolState
	stroke   *stroke
	gesture  *gesture
	onChange func()
	redraws  int
	skipped  int
}

func New(opts Options) *Engine {
	if opts.Background == (color.RGBA{}) {
		opts.Background = raster.White
	}
	if opts.Tools == (ToolState{}) {
		opts.Tools = DefaultToolState()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notify == nil {
		opts.Notify = func(error) {}
	}
	log := opts.Log.With().Str("component", "engine").Str("session", opts.SessionID).Logger()
	e := &Engine{
		opts:  opts,
		log:   log,
		store: state.NewStore(log),
		fonts: raster.NewFonts(),
		tools: opts.Tools,
	}
	e.autosave = persist.NewDebouncer(opts.AutosaveDelay, opts.Clock, e.autosaveNow)
	return e
}

// OnChange registers a callback for changes that happen outside Dispatch,
// such as a finished load. It runs without the engine lock held.
func (e *Engine) OnChange(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = f
}

func (e *Engine) changed() {
	e.mu.Lock()
	f := e.onChange
	e.mu.Unlock()
	if f != nil {
		f()
	}
}

func (e *Engine) SessionID() string { return e.opts.SessionID }
func (e *Engine) ReadOnly() bool    { return e.opts.ReadOnly }

func (e *Engine) Tools() ToolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tools
}

// Size is the raster size, zero before the first Resize.
func (e *Engine) Size() (w, h int, ratio float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pair == nil {
		return 0, 0, 1
	}
	return e.pair.Width(), e.pair.Height(), e.pair.Visible.PixelRatio
}

// Frame returns a copy of the visible surface, or nil before the first Resize.
func (e *Engine) Frame() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pair == nil {
		return nil
	}
	return e.pair.Visible.Clone()
}

// Annotations lists annotations in paint order, transient flags included.
func (e *Engine) Annotations() []state.Annotation { return e.store.List() }

func (e *Engine) Annotation(id string) (state.Annotation, bool) { return e.store.Get(id) }

func (e *Engine) Editing() (state.Annotation, bool)  { return e.store.Editing() }
func (e *Engine) Selected() (state.Annotation, bool) { return e.store.Selected() }

// Interacting reports a drag or resize in progress.
func (e *Engine) Interacting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gesture != nil
}

// Redraws counts completed and skipped compositor runs.
func (e *Engine) Redraws() (done, skipped int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redraws, e.skipped
}

// ToRaster maps a display-space point to raster space.
func (e *Engine) ToRaster(p state.Point) state.Point {
	_, _, ratio := e.Size()
	return state.Point{X: p.X * ratio, Y: p.Y * ratio}
}

// ToDisplay maps a raster-space point to display space.
func (e *Engine) ToDisplay(p state.Point) state.Point {
	_, _, ratio := e.Size()
	return state.Point{X: p.X / ratio, Y: p.Y / ratio}
}

// redrawLocked runs the compositor unless a drag or resize is active.
func (e *Engine) redrawLocked() {
	if e.pair == nil {
		return
	}
	if e.gesture != nil {
		e.skipped++
		e.log.Debug().Stringer("gesture", e.gesture.handle).Msg("redraw skipped")
		return
	}
	raster.Redraw(e.pair, e.fonts, e.store.List())
	e.redraws++
}

// scheduleAutosave resets the quiet interval before the next save.
func (e *Engine) scheduleAutosave() {
	if e.opts.Persister == nil || e.opts.SessionID == "" || e.opts.ReadOnly {
		return
	}
	e.autosave.Schedule()
	e.log.Debug().Msg("autosave scheduled")
}

// AutosavePending reports a scheduled save that has not fired yet.
func (e *Engine) AutosavePending() bool { return e.autosave.Pending() }

// Wait blocks until background loads have finished.
func (e *Engine) Wait() { e.loads.Wait() }
