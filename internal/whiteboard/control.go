package whiteboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"

	"ClassBoard/internal/export"
	"ClassBoard/internal/persist"
	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
)

// ErrNoSurface is returned by operations that need an allocated surface.
var ErrNoSurface = errors.New("surface not allocated")

var (
	// ErrNoPersister is returned when the engine runs without a snapshot endpoint.
	ErrNoPersister = errors.New("persistence not configured")
	ErrReadOnly    = errors.New("board is read-only")
)

func newPair(r Resize, bg color.RGBA) *raster.Pair {
	return raster.NewPair(r.Width, r.Height, r.PixelRatio, bg)
}

func (e *Engine) startLoad() {
	if e.opts.Persister == nil || e.opts.SessionID == "" {
		return
	}
	e.loads.Add(1)
	go func() {
		defer e.loads.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.RequestTimeout)
		defer cancel()
		_ = e.Reload(ctx)
	}()
}

// Reload fetches the newest snapshot and replaces the board with it. Failures
// are logged and leave the board as it was.
func (e *Engine) Reload(ctx context.Context) error {
	if e.opts.Persister == nil {
		return ErrNoPersister
	}
	snap, err := e.opts.Persister.Load(ctx, e.opts.SessionID)
	switch {
	case errors.Is(err, persist.ErrNoSnapshot):
		e.log.Info().Msg("no stored snapshot")
		return err
	case err != nil:
		e.log.Warn().Err(err).Msg("snapshot load failed")
		return err
	}
	if snap.Skipped > 0 {
		e.log.Warn().Int("skipped", snap.Skipped).Msg("malformed annotations dropped")
	}
	if err := e.apply(snap); err != nil {
		return err
	}
	e.changed()
	return nil
}

// apply swaps the board for snap. An image of another size is scaled onto
// the surface and annotations follow by the same factors.
func (e *Engine) apply(snap persist.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pair == nil {
		return ErrNoSurface
	}
	e.stroke = nil
	e.gesture = nil
	e.pair.Clear()
	e.store.Replace(snap.Annotations)
	if snap.Image != nil {
		b := snap.Image.Bounds()
		if b.Dx() > 0 && b.Dy() > 0 && (b.Dx() != e.pair.Width() || b.Dy() != e.pair.Height()) {
			e.store.Scale(float64(e.pair.Width())/float64(b.Dx()), float64(e.pair.Height())/float64(b.Dy()))
		}
		e.pair.DrawImage(snap.Image)
	}
	e.redrawLocked()
	e.log.Info().Int("annotations", e.store.Len()).Bool("image", snap.Image != nil).Msg("snapshot applied")
	return nil
}

// Apply replaces the board with a snapshot fetched elsewhere.
func (e *Engine) Apply(snap persist.Snapshot) error {
	if err := e.apply(snap); err != nil {
		return err
	}
	e.changed()
	return nil
}

// request captures the current drawing cache and annotations. Annotation
// glyphs are not baked into the image; they travel as records.
func (e *Engine) request() (persist.SaveRequest, error) {
	e.mu.Lock()
	if e.pair == nil {
		e.mu.Unlock()
		return persist.SaveRequest{}, ErrNoSurface
	}
	img := e.pair.Cache.Clone()
	list := e.store.Persistable()
	e.mu.Unlock()

	var buf bytes.Buffer
	if err := export.PNG(&buf, img); err != nil {
		return persist.SaveRequest{}, err
	}
	b := img.Bounds()
	return persist.NewSaveRequest(e.opts.SessionID, buf.Bytes(), b.Dx(), b.Dy(), list, e.opts.Actor, e.opts.Now()), nil
}

// Save writes the board now, replacing any pending autosave. Failures go to
// the notifier as well as the caller.
func (e *Engine) Save(ctx context.Context) error {
	if e.opts.Persister == nil {
		return ErrNoPersister
	}
	if e.opts.ReadOnly {
		return ErrReadOnly
	}
	e.autosave.Cancel()
	req, err := e.request()
	if err != nil {
		return err
	}
	if err := e.opts.Persister.Save(ctx, req); err != nil {
		e.log.Error().Err(err).Msg("save failed")
		e.opts.Notify(fmt.Errorf("save failed: %w", err))
		return err
	}
	e.log.Info().Int("annotations", len(req.TextBoxes)).Msg("saved")
	return nil
}

func (e *Engine) autosaveNow() {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.RequestTimeout)
	defer cancel()
	_ = e.Save(ctx)
}

// EmergencySave hands the current board to a fire-and-forget delivery. It
// never blocks on the network.
func (e *Engine) EmergencySave() {
	if e.opts.Persister == nil || e.opts.SessionID == "" || e.opts.ReadOnly {
		return
	}
	e.autosave.Cancel()
	req, err := e.request()
	if err != nil {
		e.log.Debug().Err(err).Msg("emergency save skipped")
		return
	}
	e.opts.Persister.EmergencySave(req)
}

// InvalidateCache asks the endpoint to drop its cached read of this session.
func (e *Engine) InvalidateCache(ctx context.Context) error {
	if e.opts.Persister == nil {
		return ErrNoPersister
	}
	if err := e.opts.Persister.InvalidateCache(ctx, e.opts.SessionID); err != nil {
		e.log.Warn().Err(err).Msg("cache invalidation failed")
		return err
	}
	e.log.Info().Msg("cache invalidated")
	return nil
}

// Clear wipes strokes and annotations.
func (e *Engine) Clear() bool {
	if e.opts.ReadOnly {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pair == nil {
		return false
	}
	e.stroke = nil
	e.gesture = nil
	e.pair.Clear()
	e.store.Clear()
	e.redrawLocked()
	e.scheduleAutosave()
	return true
}

// Download writes what the board shows, without selection outlines, in f.
func (e *Engine) Download(w io.Writer, f export.Format) error {
	e.mu.Lock()
	if e.pair == nil {
		e.mu.Unlock()
		return ErrNoSurface
	}
	out := &raster.Pair{
		Visible:    raster.NewSurface(e.pair.Width(), e.pair.Height(), e.pair.Visible.PixelRatio, e.opts.Background),
		Cache:      e.pair.Cache,
		Background: e.opts.Background,
	}
	raster.Redraw(out, e.fonts, e.store.Persistable())
	e.mu.Unlock()

	return export.Write(w, out.Visible.Img, f, "Session "+e.opts.SessionID)
}

var _ state.Measurer = (*raster.Fonts)(nil)
