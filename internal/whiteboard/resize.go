package whiteboard

// resize handles a host allocation. The first one allocates blank buffers and
// starts a load; later ones remap annotations and rescale the raster before a
// single redraw.
func (e *Engine) resize(r Resize) bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	if r.PixelRatio <= 0 {
		r.PixelRatio = 1
	}

	e.mu.Lock()
	if e.pair == nil {
		e.pair = newPair(r, e.opts.Background)
		e.redrawLocked()
		e.mu.Unlock()
		e.log.Info().Int("width", r.Width).Int("height", r.Height).Msg("surface allocated")
		e.startLoad()
		return true
	}
	defer e.mu.Unlock()

	if e.pair.Width() == r.Width && e.pair.Height() == r.Height {
		if e.pair.Visible.PixelRatio == r.PixelRatio {
			return false
		}
		e.pair.Visible.PixelRatio = r.PixelRatio
		e.pair.Cache.PixelRatio = r.PixelRatio
		return true
	}

	sx := float64(r.Width) / float64(e.pair.Width())
	sy := float64(r.Height) / float64(e.pair.Height())
	e.store.Scale(sx, sy)
	e.pair.Rescale(r.Width, r.Height, r.PixelRatio)
	// A preview snapshot no longer matches the new buffers.
	e.stroke = nil
	e.redrawLocked()
	e.log.Debug().Float64("sx", sx).Float64("sy", sy).Msg("surface rescaled")
	return true
}
