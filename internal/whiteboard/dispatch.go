package whiteboard

import (
	"fmt"

	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
)

// Dispatch applies one command. It reports whether the visible surface or
// the overlay state may have changed, so the host knows to refresh.
func (e *Engine) Dispatch(cmd Command) bool {
	if e.opts.ReadOnly && mutates(cmd) {
		return false
	}
	if r, ok := cmd.(Resize); ok {
		return e.resize(r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch c := cmd.(type) {
	case SetTool:
		return e.setTool(c.Tool)
	case SetColor:
		if _, err := raster.ParseColor(c.Color); err != nil {
			e.log.Warn().Err(err).Msg("colour ignored")
			return false
		}
		e.tools.Color = c.Color
	case SetBrushSize:
		if c.Size <= 0 {
			return false
		}
		e.tools.BrushSize = c.Size
	case SetFontSize:
		if c.Size <= 0 {
			return false
		}
		e.tools.FontSize = c.Size
	case SetAlignment:
		e.tools.Alignment = c.Alignment
	case BeginStroke:
		return e.beginStroke(c.At)
	case MoveStroke:
		if e.stroke == nil || e.pair == nil {
			return false
		}
		e.stroke.move(e.pair, c.At)
		return true
	case EndStroke:
		return e.endStroke(c.At)
	case SelectAnnotation:
		return e.selectAnnotation(c.ID)
	case BeginEdit:
		commit, ok := e.store.BeginEdit(c.ID)
		if !ok {
			return false
		}
		e.committed(commit)
		e.redrawLocked()
		return true
	case EditText:
		if !e.store.SetText(c.ID, c.Text) {
			return false
		}
		e.fit(c.ID)
		return true
	case CommitEdit:
		return e.commitEdit()
	case CancelEdit:
		if a, ok := e.store.Editing(); ok {
			e.store.SetText(a.ID, "")
		}
		return e.commitEdit()
	case DeleteAnnotation:
		if !e.store.Delete(c.ID) {
			return false
		}
		if e.gesture != nil && e.gesture.id == c.ID {
			e.gesture = nil
		}
		e.redrawLocked()
		e.scheduleAutosave()
		return true
	case BeginDrag:
		return e.beginGesture(state.HandleDrag, c.ID, c.At)
	case MoveDrag:
		return e.moveGesture(state.HandleDrag, c.At)
	case EndDrag:
		return e.endGesture(state.HandleDrag)
	case BeginResize:
		return e.beginGesture(state.HandleResize, c.ID, c.At)
	case MoveResize:
		return e.moveGesture(state.HandleResize, c.At)
	case EndResize:
		return e.endGesture(state.HandleResize)
	default:
		panic(fmt.Sprintf("whiteboard: unhandled command %T", cmd))
	}
	return false
}

func (e *Engine) setTool(t raster.Tool) bool {
	if t == e.tools.Tool {
		return false
	}
	e.tools.Tool = t
	if t == raster.ToolText {
		return false
	}
	// Leaving the text tool finishes whatever was being edited or selected.
	e.committed(e.store.ClearSelection())
	e.redrawLocked()
	return true
}

// committed schedules an autosave when an annotation left the editing state.
func (e *Engine) committed(c *state.Commit) {
	if c == nil {
		return
	}
	e.log.Debug().Str("id", c.ID).Bool("deleted", c.Deleted).Msg("annotation committed")
	e.scheduleAutosave()
}

func (e *Engine) commitEdit() bool {
	c := e.store.CommitEdit()
	if c == nil {
		return false
	}
	e.committed(c)
	e.redrawLocked()
	return true
}

func (e *Engine) selectAnnotation(id string) bool {
	if id == "" {
		e.committed(e.store.ClearSelection())
		e.redrawLocked()
		return true
	}
	commit, ok := e.store.Select(id)
	if !ok {
		return false
	}
	e.committed(commit)
	e.redrawLocked()
	return true
}

// fit grows the editing box to its content, wrapping at the surface edge.
func (e *Engine) fit(id string) {
	if e.pair == nil {
		return
	}
	e.store.Fit(id, e.fonts, float64(e.pair.Width()))
}

func (e *Engine) beginStroke(at state.Point) bool {
	if e.pair == nil {
		return false
	}
	if e.stroke != nil {
		e.endStrokeLocked(e.stroke.last)
	}
	if e.tools.Tool == raster.ToolText {
		a, commit := e.store.Create(at, e.tools.TextStyle())
		e.committed(commit)
		e.fit(a.ID)
		e.redrawLocked()
		return true
	}
	// Drawing elsewhere finishes the open editor.
	if commit := e.store.ClearSelection(); commit != nil {
		e.committed(commit)
		e.redrawLocked()
	}
	e.stroke = beginStroke(e.pair, e.tools, at)
	return true
}

func (e *Engine) endStroke(at state.Point) bool {
	if e.stroke == nil || e.pair == nil {
		return false
	}
	e.endStrokeLocked(at)
	return true
}

func (e *Engine) endStrokeLocked(at state.Point) {
	e.stroke.end(e.pair, at)
	e.log.Debug().Str("tool", string(e.stroke.tool)).Msg("stroke committed")
	e.stroke = nil
	e.redrawLocked()
	e.scheduleAutosave()
}

func (e *Engine) beginGesture(h state.Handle, id string, at state.Point) bool {
	a, ok := e.store.Get(id)
	if !ok || !a.IsSelected || a.IsEditing {
		return false
	}
	e.gesture = &gesture{
		handle: h,
		id:     id,
		origin: at,
		offset: state.Point{X: at.X - a.X, Y: at.Y - a.Y},
		size:   a.Size(),
	}
	return true
}

func (e *Engine) moveGesture(h state.Handle, at state.Point) bool {
	g := e.gesture
	if g == nil || g.handle != h {
		return false
	}
	switch h {
	case state.HandleDrag:
		return e.store.Move(g.id, state.Point{X: at.X - g.offset.X, Y: at.Y - g.offset.Y})
	case state.HandleResize:
		return e.store.ResizeTo(g.id, state.Size{
			Width:  g.size.Width + at.X - g.origin.X,
			Height: g.size.Height + at.Y - g.origin.Y,
		})
	}
	return false
}

func (e *Engine) endGesture(h state.Handle) bool {
	if e.gesture == nil || e.gesture.handle != h {
		return false
	}
	e.gesture = nil
	e.redrawLocked()
	e.scheduleAutosave()
	return true
}
