package whiteboard

import (
	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
)

type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerDoubleClick
)

// Pointer is a host pointer event in display coordinates.
type Pointer struct {
	Kind PointerKind
	At   state.Point
}

// Route translates a pointer event into the commands it stands for. Handles
// on the selected annotation start gestures; a body hit with the text tool
// selects or edits; anything else reaches the tool pipeline.
func (e *Engine) Route(ev Pointer) []Command {
	if e.opts.ReadOnly {
		return nil
	}
	at := e.ToRaster(ev.At)

	e.mu.Lock()
	g, drawing, tool := e.gesture, e.stroke != nil, e.tools.Tool
	e.mu.Unlock()

	switch ev.Kind {
	case PointerDown:
		cmds := e.routeDown(at, tool)
		// A release the host never delivered leaves the gesture open.
		if g != nil {
			cmds = append([]Command{endGesture(g.handle)}, cmds...)
		}
		return cmds
	case PointerMove:
		switch {
		case g != nil && g.handle == state.HandleDrag:
			return []Command{MoveDrag{At: at}}
		case g != nil && g.handle == state.HandleResize:
			return []Command{MoveResize{At: at}}
		case drawing:
			return []Command{MoveStroke{At: at}}
		}
	case PointerUp:
		switch {
		case g != nil:
			return []Command{endGesture(g.handle)}
		case drawing:
			return []Command{EndStroke{At: at}}
		}
	case PointerDoubleClick:
		if tool != raster.ToolText {
			return nil
		}
		if a, h := e.store.HitTest(at); h == state.HandleBody {
			return []Command{BeginEdit{ID: a.ID}}
		}
	}
	return nil
}

// Pointer routes and dispatches ev.
func (e *Engine) Pointer(ev Pointer) bool {
	changed := false
	for _, cmd := range e.Route(ev) {
		if e.Dispatch(cmd) {
			changed = true
		}
	}
	return changed
}

func (e *Engine) routeDown(at state.Point, tool raster.Tool) []Command {
	a, h := e.store.HitTest(at)
	switch {
	case h == state.HandleDrag:
		return []Command{BeginDrag{ID: a.ID, At: at}}
	case h == state.HandleResize:
		return []Command{BeginResize{ID: a.ID, At: at}}
	case h == state.HandleBody && tool == raster.ToolText:
		if a.IsEditing {
			return nil
		}
		return []Command{SelectAnnotation{ID: a.ID}}
	}
	return []Command{BeginStroke{At: at}}
}

func endGesture(h state.Handle) Command {
	if h == state.HandleResize {
		return EndResize{}
	}
	return EndDrag{}
}
