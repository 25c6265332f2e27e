package whiteboard

import (
	"ClassBoard/internal/raster"
	"ClassBoard/internal/state"
)

// Command is a typed input to the engine. Every mutation of board state goes
// through Dispatch with one of the types below.
type Command interface {
	command()
}

// Tool settings.
type (
	SetTool      struct{ Tool raster.Tool }
	SetColor     struct{ Color string }
	SetBrushSize struct{ Size float64 }
	SetFontSize  struct{ Size float64 }
	SetAlignment struct{ Alignment state.Alignment }
)

// Raster strokes. Points are in surface coordinates.
type (
	BeginStroke struct{ At state.Point }
	MoveStroke  struct{ At state.Point }
	EndStroke   struct{ At state.Point }
)

// Annotation state machine. An empty ID in SelectAnnotation clears the
// selection.
type (
	SelectAnnotation struct{ ID string }
	BeginEdit        struct{ ID string }
	EditText         struct {
		ID   string
		Text string
	}
	CommitEdit       struct{}
	CancelEdit       struct{}
	DeleteAnnotation struct{ ID string }
)

// Drag and resize gestures on the selected annotation.
type (
	BeginDrag struct {
		ID string
		At state.Point
	}
	MoveDrag    struct{ At state.Point }
	EndDrag     struct{}
	BeginResize struct {
		ID string
		At state.Point
	}
	MoveResize struct{ At state.Point }
	EndResize  struct{}
)

// Resize reports a new host surface size in device pixels.
type Resize struct {
	Width      int
	Height     int
	PixelRatio float64
}

func (SetTool) command()          {}
func (SetColor) command()         {}
func (SetBrushSize) command()     {}
func (SetFontSize) command()      {}
func (SetAlignment) command()     {}
func (BeginStroke) command()      {}
func (MoveStroke) command()       {}
func (EndStroke) command()        {}
func (SelectAnnotation) command() {}
func (BeginEdit) command()        {}
func (EditText) command()         {}
func (CommitEdit) command()       {}
func (CancelEdit) command()       {}
func (DeleteAnnotation) command() {}
func (BeginDrag) command()        {}
func (MoveDrag) command()         {}
func (EndDrag) command()          {}
func (BeginResize) command()      {}
func (MoveResize) command()       {}
func (EndResize) command()        {}
func (Resize) command()           {}

// mutates reports whether cmd changes board content and is therefore refused
// in read-only mode.
func mutates(cmd Command) bool {
	switch cmd.(type) {
	case Resize, SetTool, SetColor, SetBrushSize, SetFontSize, SetAlignment, SelectAnnotation:
		return false
	}
	return true
}
