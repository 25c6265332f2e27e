package state

// Rect is an axis-aligned rectangle in raster coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Inset grows the rectangle by d on every side; negative d shrinks it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Handle identifies an interaction zone on a selected annotation.
type Handle int

const (
	HandleNone Handle = iota
	HandleBody
	HandleDrag
	HandleResize
)

func (h Handle) String() string {
	switch h {
	case HandleBody:
		return "body"
	case HandleDrag:
		return "drag"
	case HandleResize:
		return "resize"
	default:
		return "none"
	}
}

// HandleSize is the side length of the square drag and resize handles.
const HandleSize = 12.0

// DragHandle sits just above the top-left corner of the box.
func DragHandle(a Annotation) Rect {
	return Rect{X: a.X - HandleSize/2, Y: a.Y - HandleSize - 2, Width: HandleSize, Height: HandleSize}
}

// ResizeHandle sits on the bottom-right corner of the box.
func ResizeHandle(a Annotation) Rect {
	return Rect{X: a.X + a.Width - HandleSize/2, Y: a.Y + a.Height - HandleSize/2, Width: HandleSize, Height: HandleSize}
}

// HandleAt classifies p against annotation a. Handles only exist while a is selected.
func HandleAt(a Annotation, p Point) Handle {
	if a.IsSelected && !a.IsEditing {
		if DragHandle(a).Contains(p) {
			return HandleDrag
		}
		if ResizeHandle(a).Contains(p) {
			return HandleResize
		}
	}
	if a.Bounds().Contains(p) {
		return HandleBody
	}
	return HandleNone
}
