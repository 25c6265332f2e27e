package state

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Point is a location in raster pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an extent in raster pixel coordinates.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type FontWeight string

const (
	WeightNormal FontWeight = "normal"
	WeightBold   FontWeight = "bold"
)

type FontStyle string

const (
	StyleNormal FontStyle = "normal"
	StyleItalic FontStyle = "italic"
)

type Decoration string

const (
	DecorationNone      Decoration = "none"
	DecorationUnderline Decoration = "underline"
)

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

const (
	DefaultFontSize   = 16.0
	DefaultFontFamily = "Arial"
	DefaultColor      = "#000000"

	// LineHeightFactor is the line advance as a multiple of the font size.
	LineHeightFactor = 1.2
)

// Style is the visual style of an annotation.
type Style struct {
	Color           string     `json:"color"`
	BackgroundColor string     `json:"backgroundColor,omitempty"`
	FontSize        float64    `json:"fontSize"`
	FontFamily      string     `json:"fontFamily"`
	FontWeight      FontWeight `json:"fontWeight"`
	FontStyle       FontStyle  `json:"fontStyle"`
	TextDecoration  Decoration `json:"textDecoration"`
	Alignment       Alignment  `json:"alignment"`
}

// DefaultStyle returns the style a new annotation gets when the host supplies none.
func DefaultStyle() Style {
	return Style{
		Color:          DefaultColor,
		FontSize:       DefaultFontSize,
		FontFamily:     DefaultFontFamily,
		FontWeight:     WeightNormal,
		FontStyle:      StyleNormal,
		TextDecoration: DecorationNone,
		Alignment:      AlignLeft,
	}
}

// LineHeight returns the vertical advance between two text lines.
func (s Style) LineHeight() float64 {
	return s.FontSize * LineHeightFactor
}

// normalize fills missing fields with defaults and folds unknown enum values.
func (s *Style) normalize() {
	d := DefaultStyle()
	if s.Color == "" {
		s.Color = d.Color
	}
	if s.FontSize <= 0 {
		s.FontSize = d.FontSize
	}
	if s.FontFamily == "" {
		s.FontFamily = d.FontFamily
	}
	if s.FontWeight != WeightBold {
		s.FontWeight = WeightNormal
	}
	if s.FontStyle != StyleItalic {
		s.FontStyle = StyleNormal
	}
	if s.TextDecoration != DecorationUnderline {
		s.TextDecoration = DecorationNone
	}
	switch s.Alignment {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		s.Alignment = AlignLeft
	}
}

// Annotation is a positioned, styled, editable text box overlaid on the drawing surface.
type Annotation struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Text   string  `json:"text"`
	Style
	ZOrder uint64 `json:"zIndex"`

	IsEditing  bool `json:"-"`
	IsSelected bool `json:"-"`
}

func (a Annotation) Position() Point { return Point{X: a.X, Y: a.Y} }

func (a Annotation) Size() Size { return Size{Width: a.Width, Height: a.Height} }

func (a Annotation) Bounds() Rect {
	return Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// Blank reports whether the trimmed text is empty.
func (a Annotation) Blank() bool {
	return strings.TrimSpace(a.Text) == ""
}

// Stripped returns a copy without the UI-only flags.
func (a Annotation) Stripped() Annotation {
	a.IsEditing = false
	a.IsSelected = false
	return a
}

var ErrMalformedAnnotation = errors.New("malformed annotation")

// Validate checks a record decoded from a snapshot and normalizes its style.
func (a *Annotation) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedAnnotation)
	}
	for name, v := range map[string]float64{
		"x": a.X, "y": a.Y, "width": a.Width, "height": a.Height, "fontSize": a.FontSize,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s of %s is not finite", ErrMalformedAnnotation, name, a.ID)
		}
	}
	if a.Width < 0 || a.Height < 0 {
		return fmt.Errorf("%w: negative size on %s", ErrMalformedAnnotation, a.ID)
	}
	if a.Blank() {
		return fmt.Errorf("%w: empty text on %s", ErrMalformedAnnotation, a.ID)
	}
	a.Style.normalize()
	return nil
}
