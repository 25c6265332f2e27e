package raster

import (
	"image"
	"image/color"
	"math"
	"strings"
	"sync"
	"unicode"

	"ClassBoard/internal/state"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type fontKey struct {
	mono   bool
	bold   bool
	italic bool
	size   int // 1/64 px
}

type family struct {
	regular, bold, italic, boldItalic *opentype.Font
}

func (f family) pick(bold, italic bool) *opentype.Font {
	switch {
	case bold && italic:
		return f.boldItalic
	case bold:
		return f.bold
	case italic:
		return f.italic
	default:
		return f.regular
	}
}

// Fonts resolves annotation styles to glyph faces. Sans families map to Go
// Regular and monospace families map to Go Mono.
type Fonts struct {
	sans  family
	mono  family
	cache map[fontKey]font.Face
	mu    sync.Mutex
}

func parseFamily(regular, bold, italic, boldItalic []byte) family {
	var f family
	f.regular, _ = opentype.Parse(regular)
	f.bold, _ = opentype.Parse(bold)
	f.italic, _ = opentype.Parse(italic)
	f.boldItalic, _ = opentype.Parse(boldItalic)
	return f
}

func NewFonts() *Fonts {
	return &Fonts{
		sans:  parseFamily(goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF),
		mono:  parseFamily(gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF),
		cache: map[fontKey]font.Face{},
	}
}

func isMono(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "mono") || strings.Contains(n, "courier") || strings.Contains(n, "consol")
}

// Face returns a cached face for st.
func (f *Fonts) Face(st state.Style) font.Face {
	size := max(st.FontSize, 1)
	key := fontKey{
		mono:   isMono(st.FontFamily),
		bold:   st.FontWeight == state.WeightBold,
		italic: st.FontStyle == state.StyleItalic,
		size:   int(math.Round(size * 64)),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.cache[key]; ok {
		return face
	}
	fam := f.sans
	if key.mono {
		fam = f.mono
	}
	base := fam.pick(key.bold, key.italic)
	if base == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return basicfont.Face7x13
	}
	f.cache[key] = face
	return face
}

func advance(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// Layout splits text into display lines, wrapping at maxWidth when positive.
func (f *Fonts) Layout(text string, st state.Style, maxWidth float64) []string {
	face := f.Face(st)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if maxWidth <= 0 || advance(face, line) <= maxWidth+0.5 {
			out = append(out, line)
			continue
		}
		out = append(out, wrapLine(face, line, maxWidth)...)
	}
	return out
}

func wrapLine(face font.Face, line string, maxWidth float64) []string {
	var out []string
	cur := ""
	for _, word := range splitKeepSpace(line) {
		if cur != "" && advance(face, cur+word) > maxWidth+0.5 {
			out = append(out, strings.TrimRightFunc(cur, unicode.IsSpace))
			word = strings.TrimLeftFunc(word, unicode.IsSpace)
			cur = ""
		}
		cur += word
		if advance(face, cur) > maxWidth+0.5 {
			parts := breakRunes(face, cur, maxWidth)
			out = append(out, parts[:len(parts)-1]...)
			cur = parts[len(parts)-1]
		}
	}
	return append(out, cur)
}

// splitKeepSpace splits before each run of spaces so words carry their
// leading separator.
func splitKeepSpace(s string) []string {
	var out []string
	start := 0
	prevSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if space && !prevSpace && i > start {
			out = append(out, s[start:i])
			start = i
		}
		prevSpace = space
	}
	return append(out, s[start:])
}

func breakRunes(face font.Face, s string, maxWidth float64) []string {
	var out []string
	var cur []rune
	for _, r := range s {
		if len(cur) > 0 && advance(face, string(append(cur, r))) > maxWidth+0.5 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	return append(out, string(cur))
}

// Measure reports the natural extent of text. It satisfies state.Measurer.
func (f *Fonts) Measure(text string, st state.Style, maxWidth float64) (float64, float64) {
	face := f.Face(st)
	lines := f.Layout(text, st, maxWidth)
	var w float64
	for _, l := range lines {
		w = max(w, advance(face, l))
	}
	return math.Ceil(w), float64(len(lines)) * st.LineHeight()
}

var SelectionColor = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}

// DrawAnnotation paints a committed annotation: optional background, text
// lines aligned within the box, underline, and a dashed outline when selected.
func (f *Fonts) DrawAnnotation(s *Surface, a state.Annotation) {
	if a.Blank() {
		return
	}
	if a.BackgroundColor != "" {
		if bg, err := ParseColor(a.BackgroundColor); err == nil {
			s.FillRect(int(math.Round(a.X)), int(math.Round(a.Y)), int(math.Round(a.Width)), int(math.Round(a.Height)), bg)
		}
	}

	face := f.Face(a.Style)
	fg := MustColor(a.Color, color.RGBA{A: 255})
	ascent := float64(face.Metrics().Ascent) / 64
	lh := a.LineHeight()
	thickness := max(1, int(math.Round(a.FontSize/14)))

	d := &font.Drawer{Dst: s.Img, Src: image.NewUniform(fg), Face: face}
	for i, line := range f.Layout(a.Text, a.Style, a.Width) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		w := advance(face, line)
		x := a.X
		switch a.Alignment {
		case state.AlignCenter:
			x = a.X + (a.Width-w)/2
		case state.AlignRight:
			x = a.X + a.Width - w
		}
		baseline := a.Y + float64(i)*lh + ascent
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(math.Round(x * 64)), Y: fixed.Int26_6(math.Round(baseline * 64))}
		d.DrawString(line)
		if a.TextDecoration == state.DecorationUnderline {
			s.FillRect(int(math.Round(x)), int(math.Round(baseline))+thickness, int(math.Ceil(w)), thickness, fg)
		}
	}

	if a.IsSelected {
		r := a.Bounds().Inset(2)
		s.StrokeDashedRect(int(math.Round(r.X)), int(math.Round(r.Y)), int(math.Round(r.Width)), int(math.Round(r.Height)), 2, 5, SelectionColor)
	}
}
