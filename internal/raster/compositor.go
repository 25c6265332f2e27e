package raster

import (
	"image"
	"image/draw"

	"ClassBoard/internal/state"
)

// Redraw rebuilds the visible surface: the cache is copied over it, then every
// annotation that is not being edited is painted in list order. The list is
// expected in z-order.
func Redraw(p *Pair, fonts *Fonts, list []state.Annotation) {
	p.Realign()
	draw.Draw(p.Visible.Img, p.Visible.Img.Bounds(), p.Cache.Img, image.Point{}, draw.Src)
	for _, a := range list {
		if a.IsEditing {
			continue
		}
		fonts.DrawAnnotation(p.Visible, a)
	}
}
