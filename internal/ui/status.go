package ui

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/example/pixshop/internal/theme"
)

const statusHeight = 24

// drawStatus paints the status bar into rect. The background reflects
// whether an edit is running or the last action failed.
func drawStatus(dst *image.RGBA, rect image.Rectangle, t *theme.Theme, st status) {
	bg := t.StatusBackground
	switch {
	case st.isErr:
		bg = t.StatusError
	case st.busy:
		bg = t.StatusBusy
	}
	draw.Draw(dst, rect, image.NewUniform(bg), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(t.Foreground), Face: face}
	text := fitText(d, st.text, rect.Dx()-16)
	m := face.Metrics()
	y := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(rect.Min.X+8, y)
	d.DrawString(text)
}

// fitText shortens s with an ellipsis until it fits in width pixels.
func fitText(d *font.Drawer, s string, width int) string {
	if width <= 0 {
		return ""
	}
	if d.MeasureString(s).Ceil() <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if d.MeasureString(string(r)+"...").Ceil() <= width {
			return string(r) + "..."
		}
	}
	return ""
}
