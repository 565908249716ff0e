package theme

import (
	"image/color"
	"reflect"
)

// Theme defines the colors of the viewer window.
type Theme struct {
	Name string

	Background color.RGBA // Window area around the image
	Foreground color.RGBA // Status text

	StatusBackground color.RGBA
	StatusBusy       color.RGBA // Status bar while a generative edit runs
	StatusError      color.RGBA

	// Canvas
	CheckerLight color.RGBA
	CheckerDark  color.RGBA

	// Overlays
	Stroke    color.RGBA // Mask brush, usually translucent
	Hotspot   color.RGBA
	Selection color.RGBA
}

// Default returns the hardcoded default light theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:             "Default",
		Background:       color.RGBA{236, 236, 236, 255},
		Foreground:       color.RGBA{20, 20, 20, 255},
		StatusBackground: color.RGBA{210, 210, 210, 255},
		StatusBusy:       color.RGBA{250, 220, 120, 255},
		StatusError:      color.RGBA{240, 150, 150, 255},
		CheckerLight:     color.RGBA{220, 220, 220, 255},
		CheckerDark:      color.RGBA{192, 192, 192, 255},
		Stroke:           color.RGBA{255, 40, 40, 128},
		Hotspot:          color.RGBA{59, 130, 246, 255},
		Selection:        color.RGBA{255, 255, 255, 255},
	}
}

var rgbaType = reflect.TypeOf(color.RGBA{})

// Fields lists the color settings in declaration order.
func Fields() []string {
	typ := reflect.TypeOf(Theme{})
	var out []string
	for i := 0; i < typ.NumField(); i++ {
		if f := typ.Field(i); f.Type == rgbaType {
			out = append(out, f.Name)
		}
	}
	return out
}

// Color returns the color named field, or the zero color when unknown.
func (t *Theme) Color(field string) color.RGBA {
	v := reflect.ValueOf(t).Elem().FieldByName(field)
	if !v.IsValid() || v.Type() != rgbaType {
		return color.RGBA{}
	}
	return v.Interface().(color.RGBA)
}
