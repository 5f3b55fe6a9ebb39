package core

import "strings"

// ColorTag is one entry of the closed category palette.
type ColorTag string

const (
	ColorTeal   ColorTag = "teal"
	ColorBlue   ColorTag = "blue"
	ColorRed    ColorTag = "red"
	ColorPurple ColorTag = "purple"
	ColorGreen  ColorTag = "green"
	ColorOrange ColorTag = "orange"
	ColorPink   ColorTag = "pink"
	ColorYellow ColorTag = "yellow"
	ColorCyan   ColorTag = "cyan"
	ColorSlate  ColorTag = "slate"

	DefaultColor = ColorSlate
)

// DefaultIcon is the map-pin shape used when a category has none.
const DefaultIcon = "M17.657 16.657L13.414 20.9a1.998 1.998 0 01-2.827 0l-4.244-4.243a8 8 0 1111.314 0z M15 11a3 3 0 11-6 0 3 3 0 016 0z"

var palette = map[ColorTag]string{
	ColorTeal:   "#00bab3",
	ColorBlue:   "#3b82f6",
	ColorRed:    "#ef4444",
	ColorPurple: "#a855f7",
	ColorGreen:  "#22c55e",
	ColorOrange: "#f97316",
	ColorPink:   "#ec4899",
	ColorYellow: "#eab308",
	ColorCyan:   "#06b6d4",
	ColorSlate:  "#64748b",
}

// Colors lists the palette in picker order.
func Colors() []ColorTag {
	return []ColorTag{
		ColorTeal, ColorBlue, ColorRed, ColorPurple, ColorGreen,
		ColorOrange, ColorPink, ColorYellow, ColorCyan, ColorSlate,
	}
}

// NormalizeColor maps s onto the palette, falling back to DefaultColor.
func NormalizeColor(s string) ColorTag {
	c := ColorTag(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := palette[c]; ok {
		return c
	}
	return DefaultColor
}

func (c ColorTag) Valid() bool {
	_, ok := palette[c]
	return ok
}

// Hex returns the chart color; unknown tags render as DefaultColor.
func (c ColorTag) Hex() string {
	if h, ok := palette[c]; ok {
		return h
	}
	return palette[DefaultColor]
}
