package output

import (
	"fmt"
	"math"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Attribute is a set of text attributes.
type Attribute uint16

// Text attribute flags.
const (
	AttrNone Attribute = 0
	AttrBold Attribute = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrStrikethrough
)

// Has returns true if the set contains attr.
func (a Attribute) Has(attr Attribute) bool {
	return a&attr != 0
}

var attrSGR = []struct {
	attr  Attribute
	param int
}{
	{AttrBold, 1},
	{AttrDim, 2},
	{AttrItalic, 3},
	{AttrUnderline, 4},
	{AttrBlink, 5},
	{AttrReverse, 7},
	{AttrStrikethrough, 9},
}

// Color is a terminal color: the default color, a palette index, or RGB.
type Color struct {
	R, G, B uint8
	// Indexed means R holds a palette index (0-255).
	Indexed bool
	// Default is the terminal's default color.
	Default bool
}

// ColorDefault is the terminal's default color.
var ColorDefault = Color{Default: true}

// ColorFromRGB creates a true color.
func ColorFromRGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// ColorFromIndex creates a palette color.
func ColorFromIndex(index uint8) Color {
	return Color{R: index, Indexed: true}
}

// ColorFromHex parses "#rrggbb".
func ColorFromHex(hex string) (Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return ColorFromRGB(r, g, b), nil
}

func (c Color) String() string {
	switch {
	case c.Default:
		return "default"
	case c.Indexed:
		return fmt.Sprintf("idx(%d)", c.R)
	default:
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
}

// Style is the visual style of a cell.
type Style struct {
	Fg    Color
	Bg    Color
	Attrs Attribute
}

// DefaultStyle uses the terminal default colors and no attributes.
func DefaultStyle() Style {
	return Style{Fg: ColorDefault, Bg: ColorDefault}
}

// WithFg returns s with the foreground replaced.
func (s Style) WithFg(c Color) Style {
	s.Fg = c
	return s
}

// WithBg returns s with the background replaced.
func (s Style) WithBg(c Color) Style {
	s.Bg = c
	return s
}

// WithAttrs returns s with attrs added.
func (s Style) WithAttrs(attrs Attribute) Style {
	s.Attrs |= attrs
	return s
}

// Invert swaps foreground and background.
func (s Style) Invert() Style {
	s.Fg, s.Bg = s.Bg, s.Fg
	return s
}

// ColorMode selects how RGB colors are written.
type ColorMode uint8

const (
	// ColorModeTrueColor writes 24-bit colors as-is.
	ColorModeTrueColor ColorMode = iota
	// ColorMode256 maps RGB colors to the nearest xterm palette entry.
	ColorMode256
)

func (m ColorMode) String() string {
	if m == ColorMode256 {
		return "256"
	}
	return "truecolor"
}

// ParseColorMode parses "truecolor" or "256".
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "truecolor", "24bit", "":
		return ColorModeTrueColor, nil
	case "256":
		return ColorMode256, nil
	}
	return ColorModeTrueColor, fmt.Errorf("unknown color mode %q", s)
}

var (
	paletteOnce sync.Once
	palette     [256]colorful.Color

	nearestMu    sync.Mutex
	nearestCache = map[[3]uint8]uint8{}
)

// buildPalette fills the xterm 256 color palette: 16 system colors, a
// 6x6x6 cube and a 24 step gray ramp.
func buildPalette() {
	system := [16][3]uint8{
		{0, 0, 0}, {128, 0, 0}, {0, 128, 0}, {128, 128, 0},
		{0, 0, 128}, {128, 0, 128}, {0, 128, 128}, {192, 192, 192},
		{128, 128, 128}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
		{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
	}
	for i, c := range system {
		palette[i] = rgb(c[0], c[1], c[2])
	}

	levels := [6]uint8{0, 95, 135, 175, 215, 255}
	for i := 0; i < 216; i++ {
		palette[16+i] = rgb(levels[i/36], levels[i/6%6], levels[i%6])
	}
	for i := 0; i < 24; i++ {
		v := uint8(8 + i*10)
		palette[232+i] = rgb(v, v, v)
	}
}

func rgb(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// Nearest256 returns the xterm palette index closest to c in Lab space.
func Nearest256(c Color) uint8 {
	if c.Indexed {
		return c.R
	}
	paletteOnce.Do(buildPalette)

	k := [3]uint8{c.R, c.G, c.B}
	nearestMu.Lock()
	defer nearestMu.Unlock()
	if idx, ok := nearestCache[k]; ok {
		return idx
	}

	target := rgb(c.R, c.G, c.B)
	best, bestDist := 0, math.MaxFloat64
	for i := range palette {
		if d := target.DistanceLab(palette[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	nearestCache[k] = uint8(best)
	return uint8(best)
}
