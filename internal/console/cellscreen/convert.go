package cellscreen

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/condriver/internal/console"
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/key"
	"github.com/dshills/condriver/internal/input/mouse"
	"github.com/dshills/condriver/internal/output"
)

// convertEvent converts a screen event to a record. Events with no record
// form (paste markers, focus, interrupts) are skipped.
func convertEvent(ev tcell.Event) (console.Record, bool) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		kev, ok := convertKey(e)
		if !ok {
			return console.Record{}, false
		}
		return console.KeyRecord(kev), true

	case *tcell.EventMouse:
		x, y := e.Position()
		flags := convertButtons(e.Buttons()) | convertMod(e.Modifiers())
		return console.MouseRecord(geom.Pt(x, y), flags), true

	case *tcell.EventResize:
		w, h := e.Size()
		return console.ResizeRecord(geom.Size{Width: w, Height: h}), true

	default:
		return console.Record{}, false
	}
}

var specialKeys = map[tcell.Key]key.Key{
	tcell.KeyEscape:     key.KeyEscape,
	tcell.KeyEnter:      key.KeyEnter,
	tcell.KeyTab:        key.KeyTab,
	tcell.KeyBacktab:    key.KeyBacktab,
	tcell.KeyBackspace:  key.KeyBackspace,
	tcell.KeyBackspace2: key.KeyBackspace,
	tcell.KeyDelete:     key.KeyDelete,
	tcell.KeyInsert:     key.KeyInsert,
	tcell.KeyHome:       key.KeyHome,
	tcell.KeyEnd:        key.KeyEnd,
	tcell.KeyPgUp:       key.KeyPageUp,
	tcell.KeyPgDn:       key.KeyPageDown,
	tcell.KeyUp:         key.KeyUp,
	tcell.KeyDown:       key.KeyDown,
	tcell.KeyLeft:       key.KeyLeft,
	tcell.KeyRight:      key.KeyRight,
	tcell.KeyF1:         key.KeyF1,
	tcell.KeyF2:         key.KeyF2,
	tcell.KeyF3:         key.KeyF3,
	tcell.KeyF4:         key.KeyF4,
	tcell.KeyF5:         key.KeyF5,
	tcell.KeyF6:         key.KeyF6,
	tcell.KeyF7:         key.KeyF7,
	tcell.KeyF8:         key.KeyF8,
	tcell.KeyF9:         key.KeyF9,
	tcell.KeyF10:        key.KeyF10,
	tcell.KeyF11:        key.KeyF11,
	tcell.KeyF12:        key.KeyF12,
}

func convertKey(e *tcell.EventKey) (key.Event, bool) {
	mods := convertKeyMod(e.Modifiers())
	now := time.Now()

	k := e.Key()
	if k == tcell.KeyRune {
		ev := key.NewRuneEvent(e.Rune(), mods)
		ev.Timestamp = now
		return *ev, true
	}
	if special, ok := specialKeys[k]; ok {
		ev := key.NewSpecialEvent(special, mods)
		ev.Timestamp = now
		return *ev, true
	}
	if k == tcell.KeyCtrlSpace {
		ev := key.NewRuneEvent(' ', mods|key.ModCtrl)
		ev.Timestamp = now
		return *ev, true
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		ev := key.NewRuneEvent(rune('a'+int(k-tcell.KeyCtrlA)), mods|key.ModCtrl)
		ev.Timestamp = now
		return *ev, true
	}
	return key.Event{}, false
}

func convertKeyMod(m tcell.ModMask) key.Modifier {
	var mods key.Modifier
	if m&tcell.ModShift != 0 {
		mods |= key.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		mods |= key.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		mods |= key.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		mods |= key.ModMeta
	}
	return mods
}

func convertMod(m tcell.ModMask) mouse.Flags {
	return mouse.ModifierFlags(convertKeyMod(m))
}

// convertButtons maps the held button mask to pressed flags. Buttons are
// numbered left, middle, right, extra to match SGR mouse reports.
func convertButtons(b tcell.ButtonMask) mouse.Flags {
	var f mouse.Flags
	if b&tcell.ButtonPrimary != 0 {
		f |= mouse.PressedFlag(1)
	}
	if b&tcell.ButtonMiddle != 0 {
		f |= mouse.PressedFlag(2)
	}
	if b&tcell.ButtonSecondary != 0 {
		f |= mouse.PressedFlag(3)
	}
	if b&tcell.Button4 != 0 {
		f |= mouse.PressedFlag(4)
	}
	if b&tcell.WheelUp != 0 {
		f |= mouse.WheeledUp
	}
	if b&tcell.WheelDown != 0 {
		f |= mouse.WheeledDown
	}
	if b&tcell.WheelLeft != 0 {
		f |= mouse.WheeledLeft
	}
	if b&tcell.WheelRight != 0 {
		f |= mouse.WheeledRight
	}
	if f == mouse.None {
		f = mouse.ReportMousePosition
	}
	return f
}

// splitGrapheme returns the base rune and combining runes of a cluster.
func splitGrapheme(g string) (rune, []rune) {
	if g == "" {
		return ' ', nil
	}
	runes := []rune(g)
	if len(runes) == 1 {
		return runes[0], nil
	}
	return runes[0], runes[1:]
}

func convertStyle(s output.Style, mode output.ColorMode) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(convertColor(s.Fg, mode)).
		Background(convertColor(s.Bg, mode))

	if s.Attrs.Has(output.AttrBold) {
		style = style.Bold(true)
	}
	if s.Attrs.Has(output.AttrDim) {
		style = style.Dim(true)
	}
	if s.Attrs.Has(output.AttrItalic) {
		style = style.Italic(true)
	}
	if s.Attrs.Has(output.AttrUnderline) {
		style = style.Underline(true)
	}
	if s.Attrs.Has(output.AttrBlink) {
		style = style.Blink(true)
	}
	if s.Attrs.Has(output.AttrReverse) {
		style = style.Reverse(true)
	}
	if s.Attrs.Has(output.AttrStrikethrough) {
		style = style.StrikeThrough(true)
	}
	return style
}

func convertColor(c output.Color, mode output.ColorMode) tcell.Color {
	switch {
	case c.Default:
		return tcell.ColorDefault
	case c.Indexed:
		return tcell.PaletteColor(int(c.R))
	case mode == output.ColorMode256:
		return tcell.PaletteColor(int(output.Nearest256(c)))
	default:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
}
