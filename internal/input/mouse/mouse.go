package mouse

import (
	"strings"
	"time"

	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/input/key"
)

// MaxButtons is the number of buttons tracked independently.
const MaxButtons = 4

// Flags describes the buttons, wheel motion and modifiers of a mouse event.
type Flags uint32

const (
	Button1Pressed Flags = 1 << iota
	Button1Released
	Button1Clicked
	Button2Pressed
	Button2Released
	Button2Clicked
	Button3Pressed
	Button3Released
	Button3Clicked
	Button4Pressed
	Button4Released
	Button4Clicked

	WheeledUp
	WheeledDown
	WheeledLeft
	WheeledRight

	// ReportMousePosition marks motion without a button transition.
	ReportMousePosition

	ButtonShift
	ButtonCtrl
	ButtonAlt
)

// None is the empty flag set.
const None Flags = 0

const modifierMask = ButtonShift | ButtonCtrl | ButtonAlt

// Has returns true if all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2 && f2 != 0
}

// Modifiers returns the keyboard modifiers carried by the flags.
func (f Flags) Modifiers() key.Modifier {
	var m key.Modifier
	if f&ButtonShift != 0 {
		m |= key.ModShift
	}
	if f&ButtonCtrl != 0 {
		m |= key.ModCtrl
	}
	if f&ButtonAlt != 0 {
		m |= key.ModAlt
	}
	return m
}

// ModifierFlags converts keyboard modifiers to mouse flags.
func ModifierFlags(m key.Modifier) Flags {
	var f Flags
	if m.Has(key.ModShift) {
		f |= ButtonShift
	}
	if m.Has(key.ModCtrl) {
		f |= ButtonCtrl
	}
	if m.Has(key.ModAlt) {
		f |= ButtonAlt
	}
	return f
}

// OnlyModifiers returns f with every non-modifier bit cleared.
func (f Flags) OnlyModifiers() Flags {
	return f & modifierMask
}

// buttonShift returns the bit offset of the flags for button n (1-based).
func buttonShift(n int) int {
	return (n - 1) * 3
}

// PressedFlag returns the pressed flag for button n (1-4), or None.
func PressedFlag(n int) Flags {
	if n < 1 || n > MaxButtons {
		return None
	}
	return Button1Pressed << buttonShift(n)
}

// ReleasedFlag returns the released flag for button n (1-4), or None.
func ReleasedFlag(n int) Flags {
	if n < 1 || n > MaxButtons {
		return None
	}
	return Button1Released << buttonShift(n)
}

// ClickedFlag returns the clicked flag for button n (1-4), or None.
func ClickedFlag(n int) Flags {
	if n < 1 || n > MaxButtons {
		return None
	}
	return Button1Clicked << buttonShift(n)
}

var flagNames = []struct {
	flag Flags
	name string
}{
	{Button1Pressed, "Button1Pressed"},
	{Button1Released, "Button1Released"},
	{Button1Clicked, "Button1Clicked"},
	{Button2Pressed, "Button2Pressed"},
	{Button2Released, "Button2Released"},
	{Button2Clicked, "Button2Clicked"},
	{Button3Pressed, "Button3Pressed"},
	{Button3Released, "Button3Released"},
	{Button3Clicked, "Button3Clicked"},
	{Button4Pressed, "Button4Pressed"},
	{Button4Released, "Button4Released"},
	{Button4Clicked, "Button4Clicked"},
	{WheeledUp, "WheeledUp"},
	{WheeledDown, "WheeledDown"},
	{WheeledLeft, "WheeledLeft"},
	{WheeledRight, "WheeledRight"},
	{ReportMousePosition, "ReportMousePosition"},
	{ButtonShift, "ButtonShift"},
	{ButtonCtrl, "ButtonCtrl"},
	{ButtonAlt, "ButtonAlt"},
}

// String returns the set flag names joined with "|".
func (f Flags) String() string {
	if f == None {
		return "None"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// EventArgs is a mouse event delivered to observers.
type EventArgs struct {
	// Position is the cell under the pointer.
	Position geom.Point

	// Flags describes the event.
	Flags Flags

	// Handled is set by an observer to stop further delivery.
	Handled bool

	// Timestamp is when the sample was decoded.
	Timestamp time.Time
}

// IsWheel returns true for wheel events.
func (e *EventArgs) IsWheel() bool {
	return e.Flags&(WheeledUp|WheeledDown|WheeledLeft|WheeledRight) != 0
}

// ClickedButton returns the button (1-4) a click event refers to, or 0.
func (e *EventArgs) ClickedButton() int {
	for n := 1; n <= MaxButtons; n++ {
		if e.Flags.Has(ClickedFlag(n)) {
			return n
		}
	}
	return 0
}

// Config holds mouse interpretation settings.
type Config struct {
	// DoubleClickThreshold is the maximum gap between clicks of a double click.
	DoubleClickThreshold time.Duration

	// TripleClickThreshold is the maximum gap between the first and third click.
	TripleClickThreshold time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		DoubleClickThreshold: 500 * time.Millisecond,
		TripleClickThreshold: 1000 * time.Millisecond,
	}
}
