package key

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Event is a decoded key press.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the modifier keys held.
	Modifiers Modifier

	// Handled is set by an observer to stop further delivery.
	Handled bool

	// Timestamp is when the event was decoded.
	Timestamp time.Time
}

// NewEvent creates a key event stamped with the current time.
func NewEvent(k Key, r rune, mods Modifier) *Event {
	return &Event{Key: k, Rune: r, Modifiers: mods, Timestamp: time.Now()}
}

// NewRuneEvent creates a character key event.
func NewRuneEvent(r rune, mods Modifier) *Event {
	return NewEvent(KeyRune, r, mods)
}

// NewSpecialEvent creates a special key event.
func NewSpecialEvent(k Key, mods Modifier) *Event {
	return NewEvent(k, 0, mods)
}

// IsRune returns true if this is a character key event.
func (e *Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsChar returns true if this is a printable character without Ctrl, Alt or Meta.
func (e *Event) IsChar() bool {
	return e.IsRune() && unicode.IsPrint(e.Rune) && !e.Modifiers.Has(ModCtrl|ModAlt|ModMeta)
}

// Equals reports whether two events describe the same key press.
// Handled and Timestamp are ignored.
func (e *Event) Equals(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Key == other.Key && e.Rune == other.Rune && e.Modifiers == other.Modifiers
}

// Matches reports whether the event matches a key specification string.
func (e *Event) Matches(spec string) bool {
	parsed, err := Parse(spec)
	if err != nil {
		return false
	}
	return e.Equals(parsed)
}

// Clone returns a copy with Handled cleared.
func (e *Event) Clone() *Event {
	c := *e
	c.Handled = false
	return &c
}

// String returns a Vim-style representation such as "<C-q>", "<Esc>" or "a".
func (e *Event) String() string {
	if e.IsRune() && !e.Modifiers.Has(ModCtrl|ModAlt|ModMeta) {
		if e.Rune == ' ' {
			return "<Space>"
		}
		return string(e.Rune)
	}

	var b strings.Builder
	b.WriteByte('<')
	if e.Modifiers.Has(ModCtrl) {
		b.WriteString("C-")
	}
	if e.Modifiers.Has(ModAlt) {
		b.WriteString("A-")
	}
	if e.Modifiers.Has(ModMeta) {
		b.WriteString("D-")
	}
	if e.Modifiers.Has(ModShift) && !e.IsRune() {
		b.WriteString("S-")
	}

	switch e.Key {
	case KeyRune:
		if e.Rune == ' ' {
			b.WriteString("Space")
		} else {
			b.WriteRune(e.Rune)
		}
	case KeyEscape:
		b.WriteString("Esc")
	case KeyEnter:
		b.WriteString("CR")
	case KeyBackspace:
		b.WriteString("BS")
	case KeyDelete:
		b.WriteString("Del")
	default:
		b.WriteString(e.Key.String())
	}
	b.WriteByte('>')
	return b.String()
}

// GoString implements fmt.GoStringer for debugging.
func (e *Event) GoString() string {
	return fmt.Sprintf("key.Event{Key: %s, Rune: %q, Modifiers: %s, Handled: %v}",
		e.Key, e.Rune, e.Modifiers, e.Handled)
}
