package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key specification string into an Event.
//
// Supported formats:
//   - Single character or key name: "a", "@", "Enter", "F5"
//   - With modifiers: "Ctrl+Q", "Alt+Left", "Ctrl+Shift+Up"
//   - Vim-style: "<C-q>", "<A-Left>", "<CR>", "<Esc>", "<Space>"
//
// Ctrl combinations with letters are normalized to lowercase, matching what
// the input decoders produce for control bytes.
func Parse(spec string) (*Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptySpec
	}

	var (
		mods  Modifier
		parts []string
	)
	switch {
	case len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">"):
		parts = strings.Split(spec[1:len(spec)-1], "-")
	case len(spec) > 1 && strings.Contains(spec, "+"):
		parts = strings.Split(spec, "+")
	default:
		parts = []string{spec}
	}

	for _, p := range parts[:len(parts)-1] {
		mod := ModifierFromName(p)
		if mod == ModNone {
			return nil, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(mod)
	}

	return parseKey(strings.TrimSpace(parts[len(parts)-1]), mods)
}

func parseKey(name string, mods Modifier) (*Event, error) {
	if name == "" {
		return nil, ErrInvalidSpec
	}

	switch strings.ToLower(name) {
	case "space":
		return NewRuneEvent(' ', mods), nil
	case "lt":
		return NewRuneEvent('<', mods), nil
	case "gt":
		return NewRuneEvent('>', mods), nil
	case "bar":
		return NewRuneEvent('|', mods), nil
	}

	if k := KeyFromName(name); k != KeyNone {
		return NewSpecialEvent(k, mods), nil
	}

	runes := []rune(name)
	if len(runes) != 1 {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, name)
	}

	r := runes[0]
	if mods.Has(ModCtrl) {
		r = unicode.ToLower(r)
	}
	return NewRuneEvent(r, mods), nil
}

// MustParse parses a key specification and panics on error.
func MustParse(spec string) *Event {
	ev, err := Parse(spec)
	if err != nil {
		panic("invalid key specification: " + spec + ": " + err.Error())
	}
	return ev
}
