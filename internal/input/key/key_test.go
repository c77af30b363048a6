package key

import (
	"errors"
	"testing"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{KeyNone, "None"},
		{KeyEscape, "Escape"},
		{KeyBacktab, "Backtab"},
		{KeyPageDown, "PageDown"},
		{KeyF1, "F1"},
		{KeyF12, "F12"},
		{KeyRune, "Rune"},
		{Key(999), "Key(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("Key.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFunctionKey(t *testing.T) {
	tests := []struct {
		n    int
		want Key
	}{
		{1, KeyF1},
		{5, KeyF5},
		{12, KeyF12},
		{0, KeyNone},
		{13, KeyNone},
	}

	for _, tt := range tests {
		if got := FunctionKey(tt.n); got != tt.want {
			t.Errorf("FunctionKey(%d) = %v, want %v", tt.n, got, tt.want)
		}
		if tt.want != KeyNone && !tt.want.IsFunctionKey() {
			t.Errorf("%v.IsFunctionKey() = false", tt.want)
		}
	}
}

func TestKeyFromName(t *testing.T) {
	tests := []struct {
		name string
		want Key
	}{
		{"escape", KeyEscape},
		{"Esc", KeyEscape},
		{"CR", KeyEnter},
		{"pgdn", KeyPageDown},
		{"f10", KeyF10},
		{"rune", KeyNone},
		{"bogus", KeyNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFromName(tt.name); got != tt.want {
				t.Errorf("KeyFromName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFromXterm(t *testing.T) {
	tests := []struct {
		param int
		want  Modifier
	}{
		{0, ModNone},
		{1, ModNone},
		{2, ModShift},
		{3, ModAlt},
		{5, ModCtrl},
		{6, ModCtrl | ModShift},
		{8, ModCtrl | ModAlt | ModShift},
		{9, ModMeta},
	}

	for _, tt := range tests {
		if got := FromXterm(tt.param); got != tt.want {
			t.Errorf("FromXterm(%d) = %v, want %v", tt.param, got, tt.want)
		}
	}
}

func TestModifierString(t *testing.T) {
	if got := (ModShift | ModCtrl).String(); got != "Ctrl+Shift" {
		t.Errorf("String() = %q", got)
	}
	if got := ModNone.String(); got != "" {
		t.Errorf("ModNone.String() = %q", got)
	}
	m := ModCtrl.With(ModAlt).Without(ModCtrl)
	if m != ModAlt {
		t.Errorf("With/Without = %v, want Alt", m)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		key  Key
		r    rune
		mods Modifier
	}{
		{"a", KeyRune, 'a', ModNone},
		{"Enter", KeyEnter, 0, ModNone},
		{"Ctrl+Q", KeyRune, 'q', ModCtrl},
		{"<C-q>", KeyRune, 'q', ModCtrl},
		{"Alt+Left", KeyLeft, 0, ModAlt},
		{"Ctrl+Shift+Up", KeyUp, 0, ModCtrl | ModShift},
		{"<Esc>", KeyEscape, 0, ModNone},
		{"<Space>", KeyRune, ' ', ModNone},
		{"<A-F4>", KeyF4, 0, ModAlt},
		{"+", KeyRune, '+', ModNone},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			ev, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.spec, err)
			}
			if ev.Key != tt.key || ev.Rune != tt.r || ev.Modifiers != tt.mods {
				t.Errorf("Parse(%q) = %#v", tt.spec, ev)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		spec string
		want error
	}{
		{"", ErrEmptySpec},
		{"   ", ErrEmptySpec},
		{"Hyper+a", ErrInvalidSpec},
		{"<X-a>", ErrInvalidSpec},
		{"notakey", ErrInvalidSpec},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if _, err := Parse(tt.spec); !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.spec, err, tt.want)
			}
		})
	}
}

func TestEventMatches(t *testing.T) {
	ev := NewRuneEvent('q', ModCtrl)
	ev.Handled = true

	if !ev.Matches("Ctrl+Q") {
		t.Error("Ctrl+q should match Ctrl+Q")
	}
	if ev.Matches("q") {
		t.Error("Ctrl+q should not match q")
	}
	if ev.Clone().Handled {
		t.Error("Clone should clear Handled")
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   *Event
		want string
	}{
		{NewRuneEvent('a', ModNone), "a"},
		{NewRuneEvent(' ', ModNone), "<Space>"},
		{NewRuneEvent('q', ModCtrl), "<C-q>"},
		{NewSpecialEvent(KeyEscape, ModNone), "<Esc>"},
		{NewSpecialEvent(KeyUp, ModShift|ModAlt), "<A-S-Up>"},
	}

	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if !tt.ev.Equals(MustParse(tt.want)) {
			t.Errorf("MustParse(%q) does not round-trip", tt.want)
		}
	}
}

func TestEventIsChar(t *testing.T) {
	tests := []struct {
		ev   *Event
		want bool
	}{
		{NewRuneEvent('a', ModNone), true},
		{NewRuneEvent('A', ModShift), true},
		{NewRuneEvent('a', ModCtrl), false},
		{NewRuneEvent('\n', ModNone), false},
		{NewSpecialEvent(KeyEnter, ModNone), false},
	}

	for _, tt := range tests {
		if got := tt.ev.IsChar(); got != tt.want {
			t.Errorf("%v.IsChar() = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
