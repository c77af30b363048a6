package ansi

import (
	"reflect"
	"testing"
	"time"

	"github.com/dshills/condriver/internal/input/key"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func keysOf(t *testing.T, toks []Token) []key.Event {
	t.Helper()
	var out []key.Event
	for _, tok := range toks {
		if tok.Kind != TokenKey {
			t.Fatalf("unexpected %v token: %q", tok.Kind, tok.Raw)
		}
		out = append(out, *tok.Key)
	}
	return out
}

func TestParserKeys(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   key.Key
		r     rune
		mods  key.Modifier
	}{
		{"printable", "a", key.KeyRune, 'a', key.ModNone},
		{"ctrl q", "\x11", key.KeyRune, 'q', key.ModCtrl},
		{"ctrl space", "\x00", key.KeyRune, ' ', key.ModCtrl},
		{"enter", "\r", key.KeyEnter, 0, key.ModNone},
		{"tab", "\t", key.KeyTab, 0, key.ModNone},
		{"del", "\x7f", key.KeyBackspace, 0, key.ModNone},
		{"up", "\x1b[A", key.KeyUp, 0, key.ModNone},
		{"ctrl right", "\x1b[1;5C", key.KeyRight, 0, key.ModCtrl},
		{"delete", "\x1b[3~", key.KeyDelete, 0, key.ModNone},
		{"shift f5", "\x1b[15;2~", key.KeyF5, 0, key.ModShift},
		{"f12", "\x1b[24~", key.KeyF12, 0, key.ModNone},
		{"ss3 f1", "\x1bOP", key.KeyF1, 0, key.ModNone},
		{"ss3 home", "\x1bOH", key.KeyHome, 0, key.ModNone},
		{"backtab", "\x1b[Z", key.KeyBacktab, 0, key.ModNone},
		{"alt a", "\x1ba", key.KeyRune, 'a', key.ModAlt},
		{"alt ctrl x", "\x1b\x18", key.KeyRune, 'x', key.ModCtrl | key.ModAlt},
		{"alt escape", "\x1b\x1b", key.KeyEscape, 0, key.ModAlt},
		{"utf8", "é", key.KeyRune, 'é', key.ModNone},
		{"alt utf8", "\x1bé", key.KeyRune, 'é', key.ModAlt},
		{"emoji", "😀", key.KeyRune, '😀', key.ModNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(0)
			got := keysOf(t, p.Feed([]byte(tt.input), t0))
			if len(got) != 1 {
				t.Fatalf("got %d keys, want 1", len(got))
			}
			if got[0].Key != tt.key || got[0].Rune != tt.r || got[0].Modifiers != tt.mods {
				t.Errorf("got %#v", &got[0])
			}
			if p.Pending() {
				t.Error("parser left a pending sequence")
			}
		})
	}
}

func TestParserSplitReads(t *testing.T) {
	p := NewParser(0)

	chunks := []string{"\x1b", "[1;", "5A", "\xc3", "\xa9", "z"}
	var toks []Token
	for _, c := range chunks {
		toks = append(toks, p.Feed([]byte(c), t0)...)
	}

	got := keysOf(t, toks)
	want := []struct {
		k    key.Key
		r    rune
		mods key.Modifier
	}{
		{key.KeyUp, 0, key.ModCtrl},
		{key.KeyRune, 'é', key.ModNone},
		{key.KeyRune, 'z', key.ModNone},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Key != w.k || got[i].Rune != w.r || got[i].Modifiers != w.mods {
			t.Errorf("key %d = %#v", i, &got[i])
		}
	}
}

func TestParserEscapeTimeout(t *testing.T) {
	p := NewParser(50 * time.Millisecond)

	if toks := p.Feed([]byte{0x1b}, t0); len(toks) != 0 {
		t.Fatalf("lone ESC produced %d tokens", len(toks))
	}
	if !p.Pending() {
		t.Fatal("ESC should be pending")
	}
	if toks := p.Expire(t0.Add(10 * time.Millisecond)); len(toks) != 0 {
		t.Fatal("ESC released before timeout")
	}

	got := keysOf(t, p.Expire(t0.Add(50*time.Millisecond)))
	if len(got) != 1 || got[0].Key != key.KeyEscape || got[0].Modifiers != key.ModNone {
		t.Fatalf("Expire = %v", got)
	}
	if p.Pending() {
		t.Error("parser still pending after Expire")
	}
}

func TestParserExpireAltBracket(t *testing.T) {
	p := NewParser(50 * time.Millisecond)
	p.Feed([]byte("\x1b["), t0)

	got := keysOf(t, p.Expire(t0.Add(time.Second)))
	if len(got) != 1 || got[0].Rune != '[' || got[0].Modifiers != key.ModAlt {
		t.Fatalf("Expire = %v", got)
	}
}

func TestParserExpirePartialSequence(t *testing.T) {
	p := NewParser(50 * time.Millisecond)
	p.Feed([]byte("\x1b[12;4"), t0)

	toks := p.Expire(t0.Add(time.Second))
	if len(toks) != 1 || toks[0].Kind != TokenMalformed || string(toks[0].Raw) != "\x1b[12;4" {
		t.Fatalf("Expire = %+v", toks)
	}
}

func TestParserMouse(t *testing.T) {
	p := NewParser(0)
	toks := p.Feed([]byte("\x1b[<0;10;5M\x1b[<16;10;5m\x1b[<65;1;1M"), t0)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens", len(toks))
	}

	press := toks[0].Mouse
	if toks[0].Kind != TokenMouse || press.Code != 0 || press.X != 9 || press.Y != 4 || press.Release {
		t.Errorf("press = %+v", toks[0])
	}
	if press.Button() != 1 {
		t.Errorf("press button = %d", press.Button())
	}

	release := toks[1].Mouse
	if !release.Release || release.Button() != 1 || release.Modifiers() != key.ModCtrl {
		t.Errorf("release = %+v", release)
	}

	wheel := toks[2].Mouse
	if !wheel.IsWheel() || wheel.Button() != 0 {
		t.Errorf("wheel = %+v", wheel)
	}
	if dx, dy := wheel.Wheel(); dx != 0 || dy != 1 {
		t.Errorf("wheel direction = %d,%d", dx, dy)
	}
}

func TestMouseReportButtons(t *testing.T) {
	tests := []struct {
		code   int
		button int
		motion bool
	}{
		{0, 1, false},
		{1, 2, false},
		{2, 3, false},
		{3, 0, false},
		{128, 4, false},
		{32, 1, true},
		{35, 0, true},
	}

	for _, tt := range tests {
		m := MouseReport{Code: tt.code}
		if m.Button() != tt.button || m.IsMotion() != tt.motion {
			t.Errorf("code %d: button %d motion %v", tt.code, m.Button(), m.IsMotion())
		}
	}
}

func TestParserSequences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Sequence
	}{
		{
			"cursor position report",
			"\x1b[12;40R",
			Sequence{Introducer: IntroCSI, Params: []int{12, 40}, Final: 'R'},
		},
		{
			"device attributes",
			"\x1b[?1;2c",
			Sequence{Introducer: IntroCSI, Private: '?', Params: []int{1, 2}, Final: 'c'},
		},
		{
			"window size",
			"\x1b[8;24;80t",
			Sequence{Introducer: IntroCSI, Params: []int{8, 24, 80}, Final: 't'},
		},
		{
			"focus in",
			"\x1b[I",
			Sequence{Introducer: IntroCSI, Final: 'I'},
		},
		{
			"osc bel",
			"\x1b]11;rgb:0000/0000/0000\x07",
			Sequence{Introducer: IntroOSC, Data: "11;rgb:0000/0000/0000"},
		},
		{
			"osc st",
			"\x1b]10;?\x1b\\",
			Sequence{Introducer: IntroOSC, Data: "10;?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := NewParser(0).Feed([]byte(tt.input), t0)
			if len(toks) != 1 || toks[0].Kind != TokenSequence {
				t.Fatalf("tokens = %+v", toks)
			}
			if !reflect.DeepEqual(toks[0].Seq, tt.want) {
				t.Errorf("Seq = %#v, want %#v", toks[0].Seq, tt.want)
			}
		})
	}
}

func TestParserAbortedSequence(t *testing.T) {
	toks := NewParser(0).Feed([]byte("\x1b[12\x03x"), t0)
	if len(toks) != 3 {
		t.Fatalf("got %d tokens: %+v", len(toks), toks)
	}
	if toks[0].Kind != TokenMalformed || string(toks[0].Raw) != "\x1b[12" {
		t.Errorf("first token = %+v", toks[0])
	}
	if toks[1].Kind != TokenKey || toks[1].Key.Rune != 'c' || toks[1].Key.Modifiers != key.ModCtrl {
		t.Errorf("second token = %+v", toks[1])
	}
	if toks[2].Kind != TokenKey || toks[2].Key.Rune != 'x' {
		t.Errorf("third token = %+v", toks[2])
	}
}

func TestSequenceHelpers(t *testing.T) {
	seq := Sequence{Introducer: IntroCSI, Private: '?', Params: []int{1, -1, 5}, Final: 'c'}
	if got := seq.String(); got != "ESC[?1;;5c" {
		t.Errorf("String() = %q", got)
	}
	if seq.Param(1, 7) != 7 || seq.Param(2, 0) != 5 || seq.Param(9, 3) != 3 {
		t.Error("Param defaults wrong")
	}
	if !seq.Is('?', 'c') || seq.Is(0, 'c') {
		t.Error("Is mismatch")
	}

	if got := parseParams([]byte("1;;5")); !reflect.DeepEqual(got, []int{1, -1, 5}) {
		t.Errorf("parseParams = %v", got)
	}
	if got := parseParams([]byte("38:2:1")); !reflect.DeepEqual(got, []int{38}) {
		t.Errorf("parseParams with sub-params = %v", got)
	}
}

func TestAppendHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want string
	}{
		{"cursor", AppendCursorPosition(nil, 4, 2), "\x1b[3;5H"},
		{"fg rgb", AppendFgRGB(nil, 255, 0, 10), "\x1b[38;2;255;0;10m"},
		{"bg rgb", AppendBgRGB(nil, 1, 2, 3), "\x1b[48;2;1;2;3m"},
		{"fg 256", AppendFg256(nil, 196), "\x1b[38;5;196m"},
		{"bg 256", AppendBg256(nil, 0), "\x1b[48;5;0m"},
		{"reset", AppendSGR(nil), "\x1b[m"},
	}

	for _, tt := range tests {
		if string(tt.got) != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
