package ansi

import (
	"time"
	"unicode/utf8"

	"github.com/dshills/condriver/internal/input/key"
)

// DefaultEscapeTimeout is how long a lone ESC waits for continuation bytes.
const DefaultEscapeTimeout = 50 * time.Millisecond

const (
	maxCSILen = 64
	maxOSCLen = 512
)

// TokenKind classifies parser output.
type TokenKind uint8

const (
	// TokenKey is a decoded key press.
	TokenKey TokenKind = iota
	// TokenMouse is an SGR mouse report.
	TokenMouse
	// TokenSequence is a complete control sequence that is not a key or mouse
	// report, typically a query response.
	TokenSequence
	// TokenMalformed is a sequence that was aborted or timed out.
	TokenMalformed
)

func (k TokenKind) String() string {
	switch k {
	case TokenKey:
		return "key"
	case TokenMouse:
		return "mouse"
	case TokenSequence:
		return "sequence"
	case TokenMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// MouseReport is a decoded SGR mouse report (CSI < code ; x ; y M|m).
type MouseReport struct {
	// Code is the raw button code.
	Code int
	// X and Y are zero-based cell coordinates.
	X, Y int
	// Release is true for the 'm' terminator.
	Release bool
}

// IsWheel returns true for wheel reports.
func (m MouseReport) IsWheel() bool {
	return m.Code&64 != 0
}

// IsMotion returns true for motion reports.
func (m MouseReport) IsMotion() bool {
	return m.Code&32 != 0
}

// Button returns the button number 1-4, or 0 for wheel and buttonless motion.
// Button 4 is the first extended button (code 128).
func (m MouseReport) Button() int {
	if m.IsWheel() {
		return 0
	}
	if m.Code&128 != 0 {
		if m.Code&3 == 0 {
			return 4
		}
		return 0
	}
	switch m.Code & 3 {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 3
	}
	return 0
}

// Wheel returns the wheel direction as (dx, dy); (0, 0) for non-wheel reports.
func (m MouseReport) Wheel() (dx, dy int) {
	if !m.IsWheel() {
		return 0, 0
	}
	switch m.Code & 3 {
	case 0:
		return 0, -1
	case 1:
		return 0, 1
	case 2:
		return -1, 0
	default:
		return 1, 0
	}
}

// Modifiers returns the keyboard modifiers encoded in the button code.
func (m MouseReport) Modifiers() key.Modifier {
	var mods key.Modifier
	if m.Code&4 != 0 {
		mods |= key.ModShift
	}
	if m.Code&8 != 0 {
		mods |= key.ModAlt
	}
	if m.Code&16 != 0 {
		mods |= key.ModCtrl
	}
	return mods
}

// Token is one unit of parser output.
type Token struct {
	Kind  TokenKind
	Key   *key.Event
	Mouse MouseReport
	Seq   Sequence
	// Raw holds the bytes of sequence and malformed tokens.
	Raw []byte
}

type parserState uint8

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
	stateSS3
	stateOSC
	stateOSCEscape
	stateUTF8
)

// Parser decodes a terminal input byte stream one byte at a time. Partial
// sequences are kept across Feed calls, so reads may split anywhere.
//
// A Parser is not safe for concurrent use.
type Parser struct {
	// EscapeTimeout is how long a partial sequence may wait before Expire
	// releases it.
	EscapeTimeout time.Duration

	state   parserState
	buf     []byte
	need    int
	alt     bool
	started time.Time
	out     []Token
}

// NewParser creates a parser with the given escape timeout.
func NewParser(escapeTimeout time.Duration) *Parser {
	if escapeTimeout <= 0 {
		escapeTimeout = DefaultEscapeTimeout
	}
	return &Parser{
		EscapeTimeout: escapeTimeout,
		buf:           make([]byte, 0, 32),
	}
}

// Feed decodes data and returns the tokens it completed.
func (p *Parser) Feed(data []byte, now time.Time) []Token {
	p.out = nil
	for _, b := range data {
		p.step(b, now)
	}
	return p.out
}

// Pending reports whether a partial sequence is buffered.
func (p *Parser) Pending() bool {
	return p.state != stateGround
}

// Expire releases a partial sequence that has waited at least
// EscapeTimeout. A lone ESC becomes the Escape key, ESC [ and ESC O become
// Alt+[ and Alt+O, and anything longer is reported as malformed.
func (p *Parser) Expire(now time.Time) []Token {
	if p.state == stateGround || now.Sub(p.started) < p.EscapeTimeout {
		return nil
	}
	p.out = nil

	switch {
	case p.state == stateEscape:
		p.emitKey(key.KeyEscape, 0, key.ModNone, now)
	case (p.state == stateCSI || p.state == stateSS3) && len(p.buf) == 2:
		p.emitKey(key.KeyRune, rune(p.buf[1]), key.ModAlt, now)
	default:
		p.emitMalformed()
	}
	p.reset()
	return p.out
}

func (p *Parser) reset() {
	p.state = stateGround
	p.buf = p.buf[:0]
	p.need = 0
	p.alt = false
}

func (p *Parser) step(b byte, now time.Time) {
	switch p.state {
	case stateGround:
		p.ground(b, now)

	case stateEscape:
		p.escape(b, now)

	case stateCSI:
		p.buf = append(p.buf, b)
		switch {
		case b >= 0x40 && b <= 0x7e:
			p.finishCSI(now)
			p.reset()
		case b >= 0x20 && b <= 0x3f:
			if len(p.buf) > maxCSILen {
				p.emitMalformed()
				p.reset()
			}
		default:
			p.buf = p.buf[:len(p.buf)-1]
			p.abort(b, now)
		}

	case stateSS3:
		p.buf = append(p.buf, b)
		switch {
		case b >= '0' && b <= '9' || b == ';':
			if len(p.buf) > maxCSILen {
				p.emitMalformed()
				p.reset()
			}
		case b >= 0x40 && b <= 0x7e:
			p.finishSS3(now)
			p.reset()
		default:
			p.buf = p.buf[:len(p.buf)-1]
			p.abort(b, now)
		}

	case stateOSC:
		switch b {
		case 0x07:
			p.finishOSC(p.buf[2:])
			p.reset()
		case 0x1b:
			p.state = stateOSCEscape
		default:
			p.buf = append(p.buf, b)
			if len(p.buf) > maxOSCLen {
				p.emitMalformed()
				p.reset()
			}
		}

	case stateOSCEscape:
		if b == '\\' {
			p.finishOSC(p.buf[2:])
			p.reset()
			return
		}
		p.emitMalformed()
		p.reset()
		p.state = stateEscape
		p.buf = append(p.buf, 0x1b)
		p.started = now
		p.step(b, now)

	case stateUTF8:
		if b&0xc0 != 0x80 {
			p.abort(b, now)
			return
		}
		p.buf = append(p.buf, b)
		p.need--
		if p.need == 0 {
			r, _ := utf8.DecodeRune(p.buf)
			mods := key.ModNone
			if p.alt {
				mods = key.ModAlt
			}
			if r != utf8.RuneError {
				p.emitKey(key.KeyRune, r, mods, now)
			}
			p.reset()
		}
	}
}

// abort reports the pending bytes as malformed and reprocesses b from ground.
func (p *Parser) abort(b byte, now time.Time) {
	p.emitMalformed()
	p.reset()
	p.ground(b, now)
}

func (p *Parser) ground(b byte, now time.Time) {
	switch {
	case b == 0x1b:
		p.state = stateEscape
		p.buf = append(p.buf[:0], b)
		p.started = now
	case b >= 0x20 && b < 0x7f:
		p.emitKey(key.KeyRune, rune(b), key.ModNone, now)
	case b == 0x7f:
		p.emitKey(key.KeyBackspace, 0, key.ModNone, now)
	case b < 0x20:
		k, r, mods := controlKey(b)
		p.emitKey(k, r, mods, now)
	default:
		n := utf8SeqLen(b)
		if n < 2 {
			return
		}
		p.state = stateUTF8
		p.buf = append(p.buf[:0], b)
		p.need = n - 1
		p.started = now
	}
}

func (p *Parser) escape(b byte, now time.Time) {
	switch {
	case b == IntroCSI:
		p.state = stateCSI
		p.buf = append(p.buf, b)
	case b == IntroSS3:
		p.state = stateSS3
		p.buf = append(p.buf, b)
	case b == IntroOSC:
		p.state = stateOSC
		p.buf = append(p.buf, b)
	case b == 0x1b:
		p.emitKey(key.KeyEscape, 0, key.ModAlt, now)
		p.reset()
	case b < 0x20:
		k, r, mods := controlKey(b)
		p.emitKey(k, r, mods|key.ModAlt, now)
		p.reset()
	case b == 0x7f:
		p.emitKey(key.KeyBackspace, 0, key.ModAlt, now)
		p.reset()
	case b < 0x7f:
		p.emitKey(key.KeyRune, rune(b), key.ModAlt, now)
		p.reset()
	default:
		p.reset()
		p.alt = true
		p.ground(b, now)
		if p.state != stateUTF8 {
			p.alt = false
		}
	}
}

func (p *Parser) finishCSI(now time.Time) {
	body := p.buf[2 : len(p.buf)-1]
	final := p.buf[len(p.buf)-1]

	var private byte
	if len(body) > 0 && body[0] >= '<' && body[0] <= '?' {
		private = body[0]
		body = body[1:]
	}
	split := len(body)
	for i, c := range body {
		if c >= 0x20 && c <= 0x2f {
			split = i
			break
		}
	}

	seq := Sequence{
		Introducer:    IntroCSI,
		Private:       private,
		Params:        parseParams(body[:split]),
		Intermediates: string(body[split:]),
		Final:         final,
	}

	if private == '<' && (final == 'M' || final == 'm') && len(seq.Params) >= 3 {
		p.out = append(p.out, Token{
			Kind: TokenMouse,
			Mouse: MouseReport{
				Code:    seq.Param(0, 0),
				X:       seq.Param(1, 1) - 1,
				Y:       seq.Param(2, 1) - 1,
				Release: final == 'm',
			},
		})
		return
	}

	if private == 0 && seq.Intermediates == "" {
		if k, mods, ok := csiKey(seq); ok {
			p.emitKey(k, 0, mods, now)
			return
		}
	}

	p.emitSequence(seq)
}

func (p *Parser) finishSS3(now time.Time) {
	final := p.buf[len(p.buf)-1]
	params := parseParams(p.buf[2 : len(p.buf)-1])
	seq := Sequence{Introducer: IntroSS3, Params: params, Final: final}

	mods := key.FromXterm(seq.Param(0, 1))
	if len(params) > 1 {
		mods = key.FromXterm(seq.Param(1, 1))
	}

	if k, ok := ss3Keys[final]; ok {
		p.emitKey(k, 0, mods, now)
		return
	}
	p.emitSequence(seq)
}

func (p *Parser) finishOSC(payload []byte) {
	p.emitSequence(Sequence{Introducer: IntroOSC, Data: string(payload)})
}

func (p *Parser) emitKey(k key.Key, r rune, mods key.Modifier, now time.Time) {
	p.out = append(p.out, Token{
		Kind: TokenKey,
		Key:  &key.Event{Key: k, Rune: r, Modifiers: mods, Timestamp: now},
	})
}

func (p *Parser) emitSequence(seq Sequence) {
	p.out = append(p.out, Token{Kind: TokenSequence, Seq: seq, Raw: cloneBytes(p.buf)})
}

func (p *Parser) emitMalformed() {
	if len(p.buf) == 0 {
		return
	}
	p.out = append(p.out, Token{Kind: TokenMalformed, Raw: cloneBytes(p.buf)})
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var csiFinalKeys = map[byte]key.Key{
	'A': key.KeyUp,
	'B': key.KeyDown,
	'C': key.KeyRight,
	'D': key.KeyLeft,
	'H': key.KeyHome,
	'F': key.KeyEnd,
	'P': key.KeyF1,
	'Q': key.KeyF2,
	'S': key.KeyF4,
	'Z': key.KeyBacktab,
}

var ss3Keys = map[byte]key.Key{
	'A': key.KeyUp,
	'B': key.KeyDown,
	'C': key.KeyRight,
	'D': key.KeyLeft,
	'H': key.KeyHome,
	'F': key.KeyEnd,
	'M': key.KeyEnter,
	'P': key.KeyF1,
	'Q': key.KeyF2,
	'R': key.KeyF3,
	'S': key.KeyF4,
}

var tildeKeys = map[int]key.Key{
	1:  key.KeyHome,
	2:  key.KeyInsert,
	3:  key.KeyDelete,
	4:  key.KeyEnd,
	5:  key.KeyPageUp,
	6:  key.KeyPageDown,
	7:  key.KeyHome,
	8:  key.KeyEnd,
	11: key.KeyF1,
	12: key.KeyF2,
	13: key.KeyF3,
	14: key.KeyF4,
	15: key.KeyF5,
	17: key.KeyF6,
	18: key.KeyF7,
	19: key.KeyF8,
	20: key.KeyF9,
	21: key.KeyF10,
	23: key.KeyF11,
	24: key.KeyF12,
}

// csiKey maps a CSI sequence to a key. CSI ... R with parameters is left as
// a sequence because it collides with cursor position reports.
func csiKey(seq Sequence) (key.Key, key.Modifier, bool) {
	mods := key.FromXterm(seq.Param(1, 1))

	switch seq.Final {
	case '~':
		k, ok := tildeKeys[seq.Param(0, -1)]
		return k, mods, ok
	case 'R':
		if len(seq.Params) == 0 {
			return key.KeyF3, key.ModNone, true
		}
		return key.KeyNone, key.ModNone, false
	}

	k, ok := csiFinalKeys[seq.Final]
	return k, mods, ok
}

// controlKey maps a C0 control byte to a key.
func controlKey(b byte) (key.Key, rune, key.Modifier) {
	switch b {
	case 0x00:
		return key.KeyRune, ' ', key.ModCtrl
	case 0x08:
		return key.KeyBackspace, 0, key.ModNone
	case 0x09:
		return key.KeyTab, 0, key.ModNone
	case 0x0a, 0x0d:
		return key.KeyEnter, 0, key.ModNone
	case 0x1b:
		return key.KeyEscape, 0, key.ModNone
	case 0x1c:
		return key.KeyRune, '\\', key.ModCtrl
	case 0x1d:
		return key.KeyRune, ']', key.ModCtrl
	case 0x1e:
		return key.KeyRune, '^', key.ModCtrl
	case 0x1f:
		return key.KeyRune, '_', key.ModCtrl
	}
	return key.KeyRune, rune('a' + b - 1), key.ModCtrl
}

// utf8SeqLen returns the expected UTF-8 sequence length from a start byte, 0 if invalid.
func utf8SeqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	}
	return 0
}
