package ansi

import (
	"strconv"
	"strings"
)

// Introducer bytes following ESC.
const (
	IntroCSI byte = '['
	IntroSS3 byte = 'O'
	IntroOSC byte = ']'
)

// Sequence is a complete escape sequence read from the terminal.
type Sequence struct {
	// Introducer is IntroCSI, IntroSS3 or IntroOSC.
	Introducer byte

	// Private is a leading parameter marker such as '?', '<', '>' or '=', or 0.
	Private byte

	// Params are the numeric parameters. Omitted parameters are -1.
	Params []int

	// Intermediates are bytes in 0x20-0x2f between the parameters and the final byte.
	Intermediates string

	// Final is the terminating byte. Zero for OSC.
	Final byte

	// Data is the payload of an OSC string.
	Data string
}

// Param returns parameter i, or def if it is missing or omitted.
func (s Sequence) Param(i, def int) int {
	if i < 0 || i >= len(s.Params) || s.Params[i] < 0 {
		return def
	}
	return s.Params[i]
}

// Is reports whether s is a CSI sequence with the given private marker and final byte.
func (s Sequence) Is(private, final byte) bool {
	return s.Introducer == IntroCSI && s.Private == private && s.Final == final
}

// String returns a printable form such as "ESC[?1;2c".
func (s Sequence) String() string {
	var b strings.Builder
	b.WriteString("ESC")
	b.WriteByte(s.Introducer)
	if s.Introducer == IntroOSC {
		b.WriteString(s.Data)
		b.WriteString("ST")
		return b.String()
	}
	if s.Private != 0 {
		b.WriteByte(s.Private)
	}
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(';')
		}
		if p >= 0 {
			b.WriteString(strconv.Itoa(p))
		}
	}
	b.WriteString(s.Intermediates)
	if s.Final != 0 {
		b.WriteByte(s.Final)
	}
	return b.String()
}

// parseParams splits "1;;5" into [1 -1 5]. Sub-parameters separated by ':'
// are folded into their parent parameter.
func parseParams(raw []byte) []int {
	if len(raw) == 0 {
		return nil
	}
	params := make([]int, 0, 4)
	cur, seen, sub := 0, false, false
	for _, b := range raw {
		switch {
		case b >= '0' && b <= '9':
			if sub {
				continue
			}
			if cur < 1<<20 {
				cur = cur*10 + int(b-'0')
			}
			seen = true
		case b == ':':
			sub = true
		case b == ';':
			if seen {
				params = append(params, cur)
			} else {
				params = append(params, -1)
			}
			cur, seen, sub = 0, false, false
		}
	}
	if seen {
		params = append(params, cur)
	} else {
		params = append(params, -1)
	}
	return params
}
