package ansi

import "strconv"

// Output sequences.
const (
	CSI = "\x1b["

	HideCursor = CSI + "?25l"
	ShowCursor = CSI + "?25h"

	EnterAltScreen = CSI + "?1049h"
	ExitAltScreen  = CSI + "?1049l"

	AutoWrapOff = CSI + "?7l"
	AutoWrapOn  = CSI + "?7h"

	// EnableMouse turns on button/drag tracking with SGR extended coordinates.
	EnableMouse  = CSI + "?1000h" + CSI + "?1002h" + CSI + "?1006h"
	DisableMouse = CSI + "?1006l" + CSI + "?1002l" + CSI + "?1000l"

	ResetAttributes = CSI + "0m"
	ClearScreen     = CSI + "2J"
	CursorHome      = CSI + "H"
	DefaultFg       = CSI + "39m"
	DefaultBg       = CSI + "49m"
)

// AppendCursorPosition appends CSI row;col H for zero-based coordinates.
func AppendCursorPosition(b []byte, col, row int) []byte {
	b = append(b, CSI...)
	b = strconv.AppendInt(b, int64(row+1), 10)
	b = append(b, ';')
	b = strconv.AppendInt(b, int64(col+1), 10)
	return append(b, 'H')
}

// AppendSGR appends CSI p1;p2;...m. With no parameters it appends a reset.
func AppendSGR(b []byte, params ...int) []byte {
	b = append(b, CSI...)
	for i, p := range params {
		if i > 0 {
			b = append(b, ';')
		}
		b = strconv.AppendInt(b, int64(p), 10)
	}
	return append(b, 'm')
}

// AppendFgRGB appends CSI 38;2;r;g;b m.
func AppendFgRGB(b []byte, r, g, bl uint8) []byte {
	return AppendSGR(b, 38, 2, int(r), int(g), int(bl))
}

// AppendBgRGB appends CSI 48;2;r;g;b m.
func AppendBgRGB(b []byte, r, g, bl uint8) []byte {
	return AppendSGR(b, 48, 2, int(r), int(g), int(bl))
}

// AppendFg256 appends CSI 38;5;n m.
func AppendFg256(b []byte, n uint8) []byte {
	return AppendSGR(b, 38, 5, int(n))
}

// AppendBg256 appends CSI 48;5;n m.
func AppendBg256(b []byte, n uint8) []byte {
	return AppendSGR(b, 48, 5, int(n))
}
