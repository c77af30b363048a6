package ansi

import "github.com/dshills/condriver/internal/geom"

// RequestCursorPosition builds a CSI 6n query. fn receives the zero-based
// cursor position from the CSI row;col R report.
func RequestCursorPosition(fn func(geom.Point)) *Request {
	return &Request{
		Name:     "cursor-position",
		Sequence: CSI + "6n",
		Matches: func(s Sequence) bool {
			return s.Is(0, 'R') && len(s.Params) == 2
		},
		OnResponse: func(s Sequence) {
			if fn != nil {
				fn(geom.Pt(s.Param(1, 1)-1, s.Param(0, 1)-1))
			}
		},
	}
}

// RequestDeviceAttributes builds a primary device attributes query (CSI c).
// fn receives the attribute list from the CSI ? ... c report.
func RequestDeviceAttributes(fn func([]int)) *Request {
	return &Request{
		Name:     "device-attributes",
		Sequence: CSI + "c",
		Matches: func(s Sequence) bool {
			return s.Is('?', 'c')
		},
		OnResponse: func(s Sequence) {
			if fn != nil {
				fn(append([]int(nil), s.Params...))
			}
		},
	}
}

// RequestWindowSize builds a text area size query (CSI 18t). fn receives the
// size in cells from the CSI 8;height;width t report.
func RequestWindowSize(fn func(geom.Size)) *Request {
	return &Request{
		Name:     "window-size",
		Sequence: CSI + "18t",
		Matches: func(s Sequence) bool {
			return s.Is(0, 't') && s.Param(0, 0) == 8 && len(s.Params) == 3
		},
		OnResponse: func(s Sequence) {
			if fn != nil {
				fn(geom.Size{Width: s.Param(2, 0), Height: s.Param(1, 0)})
			}
		},
	}
}
