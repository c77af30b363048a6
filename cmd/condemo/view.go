package main

import (
	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/output"
	"github.com/dshills/condriver/internal/region"
)

// Rows of the demo screen. The status line always occupies the last row.
const (
	rowTitle = iota
	_
	rowKey
	rowMouse
	rowCursor
	rowConfig
	numRows
)

// statusView is the demo's root: a handful of labelled lines and a status
// bar. Only rows whose text changed are redrawn.
type statusView struct {
	lines  [numRows]string
	status string
	size   geom.Size

	full   bool
	damage *region.Region
}

func newStatusView(size geom.Size) *statusView {
	return &statusView{size: size, full: true, damage: region.New()}
}

func (v *statusView) statusRow() int {
	return v.size.Height - 1
}

func (v *statusView) invalidateRow(row int) {
	v.damage.UnionRect(geom.R(0, row, v.size.Width, 1))
}

// Set replaces the text of row.
func (v *statusView) Set(row int, text string) {
	if v.lines[row] == text {
		return
	}
	v.lines[row] = text
	v.invalidateRow(row)
}

// SetStatus replaces the status bar text.
func (v *statusView) SetStatus(text string) {
	if v.status == text {
		return
	}
	v.status = text
	v.invalidateRow(v.statusRow())
}

// Resize redraws everything at the new size.
func (v *statusView) Resize(size geom.Size) {
	v.size = size
	v.full = true
}

// NeedsDraw implements mainloop.Root.
func (v *statusView) NeedsDraw() (*region.Region, bool) {
	if v.full {
		return nil, true
	}
	if v.damage.IsEmpty() {
		return nil, false
	}
	return v.damage.Clone(), true
}

// Draw implements mainloop.Root.
func (v *statusView) Draw(b *output.Buffer) {
	plain := output.DefaultStyle()
	for row, text := range v.lines {
		style := plain
		if row == rowTitle {
			style = style.WithAttrs(output.AttrBold)
		}
		v.drawLine(b, row, text, style)
	}
	if row := v.statusRow(); row >= numRows {
		v.drawLine(b, row, v.status, plain.WithAttrs(output.AttrReverse))
	}
	v.full = false
	v.damage.Clear()
}

func (v *statusView) drawLine(b *output.Buffer, row int, text string, style output.Style) {
	b.SetStyle(style)
	b.FillRect(geom.R(0, row, b.Size().Width, 1), ' ')
	b.Move(0, row)
	b.AddStr(text)
}
