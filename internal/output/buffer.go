// Package output holds the cell grid the application draws into and the
// writer that diffs it onto an ANSI terminal.
package output

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/dshills/condriver/internal/geom"
	"github.com/dshills/condriver/internal/region"
)

// Cell is one screen cell.
type Cell struct {
	// Grapheme is the cluster shown in the cell. Empty means blank.
	Grapheme string

	// Width is the display width: 1 or 2, or 0 for the right half of a
	// wide glyph.
	Width int

	Style Style

	// Dirty is set when the cell changed since it was last written.
	Dirty bool
}

// Image is an out-of-band payload (for example a sixel image) written
// after the grid at a fixed cell.
type Image struct {
	At      geom.Point
	Payload []byte
}

// Buffer is the cell grid with per-cell and per-row dirty tracking.
//
// Drawing goes through the cursor (Move, AddRune, AddStr) and is clipped to
// the active clip region. Cells outside the clip are left untouched but the
// cursor still advances.
//
// Buffer is not safe for concurrent use; it belongs to the main loop.
type Buffer struct {
	cols, rows int
	cells      [][]Cell
	dirtyLines []bool

	col, row int
	style    Style
	clip     *region.Region
	images   []Image
}

// NewBuffer creates a buffer with every cell blank and dirty.
func NewBuffer(cols, rows int) *Buffer {
	b := &Buffer{style: DefaultStyle()}
	b.Resize(cols, rows)
	return b
}

// Size returns the grid dimensions.
func (b *Buffer) Size() geom.Size {
	return geom.Size{Width: b.cols, Height: b.rows}
}

// Bounds returns the grid as a rectangle at the origin.
func (b *Buffer) Bounds() geom.Rect {
	return geom.R(0, 0, b.cols, b.rows)
}

// Resize changes the grid dimensions, keeping overlapping content. Every
// cell is marked dirty.
func (b *Buffer) Resize(cols, rows int) {
	cols, rows = max(cols, 0), max(rows, 0)

	cells := make([][]Cell, rows)
	for y := range cells {
		cells[y] = make([]Cell, cols)
		for x := range cells[y] {
			if y < b.rows && x < b.cols {
				cells[y][x] = b.cells[y][x]
			} else {
				cells[y][x] = blankCell(DefaultStyle())
			}
			cells[y][x].Dirty = true
		}
		// A wide glyph cut in half by the new right edge becomes blank.
		if cols > 0 && cells[y][cols-1].Width > 1 {
			cells[y][cols-1] = blankCell(cells[y][cols-1].Style)
			cells[y][cols-1].Dirty = true
		}
	}

	b.cols, b.rows = cols, rows
	b.cells = cells
	b.dirtyLines = make([]bool, rows)
	for y := range b.dirtyLines {
		b.dirtyLines[y] = true
	}
	b.col = min(b.col, max(cols-1, 0))
	b.row = min(b.row, max(rows-1, 0))
	b.clip = nil
}

func blankCell(s Style) Cell {
	return Cell{Grapheme: " ", Width: 1, Style: s}
}

// Move positions the drawing cursor.
func (b *Buffer) Move(col, row int) {
	b.col, b.row = col, row
}

// Col returns the cursor column.
func (b *Buffer) Col() int { return b.col }

// Row returns the cursor row.
func (b *Buffer) Row() int { return b.row }

// SetStyle sets the style used by subsequent drawing.
func (b *Buffer) SetStyle(s Style) {
	b.style = s
}

// CurrentStyle returns the drawing style.
func (b *Buffer) CurrentStyle() Style {
	return b.style
}

// SetClip restricts drawing to r. A nil region removes the clip.
func (b *Buffer) SetClip(r *region.Region) {
	b.clip = r
}

// Clip returns the active clip region, or nil.
func (b *Buffer) Clip() *region.Region {
	return b.clip
}

// IsValidLocation reports whether (col, row) is on the grid and inside the clip.
func (b *Buffer) IsValidLocation(col, row int) bool {
	if col < 0 || row < 0 || col >= b.cols || row >= b.rows {
		return false
	}
	return b.clip == nil || b.clip.Contains(col, row)
}

// Cell returns the cell at (col, row).
func (b *Buffer) Cell(col, row int) (Cell, bool) {
	if col < 0 || row < 0 || col >= b.cols || row >= b.rows {
		return Cell{}, false
	}
	return b.cells[row][col], true
}

// AddRune draws r at the cursor and advances it by the rune's width.
// Zero-width runes combine with the previous cell.
func (b *Buffer) AddRune(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		b.combine(string(r))
		return
	}
	b.put(string(r), w)
}

// AddStr draws s grapheme by grapheme.
func (b *Buffer) AddStr(s string) {
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		cluster := gr.Str()
		w := runewidth.StringWidth(cluster)
		if w == 0 {
			b.combine(cluster)
			continue
		}
		b.put(cluster, min(w, 2))
	}
}

// combine appends a zero-width cluster to the cell left of the cursor.
func (b *Buffer) combine(s string) {
	col := b.col - 1
	if col >= 0 && col < b.cols && b.row >= 0 && b.row < b.rows && b.cells[b.row][col].Width == 0 {
		col--
	}
	if !b.IsValidLocation(col, b.row) {
		return
	}
	c := &b.cells[b.row][col]
	c.Grapheme += s
	b.markDirty(col, b.row)
}

func (b *Buffer) put(g string, w int) {
	col, row := b.col, b.row
	b.col += w

	if !b.IsValidLocation(col, row) {
		return
	}
	if w == 2 && (col+1 >= b.cols || !b.IsValidLocation(col+1, row)) {
		// No room for the right half.
		g, w = " ", 1
	}

	b.clearWide(col, row)
	b.cells[row][col] = Cell{Grapheme: g, Width: w, Style: b.style}
	b.markDirty(col, row)

	if w == 2 {
		b.clearWide(col+1, row)
		b.cells[row][col+1] = Cell{Width: 0, Style: b.style}
		b.markDirty(col+1, row)
	}
}

// clearWide blanks the other half of a wide glyph overlapping (col, row).
func (b *Buffer) clearWide(col, row int) {
	c := b.cells[row][col]
	switch {
	case c.Width == 0 && col > 0:
		b.cells[row][col-1] = blankCell(b.cells[row][col-1].Style)
		b.markDirty(col-1, row)
	case c.Width == 2 && col+1 < b.cols:
		b.cells[row][col+1] = blankCell(b.cells[row][col+1].Style)
		b.markDirty(col+1, row)
	}
}

func (b *Buffer) markDirty(col, row int) {
	b.cells[row][col].Dirty = true
	b.dirtyLines[row] = true
}

// FillRect fills every clipped cell of rect with r in the current style.
func (b *Buffer) FillRect(rect geom.Rect, r rune) {
	if runewidth.RuneWidth(r) == 0 {
		r = ' '
	}
	rect = rect.Intersect(b.Bounds())
	saveCol, saveRow := b.col, b.row
	for y := rect.Top(); y < rect.Bottom(); y++ {
		b.Move(rect.Left(), y)
		for b.col < rect.Right() {
			b.AddRune(r)
		}
	}
	b.col, b.row = saveCol, saveRow
}

// ClearContents blanks the whole grid with the default style, ignoring the clip.
func (b *Buffer) ClearContents() {
	for y := range b.cells {
		for x := range b.cells[y] {
			b.cells[y][x] = blankCell(DefaultStyle())
			b.cells[y][x].Dirty = true
		}
		b.dirtyLines[y] = true
	}
	b.images = nil
}

// MarkAllDirty forces every cell to be rewritten on the next flush.
func (b *Buffer) MarkAllDirty() {
	for y := range b.cells {
		for x := range b.cells[y] {
			b.cells[y][x].Dirty = true
		}
		b.dirtyLines[y] = true
	}
}

// IsDirty reports whether any row or image is waiting to be written.
func (b *Buffer) IsDirty() bool {
	if len(b.images) > 0 {
		return true
	}
	for _, d := range b.dirtyLines {
		if d {
			return true
		}
	}
	return false
}

// IsLineDirty reports whether row has cells waiting to be written.
func (b *Buffer) IsLineDirty(row int) bool {
	return row >= 0 && row < b.rows && b.dirtyLines[row]
}

// AddImage queues a payload to be written at (col, row) after the grid.
func (b *Buffer) AddImage(col, row int, payload []byte) {
	p := make([]byte, len(payload))
	copy(p, payload)
	b.images = append(b.images, Image{At: geom.Pt(col, row), Payload: p})
}

// TakeImages returns and clears the queued images.
func (b *Buffer) TakeImages() []Image {
	imgs := b.images
	b.images = nil
	return imgs
}

// Rows returns the rows of the grid. Writers use it to diff and clear dirty
// flags in place.
func (b *Buffer) Rows() [][]Cell {
	return b.cells
}

// ClearLineDirty clears the dirty flag of row and reports whether it was set.
func (b *Buffer) ClearLineDirty(row int) bool {
	if row < 0 || row >= b.rows || !b.dirtyLines[row] {
		return false
	}
	b.dirtyLines[row] = false
	return true
}
