// Package region implements rectangle-set algebra used to compute redraw and
// clip areas.
//
// A Region is an ordered list of rectangles. The list is only guaranteed to be
// a minimal non-overlapping tiling immediately after a Union; other operations
// may leave overlapping or fragmented rectangles behind. Equality is
// structural and order-sensitive, so two regions covering the same cells can
// compare unequal.
package region

import (
	"sort"

	"github.com/dshills/condriver/internal/geom"
)

// Op selects how Combine merges another area into a region.
type Op uint8

const (
	// OpDifference removes the other area from the region.
	OpDifference Op = iota
	// OpIntersect keeps only the cells present in both.
	OpIntersect
	// OpUnion adds the other area to the region.
	OpUnion
	// OpXor keeps cells present in exactly one of the two.
	OpXor
	// OpReverseDifference replaces the region with other minus region.
	OpReverseDifference
	// OpReplace replaces the region with the other area.
	OpReplace
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpDifference:
		return "difference"
	case OpIntersect:
		return "intersect"
	case OpUnion:
		return "union"
	case OpXor:
		return "xor"
	case OpReverseDifference:
		return "reverse-difference"
	case OpReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Region is a set of cells represented as a list of rectangles.
// The zero value is an empty region ready for use.
type Region struct {
	rects []geom.Rect
}

// New creates a region from the given rectangles. Empty rectangles are dropped;
// the rest are kept as given (no merging).
func New(rects ...geom.Rect) *Region {
	r := &Region{}
	for _, rect := range rects {
		if !rect.IsEmpty() {
			r.rects = append(r.rects, rect)
		}
	}
	return r
}

// Clone returns an independent copy.
func (r *Region) Clone() *Region {
	c := &Region{}
	if len(r.rects) > 0 {
		c.rects = make([]geom.Rect, len(r.rects))
		copy(c.rects, r.rects)
	}
	return c
}

// Rects returns a copy of the rectangles making up the region.
func (r *Region) Rects() []geom.Rect {
	out := make([]geom.Rect, len(r.rects))
	copy(out, r.rects)
	return out
}

// Len returns the number of rectangles.
func (r *Region) Len() int {
	return len(r.rects)
}

// IsEmpty returns true if the region covers no cells.
func (r *Region) IsEmpty() bool {
	for _, rect := range r.rects {
		if !rect.IsEmpty() {
			return false
		}
	}
	return true
}

// Clear empties the region.
func (r *Region) Clear() {
	r.rects = r.rects[:0]
}

// Combine merges another region into r using op.
func (r *Region) Combine(other *Region, op Op) {
	var rects []geom.Rect
	if other != nil {
		rects = other.rects
	}

	switch op {
	case OpUnion:
		r.union(rects)
	case OpIntersect:
		r.intersect(rects)
	case OpDifference:
		r.rects = subtractAll(r.rects, rects)
	case OpXor:
		inter := r.Clone()
		inter.intersect(rects)
		r.union(rects)
		r.rects = subtractAll(r.rects, inter.rects)
	case OpReverseDifference:
		r.rects = subtractAll(cloneRects(rects), r.rects)
	case OpReplace:
		r.rects = cloneRects(rects)
	}
}

// CombineRect merges a single rectangle into r using op.
func (r *Region) CombineRect(rect geom.Rect, op Op) {
	r.Combine(New(rect), op)
}

// Union adds another region.
func (r *Region) Union(other *Region) {
	r.Combine(other, OpUnion)
}

// UnionRect adds a rectangle.
func (r *Region) UnionRect(rect geom.Rect) {
	r.CombineRect(rect, OpUnion)
}

// Intersect keeps only the area shared with other.
func (r *Region) Intersect(other *Region) {
	r.Combine(other, OpIntersect)
}

// IntersectRect keeps only the area inside rect.
func (r *Region) IntersectRect(rect geom.Rect) {
	r.CombineRect(rect, OpIntersect)
}

// Exclude removes another region.
func (r *Region) Exclude(other *Region) {
	r.Combine(other, OpDifference)
}

// ExcludeRect removes a rectangle.
func (r *Region) ExcludeRect(rect geom.Rect) {
	r.CombineRect(rect, OpDifference)
}

// Complement replaces the region with the part of bounds it does not cover.
func (r *Region) Complement(bounds geom.Rect) {
	if bounds.IsEmpty() {
		r.rects = nil
		return
	}
	r.rects = subtractAll([]geom.Rect{bounds}, r.rects)
}

// Contains returns true if the cell at (x, y) is in the region.
func (r *Region) Contains(x, y int) bool {
	return r.ContainsPoint(geom.Pt(x, y))
}

// ContainsPoint returns true if the cell at p is in the region.
func (r *Region) ContainsPoint(p geom.Point) bool {
	for _, rect := range r.rects {
		if rect.Contains(p) {
			return true
		}
	}
	return false
}

// ContainsRect returns true if every cell of rect is in the region.
func (r *Region) ContainsRect(rect geom.Rect) bool {
	if rect.IsEmpty() {
		return true
	}
	return len(subtractAll([]geom.Rect{rect}, r.rects)) == 0
}

// Intersects returns true if rect shares at least one cell with the region.
func (r *Region) Intersects(rect geom.Rect) bool {
	for _, own := range r.rects {
		if own.Intersects(rect) {
			return true
		}
	}
	return false
}

// Bounds returns the smallest rectangle containing the region.
func (r *Region) Bounds() geom.Rect {
	var b geom.Rect
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Offset translates every rectangle by (dx, dy).
func (r *Region) Offset(dx, dy int) {
	for i := range r.rects {
		r.rects[i] = r.rects[i].Offset(dx, dy)
	}
}

// Equals compares two regions rectangle by rectangle, in order. Two empty
// regions are always equal. Regions covering the same cells with different
// rectangle lists are NOT equal.
func (r *Region) Equals(other *Region) bool {
	if other == nil {
		return r.IsEmpty()
	}
	if r.IsEmpty() && other.IsEmpty() {
		return true
	}
	if len(r.rects) != len(other.rects) {
		return false
	}
	for i := range r.rects {
		if r.rects[i] != other.rects[i] {
			return false
		}
	}
	return true
}

// union merges rects into the region and re-tiles the result.
func (r *Region) union(rects []geom.Rect) {
	all := make([]geom.Rect, 0, len(r.rects)+len(rects))
	all = append(all, r.rects...)
	all = append(all, rects...)
	r.rects = MergeRectangles(all)
}

// intersect keeps the pairwise intersections with rects.
func (r *Region) intersect(rects []geom.Rect) {
	var out []geom.Rect
	for _, own := range r.rects {
		for _, other := range rects {
			if i := own.Intersect(other); !i.IsEmpty() {
				out = append(out, i)
			}
		}
	}
	r.rects = out
}

func cloneRects(rects []geom.Rect) []geom.Rect {
	out := make([]geom.Rect, 0, len(rects))
	for _, rect := range rects {
		if !rect.IsEmpty() {
			out = append(out, rect)
		}
	}
	return out
}

// subtractAll removes every cutter from every rectangle.
func subtractAll(rects, cutters []geom.Rect) []geom.Rect {
	current := cloneRects(rects)
	for _, cutter := range cutters {
		if cutter.IsEmpty() {
			continue
		}
		next := make([]geom.Rect, 0, len(current))
		for _, rect := range current {
			next = append(next, SubtractRectangle(rect, cutter)...)
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return current
}

// SubtractRectangle returns the parts of r not covered by cutter: up to four
// bands (top, bottom, left, right). The top and bottom bands span the full
// width of r; left and right bands span only the overlapping rows.
func SubtractRectangle(r, cutter geom.Rect) []geom.Rect {
	if r.IsEmpty() {
		return nil
	}
	if !r.Intersects(cutter) {
		return []geom.Rect{r}
	}

	inter := r.Intersect(cutter)
	out := make([]geom.Rect, 0, 4)

	if inter.Top() > r.Top() {
		out = append(out, geom.FromEdges(r.Left(), r.Top(), r.Right(), inter.Top()))
	}
	if inter.Bottom() < r.Bottom() {
		out = append(out, geom.FromEdges(r.Left(), inter.Bottom(), r.Right(), r.Bottom()))
	}
	if inter.Left() > r.Left() {
		out = append(out, geom.FromEdges(r.Left(), inter.Top(), inter.Left(), inter.Bottom()))
	}
	if inter.Right() < r.Right() {
		out = append(out, geom.FromEdges(inter.Right(), inter.Top(), r.Right(), inter.Bottom()))
	}
	return out
}

// edge is a vertical rectangle boundary used by the sweep.
type edge struct {
	x      int
	top    int
	bottom int
	start  bool
}

// interval is a half-open row range [top, bottom).
type interval struct {
	top    int
	bottom int
}

// MergeRectangles computes a non-overlapping tiling of the union of rects.
//
// It sweeps left to right over the rectangles' vertical edges. Between two
// consecutive edge coordinates the active row intervals are merged, and each
// merged interval becomes a strip. Strips continuing a strip with identical
// rows from the previous column range are extended instead of emitted again.
// Empty rectangles are discarded.
func MergeRectangles(rects []geom.Rect) []geom.Rect {
	edges := make([]edge, 0, len(rects)*2)
	for _, r := range rects {
		if r.IsEmpty() {
			continue
		}
		edges = append(edges,
			edge{x: r.Left(), top: r.Top(), bottom: r.Bottom(), start: true},
			edge{x: r.Right(), top: r.Top(), bottom: r.Bottom(), start: false},
		)
	}
	if len(edges) == 0 {
		return nil
	}

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].x < edges[j].x
	})

	var (
		out    []geom.Rect
		active []interval
		prev   map[interval]int // merged interval -> index in out, for the strip ending at lastX
		lastX  = edges[0].x
	)

	for i := 0; i < len(edges); {
		x := edges[i].x

		if x > lastX && len(active) > 0 {
			merged := mergeIntervals(active)
			cur := make(map[interval]int, len(merged))
			for _, iv := range merged {
				if idx, ok := prev[iv]; ok && out[idx].Right() == lastX {
					out[idx].Width += x - lastX
					cur[iv] = idx
					continue
				}
				out = append(out, geom.FromEdges(lastX, iv.top, x, iv.bottom))
				cur[iv] = len(out) - 1
			}
			prev = cur
		} else if x > lastX {
			prev = nil
		}

		for ; i < len(edges) && edges[i].x == x; i++ {
			e := edges[i]
			iv := interval{top: e.top, bottom: e.bottom}
			if e.start {
				active = append(active, iv)
				continue
			}
			for k := range active {
				if active[k] == iv {
					active = append(active[:k], active[k+1:]...)
					break
				}
			}
		}
		lastX = x
	}

	return out
}

// mergeIntervals sorts and coalesces overlapping or touching intervals.
func mergeIntervals(ivs []interval) []interval {
	sorted := make([]interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].top != sorted[j].top {
			return sorted[i].top < sorted[j].top
		}
		return sorted[i].bottom < sorted[j].bottom
	})

	out := sorted[:0:0]
	for _, iv := range sorted {
		if n := len(out); n > 0 && iv.top <= out[n-1].bottom {
			if iv.bottom > out[n-1].bottom {
				out[n-1].bottom = iv.bottom
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
