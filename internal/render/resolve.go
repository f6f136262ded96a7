package render

import (
	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/node"
)

// positions holds the resolved side of every logical position before spans
// are applied.
type positions struct {
	top, right, bottom, left [][]border.Spec
}

func newSpecs(rows, cols int) [][]border.Spec {
	out := make([][]border.Spec, rows)
	for i := range out {
		out[i] = make([]border.Spec, cols)
	}
	return out
}

func resolvePositions(p *node.GridProps, cols, rows layout) positions {
	nr, nc := p.RowCount(), p.ColumnCount()
	ps := positions{
		top:    newSpecs(nr, nc),
		right:  newSpecs(nr, nc),
		bottom: newSpecs(nr, nc),
		left:   newSpecs(nr, nc),
	}
	h, v, def := p.Edges.H, p.Edges.V, p.EdgeDefault
	outer := def
	if anyGap(cols.gaps) || anyGap(rows.gaps) {
		outer = border.Unset()
	}

	for c := 0; c < nc; c++ {
		ps.top[0][c] = perimeter(h[0][c].Trail, outer)
		ps.bottom[nr-1][c] = perimeter(h[nr][c].Lead, outer)
		for r := 1; r < nr; r++ {
			ps.bottom[r-1][c], ps.top[r][c] = resolveBoundary(h[r][c], rows.gaps[r-1], def)
		}
	}
	for r := 0; r < nr; r++ {
		ps.left[r][0] = perimeter(v[r][0].Trail, outer)
		ps.right[r][nc-1] = perimeter(v[r][nc].Lead, outer)
		for c := 1; c < nc; c++ {
			ps.right[r][c-1], ps.left[r][c] = resolveBoundary(v[r][c], cols.gaps[c-1], def)
		}
	}
	return ps
}

// anyGap reports whether any boundary of an axis has a positive gap. A grid
// with a gap anywhere gives its perimeter no default.
func anyGap(gaps []bool) bool {
	for _, g := range gaps {
		if g {
			return true
		}
	}
	return false
}

func perimeter(s, def border.Spec) border.Spec {
	if s.IsSet() {
		return s
	}
	return def
}

// resolveBoundary picks what each side of an interior boundary paints. With
// a positive gap both sides paint as authored. At zero gap one side wins and
// the other is cleared to Unset: a lone side wins, otherwise the higher
// (noneDominates, weight, style) score wins with ties to the lead side, and an
// empty boundary paints the default on the lead side.
func resolveBoundary(e border.Edge, gap bool, def border.Spec) (lead, trail border.Spec) {
	if gap {
		return e.Lead, e.Trail
	}
	hasLead, hasTrail := e.Lead.IsSet(), e.Trail.IsSet()
	switch {
	case hasLead && !hasTrail:
		return e.Lead, border.Unset()
	case !hasLead && hasTrail:
		return border.Unset(), e.Trail
	case hasLead && hasTrail:
		if border.Compare(e.Lead, e.Trail) >= 0 {
			return e.Lead, border.Unset()
		}
		return border.Unset(), e.Trail
	default:
		return def, border.Unset()
	}
}

// stronger returns whichever of a and b wins a zero-gap comparison, a on a
// tie. Unset loses to anything.
func stronger(a, b border.Spec) border.Spec {
	switch {
	case !b.IsSet():
		return a
	case !a.IsSet():
		return b
	case border.Compare(b, a) > 0:
		return b
	default:
		return a
	}
}

// matrix returns the position matrix holding side.
func (ps positions) matrix(side border.Side) [][]border.Spec {
	switch side {
	case border.Top:
		return ps.top
	case border.Right:
		return ps.right
	case border.Bottom:
		return ps.bottom
	default:
		return ps.left
	}
}

func (ps positions) clone() positions {
	cp := func(m [][]border.Spec) [][]border.Spec {
		out := make([][]border.Spec, len(m))
		for i := range m {
			out[i] = append([]border.Spec(nil), m[i]...)
		}
		return out
	}
	return positions{top: cp(ps.top), right: cp(ps.right), bottom: cp(ps.bottom), left: cp(ps.left)}
}

func opposite(side border.Side) border.Side {
	switch side {
	case border.Top:
		return border.Bottom
	case border.Right:
		return border.Left
	case border.Bottom:
		return border.Top
	default:
		return border.Right
	}
}

type place struct{ row, col int }

// spanBoundary is one interior side of an anchor that runs along more than
// one boundary segment.
type spanBoundary struct {
	segs   []place // anchor positions along the side
	dr, dc int     // offset from an anchor position to the opposing one
	gap    bool
	lead   bool // the anchor is the top/left party of the boundary
}

func sideBoundary(cm CellModel, side border.Side, rows, cols int, colGaps, rowGaps []bool) (spanBoundary, bool) {
	lastRow, lastCol := cm.Row+cm.SpanY-1, cm.Column+cm.SpanX-1
	var b spanBoundary
	switch side {
	case border.Top:
		if cm.SpanX < 2 || cm.Row == 0 {
			return b, false
		}
		b.dr, b.gap = -1, rowGaps[cm.Row-1]
		for c := cm.Column; c <= lastCol; c++ {
			b.segs = append(b.segs, place{cm.Row, c})
		}
	case border.Bottom:
		if cm.SpanX < 2 || lastRow == rows-1 {
			return b, false
		}
		b.dr, b.gap, b.lead = 1, rowGaps[lastRow], true
		for c := cm.Column; c <= lastCol; c++ {
			b.segs = append(b.segs, place{lastRow, c})
		}
	case border.Left:
		if cm.SpanY < 2 || cm.Column == 0 {
			return b, false
		}
		b.dc, b.gap = -1, colGaps[cm.Column-1]
		for r := cm.Row; r <= lastRow; r++ {
			b.segs = append(b.segs, place{r, cm.Column})
		}
	default:
		if cm.SpanY < 2 || lastCol == cols-1 {
			return b, false
		}
		b.dc, b.gap, b.lead = 1, colGaps[lastCol], true
		for r := cm.Row; r <= lastRow; r++ {
			b.segs = append(b.segs, place{r, lastCol})
		}
	}
	return b, true
}

var sides = [...]border.Side{border.Top, border.Right, border.Bottom, border.Left}

// settleSpans keeps a single painted stroke on every zero-gap boundary that a
// spanning side runs along. A spanning side paints one spec for its whole
// length, so its strongest segment is weighed against the strongest opposing
// segment. When the anchor wins the opposing positions are cleared; when it
// loses the side is reported in the returned set and the anchor paints
// nothing there. Decisions read the positions as resolved per segment, so the
// order anchors are visited in does not matter.
func (ps positions) settleSpans(cells []CellModel, rows, cols int, colGaps, rowGaps []bool) map[int][4]bool {
	orig := ps.clone()
	type key struct {
		side border.Side
		at   place
	}
	cleared := make(map[key]bool)
	lost := make(map[int][4]bool)
	lose := func(i int, side border.Side) {
		l := lost[i]
		l[side] = true
		lost[i] = l
	}

	for i, cm := range cells {
		if cm.Skip {
			continue
		}
		for _, side := range sides {
			b, ok := sideBoundary(cm, side, rows, cols, colGaps, rowGaps)
			if !ok || b.gap {
				continue
			}
			mine, theirs := border.Unset(), border.Unset()
			mm, tm := orig.matrix(side), orig.matrix(opposite(side))
			for _, p := range b.segs {
				mine = stronger(mine, mm[p.row][p.col])
				theirs = stronger(theirs, tm[p.row+b.dr][p.col+b.dc])
			}
			if !mine.IsSet() || !theirs.IsSet() {
				continue
			}
			if c := border.Compare(mine, theirs); c > 0 || (c == 0 && b.lead) {
				out := ps.matrix(opposite(side))
				for _, p := range b.segs {
					at := place{p.row + b.dr, p.col + b.dc}
					out[at.row][at.col] = border.Unset()
					cleared[key{opposite(side), at}] = true
				}
			} else {
				lose(i, side)
			}
		}
	}

	// a spanning side partly cleared by a stronger opposing span loses too
	for i, cm := range cells {
		if cm.Skip {
			continue
		}
		for _, side := range sides {
			b, ok := sideBoundary(cm, side, rows, cols, colGaps, rowGaps)
			if !ok {
				continue
			}
			for _, p := range b.segs {
				if cleared[key{side, p}] {
					lose(i, side)
					break
				}
			}
		}
	}
	return lost
}

// spanSides returns the sides of a rectangle: the strongest segment along
// each side.
func (ps positions) spanSides(row, col, spanX, spanY int) Sides {
	var s Sides
	lastRow, lastCol := row+spanY-1, col+spanX-1
	for c := col; c <= lastCol; c++ {
		s.Top = stronger(s.Top, ps.top[row][c])
		s.Bottom = stronger(s.Bottom, ps.bottom[lastRow][c])
	}
	for r := row; r <= lastRow; r++ {
		s.Left = stronger(s.Left, ps.left[r][col])
		s.Right = stronger(s.Right, ps.right[r][lastCol])
	}
	return s
}
