package border

import "fmt"

// Side names one side of a cell.
type Side uint8

const (
	Top Side = iota
	Right
	Bottom
	Left
)

// ParseSide accepts the lower-case side names used on the wire.
func ParseSide(value string) (Side, error) {
	switch value {
	case "top":
		return Top, nil
	case "right":
		return Right, nil
	case "bottom":
		return Bottom, nil
	case "left":
		return Left, nil
	default:
		return 0, fmt.Errorf("unknown side %q", value)
	}
}

func (s Side) String() string {
	switch s {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	default:
		return "left"
	}
}

// Edge is one boundary segment between two adjacent positions. Lead is the
// side authored by the top (horizontal edges) or left (vertical edges) cell,
// Trail the side authored by the bottom or right cell.
type Edge struct {
	Lead   Spec
	Trail  Spec
	shared bool
	half   bool // one side of a shared edge split by an inserted track
}

// Shared builds an edge whose two sides are the same spec.
func Shared(s Spec) Edge {
	if !s.IsSet() {
		return Edge{}
	}
	return Edge{Lead: s, Trail: s, shared: true}
}

// Pair builds an edge with independent sides.
func Pair(lead, trail Spec) Edge {
	return Edge{Lead: lead, Trail: trail}
}

// split divides e for a track inserted into its boundary. Halves of a shared
// edge are marked so merge can restore it.
func split(e Edge) (lead, trail Edge) {
	lead, trail = Pair(e.Lead, Unset()), Pair(Unset(), e.Trail)
	if e.shared {
		lead.half, trail.half = true, true
	}
	return lead, trail
}

// merge joins the lead side of one boundary with the trail side of another
// when the track between them is removed.
func merge(lead, trail Edge) Edge {
	if lead.half && trail.half && lead.Lead == trail.Trail {
		return Shared(lead.Lead)
	}
	return Pair(lead.Lead, trail.Trail)
}

// IsShared reports whether the edge was authored as a single spec.
func (e Edge) IsShared() bool { return e.shared }

// Empty reports whether neither side carries information.
func (e Edge) Empty() bool { return !e.Lead.IsSet() && !e.Trail.IsSet() }

// WithLead returns a copy with the lead side replaced; a shared edge becomes a pair.
func (e Edge) WithLead(s Spec) Edge {
	return Edge{Lead: s, Trail: e.Trail}
}

// WithTrail returns a copy with the trail side replaced.
func (e Edge) WithTrail(s Spec) Edge {
	return Edge{Lead: e.Lead, Trail: s}
}

// Matrix is a rectangular matrix of edges. Horizontal matrices are
// (rows+1) x cols, vertical matrices rows x (cols+1).
type Matrix [][]Edge

// NewHorizontal allocates an empty horizontal edge matrix for a grid.
func NewHorizontal(rows, cols int) Matrix {
	return newMatrix(rows+1, cols)
}

// NewVertical allocates an empty vertical edge matrix for a grid.
func NewVertical(rows, cols int) Matrix {
	return newMatrix(rows, cols+1)
}

func newMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]Edge, cols)
	}
	return m
}

// Shape returns the number of matrix rows and columns.
func (m Matrix) Shape() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// At returns the edge at (i, j), or an empty edge when out of range.
func (m Matrix) At(i, j int) Edge {
	if i < 0 || i >= len(m) || j < 0 || j >= len(m[i]) {
		return Edge{}
	}
	return m[i][j]
}

// Clone deep-copies the matrix.
func (m Matrix) Clone() Matrix {
	if m == nil {
		return nil
	}
	out := make(Matrix, len(m))
	for i := range m {
		out[i] = append([]Edge(nil), m[i]...)
	}
	return out
}

// CheckShape verifies the matrix has the given dimensions.
func (m Matrix) CheckShape(rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%w: have %d rows, want %d", ErrMalformedEdges, len(m), rows)
	}
	for i := range m {
		if len(m[i]) != cols {
			return fmt.Errorf("%w: row %d has %d entries, want %d", ErrMalformedEdges, i, len(m[i]), cols)
		}
	}
	return nil
}

// Outer is the perimeter view of a grid: Top and Bottom indexed by column,
// Left and Right indexed by row. Each entry is the inward-facing side.
type Outer struct {
	Top    []Spec
	Right  []Spec
	Bottom []Spec
	Left   []Spec
}

// OuterOf extracts the perimeter from a grid's edge matrices.
func OuterOf(h, v Matrix) Outer {
	hr, hc := h.Shape()
	vr, vc := v.Shape()
	out := Outer{
		Top:    make([]Spec, hc),
		Bottom: make([]Spec, hc),
		Left:   make([]Spec, vr),
		Right:  make([]Spec, vr),
	}
	if hr > 0 {
		for c := 0; c < hc; c++ {
			out.Top[c] = h[0][c].Trail
			out.Bottom[c] = h[hr-1][c].Lead
		}
	}
	if vc > 0 {
		for r := 0; r < vr; r++ {
			out.Left[r] = v[r][0].Trail
			out.Right[r] = v[r][vc-1].Lead
		}
	}
	return out
}
