package border

// Edges bundles the two edge matrices of one grid so structural edits keep them
// consistent with each other.
type Edges struct {
	H Matrix
	V Matrix
}

// NewEdges allocates empty matrices for a rows x cols grid.
func NewEdges(rows, cols int) Edges {
	return Edges{H: NewHorizontal(rows, cols), V: NewVertical(rows, cols)}
}

// Clone deep-copies both matrices.
func (e Edges) Clone() Edges {
	return Edges{H: e.H.Clone(), V: e.V.Clone()}
}

// Check verifies both shapes against the grid dimensions.
func (e Edges) Check(rows, cols int) error {
	if err := e.H.CheckShape(rows+1, cols); err != nil {
		return err
	}
	return e.V.CheckShape(rows, cols+1)
}

// InsertRow adds a grid row at index at (0..rows) for a grid that currently
// has rows rows. The boundary the row is inserted into is split: the side
// above keeps its lead spec, the side below keeps its trail spec. Perimeter
// boundaries stay on the perimeter.
func (e *Edges) InsertRow(at, rows, cols int) {
	switch {
	case at <= 0:
		e.H = insertMatrixRow(e.H, 1, make([]Edge, cols))
	case at >= rows:
		e.H = insertMatrixRow(e.H, rows, make([]Edge, cols))
	default:
		upper := make([]Edge, cols)
		lower := make([]Edge, cols)
		for c := 0; c < cols; c++ {
			upper[c], lower[c] = split(e.H[at][c])
		}
		e.H[at] = upper
		e.H = insertMatrixRow(e.H, at+1, lower)
	}

	row := make([]Edge, cols+1)
	if rows > 0 {
		neighbor := at
		if neighbor >= rows {
			neighbor = rows - 1
		}
		row[0] = e.V[neighbor][0]
		row[cols] = e.V[neighbor][cols]
	}
	e.V = insertMatrixRow(e.V, at, row)
}

// RemoveRow drops grid row at from a grid with rows rows. The boundaries above
// and below it merge: the upper neighbour keeps its lead side, the lower
// neighbour its trail side.
func (e *Edges) RemoveRow(at, rows, cols int) {
	switch {
	case at <= 0:
		e.H = removeMatrixRow(e.H, 1)
	case at >= rows-1:
		e.H = removeMatrixRow(e.H, rows-1)
	default:
		merged := make([]Edge, cols)
		for c := 0; c < cols; c++ {
			merged[c] = merge(e.H[at][c], e.H[at+1][c])
		}
		e.H[at] = merged
		e.H = removeMatrixRow(e.H, at+1)
	}
	e.V = removeMatrixRow(e.V, at)
}

// InsertColumn adds a grid column at index at (0..cols).
func (e *Edges) InsertColumn(at, rows, cols int) {
	switch {
	case at <= 0:
		e.V = insertMatrixColumn(e.V, 1, func(int) Edge { return Edge{} })
	case at >= cols:
		e.V = insertMatrixColumn(e.V, cols, func(int) Edge { return Edge{} })
	default:
		trails := make([]Edge, rows)
		for r := 0; r < rows; r++ {
			e.V[r][at], trails[r] = split(e.V[r][at])
		}
		e.V = insertMatrixColumn(e.V, at+1, func(r int) Edge { return trails[r] })
	}

	neighbor := at
	if neighbor >= cols {
		neighbor = cols - 1
	}
	hrows := len(e.H)
	e.H = insertMatrixColumn(e.H, at, func(r int) Edge {
		if cols > 0 && (r == 0 || r == hrows-1) {
			return e.H[r][neighbor]
		}
		return Edge{}
	})
}

// RemoveColumn drops grid column at from a grid with cols columns.
func (e *Edges) RemoveColumn(at, rows, cols int) {
	switch {
	case at <= 0:
		e.V = removeMatrixColumn(e.V, 1)
	case at >= cols-1:
		e.V = removeMatrixColumn(e.V, cols-1)
	default:
		for r := 0; r < rows; r++ {
			e.V[r][at] = merge(e.V[r][at], e.V[r][at+1])
		}
		e.V = removeMatrixColumn(e.V, at+1)
	}
	e.H = removeMatrixColumn(e.H, at)
}

// SetCellSide writes spec to one side of the rectangle [row,row+spanY) x
// [col,col+spanX) of a rows x cols grid, fanning out across every boundary
// segment that side touches. Perimeter segments are written as shared edges.
func (e *Edges) SetCellSide(row, col, spanX, spanY, rows, cols int, side Side, spec Spec) {
	switch side {
	case Top:
		for c := col; c < col+spanX; c++ {
			if row == 0 {
				e.H[0][c] = Shared(spec)
				continue
			}
			e.H[row][c] = e.H[row][c].WithTrail(spec)
		}
	case Bottom:
		b := row + spanY
		for c := col; c < col+spanX; c++ {
			if b == rows {
				e.H[b][c] = Shared(spec)
				continue
			}
			e.H[b][c] = e.H[b][c].WithLead(spec)
		}
	case Left:
		for r := row; r < row+spanY; r++ {
			if col == 0 {
				e.V[r][0] = Shared(spec)
				continue
			}
			e.V[r][col] = e.V[r][col].WithTrail(spec)
		}
	case Right:
		b := col + spanX
		for r := row; r < row+spanY; r++ {
			if b == cols {
				e.V[r][b] = Shared(spec)
				continue
			}
			e.V[r][b] = e.V[r][b].WithLead(spec)
		}
	}
}

// SetOuter writes one perimeter entry. index is a column for Top/Bottom and a
// row for Left/Right.
func (e *Edges) SetOuter(side Side, index int, spec Spec) {
	switch side {
	case Top:
		e.H[0][index] = Shared(spec)
	case Bottom:
		e.H[len(e.H)-1][index] = Shared(spec)
	case Left:
		e.V[index][0] = Shared(spec)
	case Right:
		e.V[index][len(e.V[index])-1] = Shared(spec)
	}
}

func insertMatrixRow(m Matrix, at int, row []Edge) Matrix {
	m = append(m, nil)
	copy(m[at+1:], m[at:])
	m[at] = row
	return m
}

func removeMatrixRow(m Matrix, at int) Matrix {
	return append(m[:at], m[at+1:]...)
}

func insertMatrixColumn(m Matrix, at int, fill func(row int) Edge) Matrix {
	for r := range m {
		value := fill(r)
		row := append(m[r], Edge{})
		copy(row[at+1:], row[at:])
		row[at] = value
		m[r] = row
	}
	return m
}

func removeMatrixColumn(m Matrix, at int) Matrix {
	for r := range m {
		m[r] = append(m[r][:at], m[r][at+1:]...)
	}
	return m
}
