package render

import (
	"strconv"
	"strings"

	"bloomgrid/api/internal/node"
)

// Track minimums are fixed engine constants.
const (
	minColumn = "60px"
	minRow    = "32px"
)

// ColumnTrack resolves a column token to a track expression.
func ColumnTrack(t node.SizeToken) string { return track(t, minColumn) }

// RowTrack resolves a row token to a track expression.
func RowTrack(t node.SizeToken) string { return track(t, minRow) }

func track(t node.SizeToken, min string) string {
	switch t {
	case node.Hug:
		return "minmax(" + min + ", max-content)"
	case node.Fill:
		return "minmax(" + min + ", 1fr)"
	default:
		return string(t)
	}
}

// gapAt returns the gap token of boundary i. An empty list is "0" and a
// single token applies to every boundary.
func gapAt(gaps []string, i int) string {
	switch {
	case len(gaps) == 0:
		return "0"
	case len(gaps) == 1:
		return gaps[0]
	case i >= 0 && i < len(gaps):
		return gaps[i]
	default:
		return "0"
	}
}

// zeroGap reports whether a gap token collapses the boundary: empty, "0" or
// any zero length such as "0px".
func zeroGap(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || token == "0" {
		return true
	}
	end := len(token)
	for end > 0 {
		ch := token[end-1]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '%' {
			end--
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(token[:end], 64)
	return err == nil && v == 0
}

// layout is the resolved track list of one axis with optional gap tracks
// interleaved, plus the grid line each logical track starts on.
type layout struct {
	tracks []string
	gaps   []bool
	lines  []int
}

func buildLayout(tokens []node.SizeToken, gaps []string, resolve func(node.SizeToken) string) layout {
	l := layout{
		tracks: make([]string, len(tokens)),
		gaps:   make([]bool, max(len(tokens)-1, 0)),
		lines:  make([]int, len(tokens)),
	}
	line := 1
	for i, t := range tokens {
		l.tracks[i] = resolve(t)
		l.lines[i] = line
		line++
		if i < len(tokens)-1 && !zeroGap(gapAt(gaps, i)) {
			l.gaps[i] = true
			line++
		}
	}
	return l
}

func (l layout) template(gaps []string) string {
	parts := make([]string, 0, len(l.tracks)*2)
	for i, t := range l.tracks {
		parts = append(parts, t)
		if i < len(l.gaps) && l.gaps[i] {
			parts = append(parts, strings.TrimSpace(gapAt(gaps, i)))
		}
	}
	return strings.Join(parts, " ")
}

// placement returns the "start / end" line pair for a span starting at track
// i and covering span tracks.
func (l layout) placement(i, span int) string {
	start := l.lines[i]
	end := l.lines[i+span-1] + 1
	return strconv.Itoa(start) + " / " + strconv.Itoa(end)
}
