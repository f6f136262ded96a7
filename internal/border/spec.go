// Package border holds the edge-based border model shared by the structural
// editor and the render engine: border specs, boundary edges, edge matrices and
// the wire codec for them.
package border

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the three shapes a Spec can take.
type Kind uint8

const (
	// KindUnset means no information was supplied for a side.
	KindUnset Kind = iota
	// KindCleared is an explicit "no border". It is a value, not an absence.
	KindCleared
	// KindStroke is a concrete visible stroke.
	KindStroke
)

func (k Kind) String() string {
	switch k {
	case KindCleared:
		return "cleared"
	case KindStroke:
		return "stroke"
	default:
		return "unset"
	}
}

// Style is the stroke style of a border.
type Style string

const (
	StyleNone   Style = "none"
	StyleSolid  Style = "solid"
	StyleDashed Style = "dashed"
	StyleDotted Style = "dotted"
	StyleDouble Style = "double"
)

// DefaultColor is used for cleared specs and strokes without a colour.
const DefaultColor = "#000"

// ParseStyle validates a style name.
func ParseStyle(value string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(value))) {
	case StyleNone:
		return StyleNone, nil
	case StyleSolid, "":
		return StyleSolid, nil
	case StyleDashed:
		return StyleDashed, nil
	case StyleDotted:
		return StyleDotted, nil
	case StyleDouble:
		return StyleDouble, nil
	default:
		return "", fmt.Errorf("unknown border style %q", value)
	}
}

// Precedence orders styles for tie-breaking at a shared boundary.
func (s Style) Precedence() int {
	switch s {
	case StyleDouble:
		return 4
	case StyleSolid:
		return 3
	case StyleDashed:
		return 2
	case StyleDotted:
		return 1
	default:
		return 0
	}
}

// Spec is a border specification. Build values with Unset, Cleared or Stroke so
// that the normalization rules hold; the zero value is Unset.
type Spec struct {
	Kind   Kind
	Weight float64
	Style  Style
	Color  string
}

// Unset returns the absent spec.
func Unset() Spec { return Spec{} }

// Cleared returns the canonical "no stroke" spec.
func Cleared() Spec {
	return Spec{Kind: KindCleared, Weight: 0, Style: StyleNone, Color: DefaultColor}
}

// Stroke builds a spec, normalizing weight<=0 or style none to Cleared.
func Stroke(weight float64, style Style, color string) Spec {
	if style == "" {
		style = StyleSolid
	}
	if weight <= 0 || style == StyleNone {
		return Cleared()
	}
	if strings.TrimSpace(color) == "" {
		color = DefaultColor
	}
	return Spec{Kind: KindStroke, Weight: weight, Style: style, Color: color}
}

// IsSet reports whether the spec carries information (Cleared counts).
func (s Spec) IsSet() bool { return s.Kind != KindUnset }

// Visible reports whether the spec paints a stroke.
func (s Spec) Visible() bool { return s.Kind == KindStroke }

// CSSWidth returns the width as a CSS length; unset and cleared are "0".
func (s Spec) CSSWidth() string {
	if s.Kind != KindStroke {
		return "0"
	}
	return strconv.FormatFloat(s.Weight, 'f', -1, 64) + "px"
}

// CSSStyle returns the CSS border-style keyword.
func (s Spec) CSSStyle() string {
	if s.Kind != KindStroke {
		return string(StyleNone)
	}
	return string(s.Style)
}

// CSSColor returns the colour to write, falling back to DefaultColor.
func (s Spec) CSSColor() string {
	if s.Kind != KindStroke || s.Color == "" {
		return DefaultColor
	}
	return s.Color
}

func (s Spec) String() string {
	switch s.Kind {
	case KindUnset:
		return "unset"
	case KindCleared:
		return "none"
	default:
		return s.CSSWidth() + " " + string(s.Style) + " " + s.Color
	}
}

// Compare orders two present specs by (noneDominates, weight, style precedence).
// It returns 1 when a wins, -1 when b wins and 0 for a tie.
func Compare(a, b Spec) int {
	an, bn := noneScore(a), noneScore(b)
	if an != bn {
		if an > bn {
			return 1
		}
		return -1
	}
	if a.Weight != b.Weight {
		if a.Weight > b.Weight {
			return 1
		}
		return -1
	}
	ap, bp := a.Style.Precedence(), b.Style.Precedence()
	switch {
	case ap > bp:
		return 1
	case ap < bp:
		return -1
	default:
		return 0
	}
}

func noneScore(s Spec) int {
	if s.Kind == KindCleared {
		return 1
	}
	return 0
}
