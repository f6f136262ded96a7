package render

import (
	"encoding/hex"
	"io"
	"sort"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/node"
)

// AttrOuterSuppressed marks a nested grid whose perimeter is drawn by its
// host cell.
const AttrOuterSuppressed = "data-outer-suppressed"

// Canvas is the visual tree a model is applied to. Setting a style to the
// empty string removes it.
type Canvas interface {
	SetStyle(id node.ID, property, value string)
	SetAttr(id node.ID, name, value string)
	RemoveAttr(id node.ID, name string)
}

// Apply writes m onto canvas. Every property the model owns is written on
// every call, so applying an unchanged model leaves the canvas unchanged.
func Apply(canvas Canvas, m *Model) {
	canvas.SetStyle(m.Grid, "display", "grid")
	canvas.SetStyle(m.Grid, "grid-template-columns", m.ColumnTemplate)
	canvas.SetStyle(m.Grid, "grid-template-rows", m.RowTemplate)
	if m.SuppressOuter {
		canvas.SetAttr(m.Grid, AttrOuterSuppressed, "true")
	} else {
		canvas.RemoveAttr(m.Grid, AttrOuterSuppressed)
	}

	for _, c := range m.Cells {
		id := c.ID
		canvas.SetStyle(id, "--span-x", strconv.Itoa(c.SpanX))
		canvas.SetStyle(id, "--span-y", strconv.Itoa(c.SpanY))
		canvas.SetStyle(id, "grid-column", c.GridCol)
		canvas.SetStyle(id, "grid-row", c.GridRow)
		if c.Skip {
			canvas.SetStyle(id, "display", "none")
		} else {
			canvas.SetStyle(id, "display", "")
		}
		writeSide(canvas, id, "top", c.Borders.Top)
		writeSide(canvas, id, "right", c.Borders.Right)
		writeSide(canvas, id, "bottom", c.Borders.Bottom)
		writeSide(canvas, id, "left", c.Borders.Left)
		canvas.SetStyle(id, "border-top-left-radius", px(c.Radius.TopLeft))
		canvas.SetStyle(id, "border-top-right-radius", px(c.Radius.TopRight))
		canvas.SetStyle(id, "border-bottom-right-radius", px(c.Radius.BottomRight))
		canvas.SetStyle(id, "border-bottom-left-radius", px(c.Radius.BottomLeft))
	}
}

func writeSide(canvas Canvas, id node.ID, side string, s border.Spec) {
	canvas.SetStyle(id, "border-"+side+"-width", s.CSSWidth())
	canvas.SetStyle(id, "border-"+side+"-style", s.CSSStyle())
	canvas.SetStyle(id, "border-"+side+"-color", s.CSSColor())
}

func px(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// Render builds and applies grid and every grid nested below it.
func Render(tree *node.Tree, canvas Canvas, grid node.ID) error {
	m, err := Build(tree, grid)
	if err != nil {
		return err
	}
	Apply(canvas, m)
	for _, c := range m.Cells {
		content, ok := tree.ContentRoot(c.ID)
		if !ok {
			continue
		}
		if n, _ := tree.Get(content); n.Kind == node.KindGrid {
			if err := Render(tree, canvas, content); err != nil {
				return err
			}
		}
	}
	return nil
}

// Element is the written state of one node.
type Element struct {
	Styles map[string]string
	Attrs  map[string]string
}

// Surface is an in-memory Canvas.
type Surface struct {
	elements map[node.ID]*Element
}

func NewSurface() *Surface {
	return &Surface{elements: make(map[node.ID]*Element)}
}

func (s *Surface) element(id node.ID) *Element {
	e, ok := s.elements[id]
	if !ok {
		e = &Element{Styles: map[string]string{}, Attrs: map[string]string{}}
		s.elements[id] = e
	}
	return e
}

func (s *Surface) SetStyle(id node.ID, property, value string) {
	if value == "" {
		if e, ok := s.elements[id]; ok {
			delete(e.Styles, property)
		}
		return
	}
	s.element(id).Styles[property] = value
}

func (s *Surface) SetAttr(id node.ID, name, value string) {
	s.element(id).Attrs[name] = value
}

func (s *Surface) RemoveAttr(id node.ID, name string) {
	if e, ok := s.elements[id]; ok {
		delete(e.Attrs, name)
	}
}

// Style returns one written style property.
func (s *Surface) Style(id node.ID, property string) (string, bool) {
	e, ok := s.elements[id]
	if !ok {
		return "", false
	}
	v, ok := e.Styles[property]
	return v, ok
}

// Attr returns one written attribute.
func (s *Surface) Attr(id node.ID, name string) (string, bool) {
	e, ok := s.elements[id]
	if !ok {
		return "", false
	}
	v, ok := e.Attrs[name]
	return v, ok
}

// Styles returns a copy of the styles written for id.
func (s *Surface) Styles(id node.ID) map[string]string {
	out := map[string]string{}
	if e, ok := s.elements[id]; ok {
		for k, v := range e.Styles {
			out[k] = v
		}
	}
	return out
}

// Forget drops the state of nodes that no longer exist.
func (s *Surface) Forget(ids ...node.ID) {
	for _, id := range ids {
		delete(s.elements, id)
	}
}

// Prune forgets every node for which live returns false and returns how
// many were dropped.
func (s *Surface) Prune(live func(node.ID) bool) int {
	n := 0
	for id := range s.elements {
		if !live(id) {
			delete(s.elements, id)
			n++
		}
	}
	return n
}

// Reset drops all written state.
func (s *Surface) Reset() {
	s.elements = make(map[node.ID]*Element)
}

// Fingerprint hashes the styles and attributes written for ids, in order.
func (s *Surface) Fingerprint(ids ...node.ID) string {
	h, _ := blake2b.New256(nil)
	for _, id := range ids {
		h.Write([]byte(strconv.Itoa(int(id))))
		h.Write([]byte{0})
		e, ok := s.elements[id]
		if !ok {
			continue
		}
		writeSorted(h, e.Styles)
		h.Write([]byte{1})
		writeSorted(h, e.Attrs)
		h.Write([]byte{2})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeSorted(h io.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(m[k]))
		h.Write([]byte{';'})
	}
}

// ModelFingerprint hashes the resolved model itself, for callers that have
// no surface.
func ModelFingerprint(m *Model) string {
	s := NewSurface()
	Apply(s, m)
	ids := []node.ID{m.Grid}
	for _, c := range m.Cells {
		ids = append(ids, c.ID)
	}
	return s.Fingerprint(ids...)
}
