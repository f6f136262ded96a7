package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"bloomgrid/api/internal/node"
	"bloomgrid/api/internal/render"
)

//go:embed templates/grid.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/grid.html"))

// TemplateData holds data for page template rendering
type TemplateData struct {
	Title string
	// Table renders spans as colspan/rowspan instead of CSS grid placement.
	Table bool
	Grid  *TemplateGrid
}

// TemplateGrid is one rendered grid. Cells lists every cell in row-major
// order; Rows lists only the drawn (anchor) cells of each row.
type TemplateGrid struct {
	ID         node.ID
	Style      template.CSS
	Suppressed bool
	Cells      []TemplateCell
	Rows       [][]TemplateCell
}

type TemplateCell struct {
	ID          node.ID
	SpanX       int
	SpanY       int
	Style       template.CSS
	BorderStyle template.CSS
	Content     template.HTML
	Nested      *TemplateGrid
}

// RenderHTML renders the page template with provided data
func RenderHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// BuildView resolves grid and every grid nested in it onto a private
// surface and collects the written styles.
func BuildView(tree *node.Tree, grid node.ID) (*TemplateGrid, error) {
	return buildView(tree, render.NewSurface(), grid)
}

func buildView(tree *node.Tree, s *render.Surface, grid node.ID) (*TemplateGrid, error) {
	m, err := render.Build(tree, grid)
	if err != nil {
		return nil, err
	}
	render.Apply(s, m)

	v := &TemplateGrid{
		ID:         grid,
		Style:      cssOf(s.Styles(grid), nil),
		Suppressed: m.SuppressOuter,
		Rows:       make([][]TemplateCell, len(m.Rows)),
	}
	for _, c := range m.Cells {
		styles := s.Styles(c.ID)
		tc := TemplateCell{
			ID:          c.ID,
			SpanX:       c.SpanX,
			SpanY:       c.SpanY,
			Style:       cssOf(styles, nil),
			BorderStyle: cssOf(styles, isBorderProperty),
		}
		if content, ok := tree.ContentRoot(c.ID); ok {
			n, _ := tree.Get(content)
			if n.Kind == node.KindGrid {
				if tc.Nested, err = buildView(tree, s, content); err != nil {
					return nil, err
				}
			} else {
				tc.Content = ContentHTML(n.Content)
			}
		}
		v.Cells = append(v.Cells, tc)
		if !c.Skip {
			v.Rows[c.Row] = append(v.Rows[c.Row], tc)
		}
	}
	return v, nil
}

func isBorderProperty(name string) bool {
	return strings.HasPrefix(name, "border-")
}

// cssOf joins styles into a declaration list in property order. Values that
// could break out of a declaration are dropped.
func cssOf(styles map[string]string, keep func(string) bool) template.CSS {
	keys := make([]string, 0, len(styles))
	for k := range styles {
		if keep == nil || keep(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v := styles[k]
		if !safeCSSValue(k) || !safeCSSValue(v) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte(';')
	}
	return template.CSS(b.String())
}

func safeCSSValue(v string) bool {
	if strings.ContainsAny(v, ";{}<>\"'\\") {
		return false
	}
	lower := strings.ToLower(v)
	return !strings.Contains(lower, "url(") && !strings.Contains(lower, "expression(") && !strings.Contains(lower, "/*")
}
