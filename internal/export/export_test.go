package export

import (
	"context"
	"errors"
	"html/template"
	"strconv"
	"strings"
	"testing"
	"time"

	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/grid"
	"bloomgrid/api/internal/node"
	"bloomgrid/api/internal/render"
)

type treeSource struct {
	tree *node.Tree
}

func (s treeSource) View(fn func(*node.Tree, *render.Surface) error) error {
	return fn(s.tree, render.NewSurface())
}

// fixture builds a 2x2 grid whose first cell spans both columns and holds
// "hello".
func fixture(t *testing.T) (treeSource, *grid.Editor, node.ID) {
	t.Helper()
	tree := node.NewTree()
	e := grid.NewEditor(tree, nil)
	g, err := e.NewGrid(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.Append(tree.Root(), g); err != nil {
		t.Fatal(err)
	}
	first, _ := e.Cell(g, 0, 0)
	if err := e.SetCellSpan(first, 2, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCellBorder(g, first, border.Bottom, border.Stroke(2, border.StyleSolid, "#336")); err != nil {
		t.Fatal(err)
	}
	content, _ := tree.ContentRoot(first)
	n, _ := tree.Get(content)
	n.Content.Text = "hello"
	return treeSource{tree}, e, g
}

func TestContentHTML(t *testing.T) {
	tests := []struct {
		name    string
		content *node.ContentProps
		want    template.HTML
	}{
		{"nil", nil, ""},
		{"empty text", &node.ContentProps{Type: "text"}, ""},
		{"text", &node.ContentProps{Type: "text", Text: "a < b"}, "<p>a &lt; b</p>"},
		{"line breaks", &node.ContentProps{Type: "text", Text: "one\ntwo\n\nthree"}, "<p>one<br>two</p>\n<p>three</p>"},
		{"heading", &node.ContentProps{Type: "heading", Text: "Plan", Attrs: map[string]string{"level": "3"}}, "<h3>Plan</h3>"},
		{"heading default level", &node.ContentProps{Type: "heading", Text: "Plan", Attrs: map[string]string{"level": "9"}}, "<h2>Plan</h2>"},
		{"code", &node.ContentProps{Type: "code", Text: "<b>"}, "<pre><code>&lt;b&gt;</code></pre>"},
		{"image", &node.ContentProps{Type: "image", Text: "logo", Attrs: map[string]string{"src": "https://x.test/a.png"}}, `<img src="https://x.test/a.png" alt="logo">`},
		{"unsafe image", &node.ContentProps{Type: "image", Text: "logo", Attrs: map[string]string{"src": "javascript:alert(1)"}}, "logo"},
		{"unsafe link", &node.ContentProps{Type: "link", Text: "go", Attrs: map[string]string{"href": "javascript:x"}}, "go"},
		{"unknown type", &node.ContentProps{Type: "chart", Text: "q3"}, "<p>q3</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentHTML(tt.content); got != tt.want {
				t.Errorf("ContentHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Budget v1.2", "Budget-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "grid"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := sanitizeFilename(tt.input); result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := percentEncodeForDataURL(tt.input); result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCSSOfDropsUnsafeValues(t *testing.T) {
	got := cssOf(map[string]string{
		"display":            "grid",
		"border-top-color":   "red; background: url(x)",
		"grid-column":        "1 / 3",
		"border-left-radius": "0",
	}, nil)
	if want := template.CSS("border-left-radius: 0; display: grid; grid-column: 1 / 3;"); got != want {
		t.Fatalf("cssOf() = %q, want %q", got, want)
	}
	borders := cssOf(map[string]string{"display": "none", "border-top-width": "2px"}, isBorderProperty)
	if borders != "border-top-width: 2px;" {
		t.Fatalf("border filter = %q", borders)
	}
}

func TestExportHTML(t *testing.T) {
	src, e, g := fixture(t)
	res, err := NewService(time.Second, "").Export(context.Background(), src, Request{Grid: g, Format: FormatHTML, Title: "Quarterly Plan"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.Filename != "Quarterly-Plan.html" || !strings.HasPrefix(res.MimeType, "text/html") {
		t.Errorf("unexpected result %q %q", res.Filename, res.MimeType)
	}
	html := string(res.Data)
	for _, want := range []string{
		"<h1>Quarterly Plan</h1>",
		"grid-template-columns: minmax(60px, max-content) minmax(60px, max-content);",
		"grid-column: 1 / 3;",
		"display: none;",
		"<p>hello</p>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	covered, _ := e.Cell(g, 0, 1)
	if !strings.Contains(html, `data-cell="`+itoa(covered)+`"`) {
		t.Error("covered cell should still be emitted in grid mode")
	}
}

func TestExportDOCXUsesTable(t *testing.T) {
	src, _, g := fixture(t)
	s := NewService(time.Second, "")
	var captured string
	s.docx = func(_ context.Context, html string) ([]byte, error) {
		captured = html
		return []byte("docx-bytes"), nil
	}

	res, err := s.Export(context.Background(), src, Request{Grid: g, Format: FormatDOCX, Title: "Plan"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(res.Data) != "docx-bytes" || res.Filename != "Plan.docx" {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.Contains(captured, `colspan="2"`) {
		t.Error("spanning cell should become a colspan")
	}
	if strings.Count(captured, "<td") != 3 {
		t.Errorf("expected 3 drawn cells, got %d", strings.Count(captured, "<td"))
	}
	if !strings.Contains(captured, "border-bottom-width: 2px;") {
		t.Error("table cell should carry its resolved border")
	}
}

func TestExportNestedGrid(t *testing.T) {
	src, e, g := fixture(t)
	host, _ := e.Cell(g, 1, 1)
	nested, err := e.NestGrid(host, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	res, err := NewService(time.Second, "").Export(context.Background(), src, Request{Grid: g, Format: FormatHTML})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(string(res.Data), `data-grid="`+itoa(nested)+`"`) {
		t.Error("nested grid missing from export")
	}
	if res.Filename != "grid.html" {
		t.Errorf("Filename = %q", res.Filename)
	}
}

func TestExportConversionTimeout(t *testing.T) {
	src, _, g := fixture(t)
	s := NewService(10*time.Millisecond, "")
	s.pdf = func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := s.Export(context.Background(), src, Request{Grid: g, Format: FormatPDF})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Export() error = %v, want deadline exceeded", err)
	}
}

func TestExportErrors(t *testing.T) {
	src, _, _ := fixture(t)
	s := NewService(time.Second, "")
	if _, err := s.Export(context.Background(), src, Request{Grid: node.ID(999), Format: FormatHTML}); err == nil {
		t.Error("expected error for unknown grid")
	}
	if _, err := ParseFormat("xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ParseFormat(xlsx) error = %v", err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatHTML {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
}

func itoa(id node.ID) string {
	return strconv.Itoa(int(id))
}
