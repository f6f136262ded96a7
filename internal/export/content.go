package export

import (
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"

	"bloomgrid/api/internal/node"
)

// ContentHTML converts a cell's content root to HTML. Unknown content types
// render their text.
func ContentHTML(c *node.ContentProps) template.HTML {
	if c == nil {
		return ""
	}
	switch c.Type {
	case "heading":
		level := 2
		if lvl, err := strconv.Atoi(c.Attrs["level"]); err == nil && lvl >= 1 && lvl <= 6 {
			level = lvl
		}
		return template.HTML(fmt.Sprintf("<h%d>%s</h%d>", level, html.EscapeString(c.Text), level))
	case "code":
		return template.HTML(fmt.Sprintf("<pre><code>%s</code></pre>", html.EscapeString(c.Text)))
	case "image":
		src := c.Attrs["src"]
		if !safeImageSource(src) {
			return template.HTML(html.EscapeString(c.Text))
		}
		return template.HTML(fmt.Sprintf(`<img src="%s" alt="%s">`, html.EscapeString(src), html.EscapeString(c.Text)))
	case "link":
		href := c.Attrs["href"]
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return template.HTML(html.EscapeString(c.Text))
		}
		return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(c.Text)))
	default:
		return textHTML(c.Text)
	}
}

// textHTML escapes text and keeps its paragraph and line breaks.
func textHTML(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var b strings.Builder
	for i, para := range strings.Split(text, "\n\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		lines := strings.Split(para, "\n")
		for j := range lines {
			lines[j] = html.EscapeString(lines[j])
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return template.HTML(b.String())
}

func safeImageSource(src string) bool {
	return strings.HasPrefix(src, "https://") ||
		strings.HasPrefix(src, "http://") ||
		strings.HasPrefix(src, "data:image/")
}
