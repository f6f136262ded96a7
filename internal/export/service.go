package export

import (
	"context"
	"fmt"
	"time"

	"bloomgrid/api/internal/node"
	"bloomgrid/api/internal/render"
)

// Source gives locked access to a document tree.
type Source interface {
	View(fn func(tree *node.Tree, surface *render.Surface) error) error
}

// Service provides grid export functionality
type Service struct {
	timeout time.Duration
	pandoc  string
	pdf     func(ctx context.Context, html string) ([]byte, error)
	docx    func(ctx context.Context, html string) ([]byte, error)
}

// NewService creates an export service. timeout bounds each PDF or DOCX
// conversion; pandoc is the pandoc executable.
func NewService(timeout time.Duration, pandoc string) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if pandoc == "" {
		pandoc = "pandoc"
	}
	s := &Service{timeout: timeout, pandoc: pandoc, pdf: printPDF}
	s.docx = func(ctx context.Context, html string) ([]byte, error) {
		return convertDOCX(ctx, s.pandoc, html)
	}
	return s
}

// Export generates an export in the requested format. The tree is only
// locked while the view is built.
func (s *Service) Export(ctx context.Context, src Source, req Request) (*Result, error) {
	var view *TemplateGrid
	err := src.View(func(tree *node.Tree, _ *render.Surface) error {
		var err error
		view, err = BuildView(tree, req.Grid)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("build view: %w", err)
	}

	data := TemplateData{Title: req.Title, Grid: view, Table: req.Format == FormatDOCX}
	html, err := RenderHTML(data)
	if err != nil {
		return nil, err
	}
	name := sanitizeFilename(req.Title)

	switch req.Format {
	case FormatHTML, "":
		return &Result{Data: []byte(html), Filename: name + ".html", MimeType: "text/html; charset=utf-8"}, nil
	case FormatPDF:
		out, err := s.convert(ctx, s.pdf, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: out, Filename: name + ".pdf", MimeType: "application/pdf"}, nil
	case FormatDOCX:
		out, err := s.convert(ctx, s.docx, html)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:     out,
			Filename: name + ".docx",
			MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

func (s *Service) convert(ctx context.Context, fn func(context.Context, string) ([]byte, error), html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx, html)
}
