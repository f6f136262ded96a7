package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"bloomgrid/api/internal/bloom"
	"bloomgrid/api/internal/config"
	"bloomgrid/api/internal/export"
	"bloomgrid/api/internal/history"
	"bloomgrid/api/internal/node"
	"bloomgrid/api/internal/render"
)

// Publisher fans history events out of the process.
type Publisher interface {
	Notifier(workspace string) history.Notifier
	Ping(ctx context.Context) error
}

// exporter is satisfied by *export.Service.
type exporter interface {
	Export(ctx context.Context, src export.Source, req export.Request) (*export.Result, error)
}

type document struct {
	id        string
	title     string
	createdAt time.Time
	ws        *bloom.Workspace
	events    *history.Broadcaster

	mu   sync.Mutex
	last *history.Event
}

func (d *document) lastEvent() *history.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return nil
	}
	ev := *d.last
	return &ev
}

type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Grids     []node.ID `json:"grids"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateDocumentInput struct {
	Title    string             `json:"title"`
	Rows     int                `json:"rows"`
	Columns  int                `json:"columns"`
	Document *node.DocumentNode `json:"document"`
}

type Service struct {
	cfg       config.Config
	publisher Publisher
	exporter  exporter
	logger    *log.Logger

	mu        sync.RWMutex
	documents map[string]*document
}

// New creates the service. publisher may be nil, in which case history
// events stay in-process.
func New(cfg config.Config, publisher Publisher) *Service {
	return &Service{
		cfg:       cfg,
		publisher: publisher,
		exporter:  export.NewService(cfg.ExportTimeout, cfg.PandocPath),
		logger:    log.Default(),
		documents: make(map[string]*document),
	}
}

func (s *Service) document(id string) (*document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domainError(http.StatusNotFound, "DOCUMENT_NOT_FOUND", "Document not found", map[string]any{"documentId": id})
	}
	return doc, nil
}

func (s *Service) CreateDocument(_ context.Context, input CreateDocumentInput) (DocumentSummary, error) {
	id := "doc_" + randomHex(8)
	events := history.NewBroadcaster()
	notifiers := []history.Notifier{events}
	if s.publisher != nil {
		notifiers = append(notifiers, s.publisher.Notifier(id))
	}
	doc := &document{
		id:        id,
		title:     strings.TrimSpace(input.Title),
		createdAt: time.Now().UTC(),
		events:    events,
		ws: bloom.NewWorkspace(bloom.Config{
			HistoryLimit: s.cfg.HistoryLimit,
			Notifiers:    notifiers,
			Logger:       s.logger,
		}),
	}
	events.Subscribe(func(ev history.Event) {
		doc.mu.Lock()
		doc.last = &ev
		doc.mu.Unlock()
	})

	if input.Document != nil {
		if _, err := doc.ws.Load(*input.Document); err != nil {
			return DocumentSummary{}, domainError(http.StatusUnprocessableEntity, "INVALID_DOCUMENT", err.Error(), nil)
		}
	} else {
		rows, cols := input.Rows, input.Columns
		if rows == 0 && cols == 0 {
			rows, cols = 2, 2
		}
		if _, err := doc.ws.CreateGrid(cols, rows); err != nil {
			return DocumentSummary{}, err
		}
	}

	s.mu.Lock()
	s.documents[id] = doc
	s.mu.Unlock()
	return summarize(doc), nil
}

func summarize(doc *document) DocumentSummary {
	return DocumentSummary{ID: doc.id, Title: doc.title, Grids: doc.ws.Grids(), CreatedAt: doc.createdAt}
}

func (s *Service) ListDocuments() []DocumentSummary {
	s.mu.RLock()
	docs := make([]*document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	out := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, summarize(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// GetDocument returns the document's JSON form.
func (s *Service) GetDocument(id string) (DocumentSummary, json.RawMessage, error) {
	doc, err := s.document(id)
	if err != nil {
		return DocumentSummary{}, nil, err
	}
	data, err := doc.ws.Document()
	if err != nil {
		return DocumentSummary{}, nil, err
	}
	return summarize(doc), data, nil
}

func (s *Service) DeleteDocument(id string) error {
	s.mu.Lock()
	doc, ok := s.documents[id]
	delete(s.documents, id)
	s.mu.Unlock()
	if !ok {
		return domainError(http.StatusNotFound, "DOCUMENT_NOT_FOUND", "Document not found", map[string]any{"documentId": id})
	}
	doc.ws.Reset()
	return nil
}

// Grid returns a handle on a grid of a document.
func (s *Service) Grid(documentID string, gridID node.ID) (*bloom.Grid, error) {
	doc, err := s.document(documentID)
	if err != nil {
		return nil, err
	}
	return doc.ws.Grid(gridID)
}

// GridState is what mutation endpoints return.
type GridState struct {
	GridID  node.ID `json:"gridId"`
	Rows    int     `json:"rows"`
	Columns int     `json:"columns"`
	CanUndo bool    `json:"canUndo"`
	Depth   int     `json:"depth"`
}

func (s *Service) GridState(documentID string, g *bloom.Grid) (GridState, error) {
	doc, err := s.document(documentID)
	if err != nil {
		return GridState{}, err
	}
	rows, cols, err := g.Counts()
	if err != nil {
		return GridState{}, err
	}
	h := doc.ws.History()
	return GridState{GridID: g.ID(), Rows: rows, Columns: cols, CanUndo: h.CanUndo, Depth: h.Depth}, nil
}

// Model resolves a grid and returns it with its fingerprint.
func (s *Service) Model(documentID string, gridID node.ID) (*render.Model, string, error) {
	doc, err := s.document(documentID)
	if err != nil {
		return nil, "", err
	}
	if _, err := doc.ws.Grid(gridID); err != nil {
		return nil, "", err
	}
	m, err := doc.ws.Model(gridID)
	if err != nil {
		return nil, "", err
	}
	return m, render.ModelFingerprint(m), nil
}

type UndoResult struct {
	Undone  bool `json:"undone"`
	CanUndo bool `json:"canUndo"`
	Depth   int  `json:"depth"`
}

func (s *Service) Undo(documentID string, target node.ID) (UndoResult, error) {
	doc, err := s.document(documentID)
	if err != nil {
		return UndoResult{}, err
	}
	if target == node.NoID {
		grids := doc.ws.Grids()
		if len(grids) == 0 {
			return UndoResult{}, nil
		}
		target = grids[0]
	}
	undone := doc.ws.Undo(target)
	h := doc.ws.History()
	return UndoResult{Undone: undone, CanUndo: h.CanUndo, Depth: h.Depth}, nil
}

type HistoryPayload struct {
	bloom.HistoryState
	Last *history.Event `json:"last,omitempty"`
}

func (s *Service) History(documentID string) (HistoryPayload, error) {
	doc, err := s.document(documentID)
	if err != nil {
		return HistoryPayload{}, err
	}
	return HistoryPayload{HistoryState: doc.ws.History(), Last: doc.lastEvent()}, nil
}

func (s *Service) Export(ctx context.Context, documentID string, gridID node.ID, format export.Format) (*export.Result, error) {
	doc, err := s.document(documentID)
	if err != nil {
		return nil, err
	}
	if _, err := doc.ws.Grid(gridID); err != nil {
		return nil, err
	}
	title := doc.title
	if title == "" {
		title = fmt.Sprintf("%s-grid-%d", doc.id, gridID)
	}
	return s.exporter.Export(ctx, doc.ws, export.Request{Grid: gridID, Format: format, Title: title})
}

// Flush renders every pending grid of every document and returns how many
// renders ran.
func (s *Service) Flush() int {
	s.mu.RLock()
	docs := make([]*document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	n := 0
	for _, doc := range docs {
		n += doc.ws.Flush()
	}
	return n
}

// Run flushes on every frame until ctx is done.
func (s *Service) Run(ctx context.Context) {
	interval := s.cfg.FrameInterval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// Ping checks the notification backend, when one is configured.
func (s *Service) Ping(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Ping(ctx)
}
