package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bloomgrid/api/internal/bloom"
	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/export"
	"bloomgrid/api/internal/node"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"notify": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["notify"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" || parts[1] != "documents" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"documents": s.service.ListDocuments()})
		case http.MethodPost:
			var body CreateDocumentInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			summary, err := s.service.CreateDocument(r.Context(), body)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			var gridID node.ID = node.NoID
			if len(summary.Grids) > 0 {
				gridID = summary.Grids[0]
			}
			writeJSON(w, http.StatusCreated, map[string]any{"id": summary.ID, "gridId": gridID, "document": summary})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	documentID := parts[2]
	if len(parts) >= 5 && parts[3] == "grids" {
		gridID, err := parseNodeID(parts[4])
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_GRID_ID", err.Error(), nil)
			return
		}
		s.handleGrid(w, r, documentID, gridID, parts[5:])
		return
	}
	s.handleDocument(w, r, documentID, parts)
}

func (s *HTTPServer) handleDocument(w http.ResponseWriter, r *http.Request, documentID string, parts []string) {
	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			summary, data, err := s.service.GetDocument(documentID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"document": summary, "content": data})
		case http.MethodDelete:
			if err := s.service.DeleteDocument(documentID); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 4 && parts[3] == "undo" && r.Method == http.MethodPost {
		var body struct {
			Target *node.ID `json:"target"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		target := node.NoID
		if body.Target != nil {
			target = *body.Target
		}
		result, err := s.service.Undo(documentID, target)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(parts) == 4 && parts[3] == "history" && r.Method == http.MethodGet {
		payload, err := s.service.History(documentID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

// handleGrid serves /api/documents/{id}/grids/{grid}/...; rest is the path
// after the grid ID.
func (s *HTTPServer) handleGrid(w http.ResponseWriter, r *http.Request, documentID string, gridID node.ID, rest []string) {
	g, err := s.service.Grid(documentID, gridID)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.writeGridState(w, documentID, g, http.StatusOK)

	case len(rest) == 1 && rest[0] == "model" && r.Method == http.MethodGet:
		model, fingerprint, err := s.service.Model(documentID, gridID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		etag := `"` + fingerprint + `"`
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, model)

	case len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet:
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'html', 'pdf' or 'docx'", nil)
			return
		}
		result, err := s.service.Export(r.Context(), documentID, gridID, format)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		w.Write(result.Data)

	case len(rest) >= 1 && (rest[0] == "rows" || rest[0] == "columns"):
		s.handleTracks(w, r, documentID, g, rest)

	case len(rest) >= 2 && rest[0] == "cells":
		s.handleCell(w, r, documentID, g, rest)

	case len(rest) == 2 && rest[0] == "outer" && r.Method == http.MethodPut:
		side, err := border.ParseSide(rest[1])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		var body struct {
			Index  *int        `json:"index"`
			Border border.Spec `json:"border"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.Index != nil {
			err = g.SetOuterBorder(side, *body.Index, body.Border)
		} else {
			err = g.SetOuterSide(side, body.Border)
		}
		s.respond(w, documentID, g, err)

	case len(rest) == 1 && rest[0] == "default-border" && r.Method == http.MethodPut:
		var spec border.Spec
		if err := decodeBody(r, &spec); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, documentID, g, g.SetEdgeDefault(spec))

	case len(rest) == 2 && rest[0] == "gaps" && r.Method == http.MethodPut:
		var body struct {
			Values []string `json:"values"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		switch rest[1] {
		case "x":
			s.respond(w, documentID, g, g.SetGapX(body.Values))
		case "y":
			s.respond(w, documentID, g, g.SetGapY(body.Values))
		default:
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		}

	case len(rest) == 1 && rest[0] == "corners" && r.Method == http.MethodPut:
		var body struct {
			Radius float64 `json:"radius"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, documentID, g, g.SetCorners(body.Radius))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// handleTracks serves rows/... and columns/...
func (s *HTTPServer) handleTracks(w http.ResponseWriter, r *http.Request, documentID string, g *bloom.Grid, rest []string) {
	rows := rest[0] == "rows"

	switch {
	case len(rest) == 1 && r.Method == http.MethodPost:
		var body struct {
			Index *int `json:"index"`
			AtEnd *bool `json:"atEnd"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var err error
		switch {
		case body.Index != nil && rows:
			err = g.InsertRow(*body.Index)
		case body.Index != nil:
			err = g.InsertColumn(*body.Index)
		default:
			atEnd := body.AtEnd == nil || *body.AtEnd
			if rows {
				_, err = g.AddRow(atEnd)
			} else {
				_, err = g.AddColumn(atEnd)
			}
		}
		s.respondStatus(w, documentID, g, err, http.StatusCreated)

	case len(rest) == 2 && r.Method == http.MethodDelete:
		var err error
		if rest[1] == "last" {
			if rows {
				err = g.RemoveLastRow()
			} else {
				err = g.RemoveLastColumn()
			}
		} else {
			index, convErr := strconv.Atoi(rest[1])
			if convErr != nil {
				writeError(w, http.StatusBadRequest, "INVALID_INDEX", "index must be an integer or 'last'", nil)
				return
			}
			if rows {
				err = g.RemoveRow(index)
			} else {
				err = g.RemoveColumn(index)
			}
		}
		s.respond(w, documentID, g, err)

	case len(rest) == 3 && r.Method == http.MethodPut && ((rows && rest[2] == "height") || (!rows && rest[2] == "width")):
		index, convErr := strconv.Atoi(rest[1])
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INDEX", "index must be an integer", nil)
			return
		}
		var body struct {
			Value string `json:"value"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if rows {
			s.respond(w, documentID, g, g.SetRowHeight(index, body.Value))
		} else {
			s.respond(w, documentID, g, g.SetColumnWidth(index, body.Value))
		}

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// handleCell serves cells/{cell}/...
func (s *HTTPServer) handleCell(w http.ResponseWriter, r *http.Request, documentID string, g *bloom.Grid, rest []string) {
	cell, err := parseNodeID(rest[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_CELL_ID", err.Error(), nil)
		return
	}

	switch {
	case len(rest) == 3 && rest[2] == "span" && r.Method == http.MethodPut:
		var body struct {
			SpanX int `json:"spanX"`
			SpanY int `json:"spanY"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, documentID, g, g.SetCellSpan(cell, body.SpanX, body.SpanY))

	case len(rest) == 4 && rest[2] == "borders" && r.Method == http.MethodPut:
		side, err := border.ParseSide(rest[3])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		var spec border.Spec
		if err := decodeBody(r, &spec); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.respond(w, documentID, g, g.SetCellBorder(cell, side, spec))

	case len(rest) == 3 && rest[2] == "nest" && r.Method == http.MethodPost:
		var body struct {
			Columns int `json:"columns"`
			Rows    int `json:"rows"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		nested, err := g.NestGrid(cell, body.Columns, body.Rows)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		s.writeGridState(w, documentID, nested, http.StatusCreated)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) respond(w http.ResponseWriter, documentID string, g *bloom.Grid, err error) {
	s.respondStatus(w, documentID, g, err, http.StatusOK)
}

func (s *HTTPServer) respondStatus(w http.ResponseWriter, documentID string, g *bloom.Grid, err error, status int) {
	if err != nil {
		writeMappedError(w, err)
		return
	}
	s.writeGridState(w, documentID, g, status)
}

func (s *HTTPServer) writeGridState(w http.ResponseWriter, documentID string, g *bloom.Grid, status int) {
	state, err := s.service.GridState(documentID, g)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, status, state)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomHex(8)
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "ETag, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf("app: %v", err)
	}
	writeError(w, status, code, message, details)
}

// decodeBody decodes a JSON body into target. An empty body leaves target
// unchanged.
func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		if errors.Is(err, border.ErrMalformedEdges) {
			return fmt.Errorf("invalid border: %v", err)
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parseNodeID(value string) (node.ID, error) {
	id, err := strconv.ParseInt(value, 10, 32)
	if err != nil || id < 0 {
		return node.NoID, fmt.Errorf("invalid node id %q", value)
	}
	return node.ID(id), nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
