package app

import (
	"errors"
	"fmt"
	"net/http"

	"bloomgrid/api/internal/bloom"
	"bloomgrid/api/internal/border"
	"bloomgrid/api/internal/export"
	"bloomgrid/api/internal/grid"
	"bloomgrid/api/internal/node"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

var validationCodes = []struct {
	err  error
	code string
}{
	{grid.ErrOutOfBounds, "INDEX_OUT_OF_BOUNDS"},
	{grid.ErrLastTrack, "LAST_TRACK"},
	{grid.ErrInvalidSpan, "INVALID_SPAN"},
	{grid.ErrSpanOutOfBounds, "SPAN_OUT_OF_BOUNDS"},
	{grid.ErrInvalidValue, "INVALID_VALUE"},
	{grid.ErrNotChild, "NOT_CHILD"},
	{grid.ErrNotCell, "NOT_CELL"},
	{grid.ErrNotGrid, "NOT_GRID"},
	{border.ErrMalformedEdges, "MALFORMED_EDGES"},
	{export.ErrUnsupportedFormat, "UNSUPPORTED_FORMAT"},
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	switch {
	case errors.Is(err, bloom.ErrNotFound), errors.Is(err, node.ErrNotFound):
		return http.StatusNotFound, "GRID_NOT_FOUND", "Grid not found", nil
	case errors.Is(err, bloom.ErrSkipped):
		return http.StatusConflict, "SKIPPED", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}

	for _, v := range validationCodes {
		if errors.Is(err, v.err) {
			return http.StatusUnprocessableEntity, v.code, err.Error(), nil
		}
	}

	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
