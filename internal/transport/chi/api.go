package chi

import (
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/usecase/session"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeSessionNotFound  ErrorCode = "session_not_found"
	ErrorCodeItemNotFound     ErrorCode = "item_not_found"
	ErrorCodeDatasetNotFound  ErrorCode = "dataset_not_found"
	ErrorCodeExportNotOpen    ErrorCode = "export_not_open"
	ErrorCodeNothingSelected  ErrorCode = "nothing_selected"
	ErrorCodeSearchTimeout    ErrorCode = "search_timeout"
	ErrorCodeSearchFailed     ErrorCode = "search_failed"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SearchRequest is the body of POST /sessions/{id}/search.
type SearchRequest struct {
	Query   string    `json:"query"`
	Version string    `json:"version"`
	Mode    mode.Mode `json:"mode,omitempty"`
}

// SessionResponse wraps the rendered session state.
type SessionResponse struct {
	Session session.View `json:"session"`
}

// ToggleResponse reports the selection state of one item after a toggle.
type ToggleResponse struct {
	Identity      string `json:"identity"`
	Selected      bool   `json:"selected"`
	SelectedCount int    `json:"selected_count"`
}

// SelectionResponse reports the selection size.
type SelectionResponse struct {
	SelectedCount int      `json:"selected_count"`
	Selected      []string `json:"selected"`
}

// VersionsResponse lists the catalog versions.
type VersionsResponse struct {
	Versions []string `json:"versions"`
	Default  string   `json:"default"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
