package session

import (
	"github.com/kailas-cloud/compsearch/internal/domain/pagination"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// View is the rendered state of a session.
type View struct {
	ID            string            `json:"id"`
	Query         string            `json:"query"`
	Version       string            `json:"version"`
	Versions      []string          `json:"versions"`
	Mode          mode.Mode         `json:"mode"`
	Placeholder   string            `json:"placeholder"`
	Loading       bool              `json:"loading"`
	SearchMessage string            `json:"search_message,omitempty"`
	Errors        map[string]string `json:"errors"`
	Total         int               `json:"total"`
	HasResult     bool              `json:"has_result"`
	// Results is the visible page of the result list.
	Results       []result.Item     `json:"results"`
	Pagination    pagination.Event  `json:"pagination"`
	Window        pagination.Window `json:"window"`
	SelectedCount int               `json:"selected_count"`
	Selected      []string          `json:"selected"`
	SelectedItem  *result.Item      `json:"selected_item,omitempty"`
	ExportOpen    bool              `json:"export_open"`
	Seq           uint64            `json:"seq"`
}
