package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/domain"
	"github.com/kailas-cloud/compsearch/internal/domain/artifact"
	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/domain/pagination"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
	"github.com/kailas-cloud/compsearch/internal/domain/selection"
)

// Validation messages shown next to the form fields.
const (
	MsgQueryRequired  = "Query required."
	MsgVersionUnknown = "Unknown version."
	MsgModeInvalid    = "Unknown search mode."
)

// Page navigation actions.
const (
	ActionFirst    = "first"
	ActionPrevious = "previous"
	ActionNext     = "next"
	ActionLast     = "last"
)

// Input is a search form submission.
type Input struct {
	Query   string
	Version string
	Mode    mode.Mode
}

// Session is one user's search screen: the form, the result list with its
// pagination, the multi-selection and the export dialog.
type Session struct {
	id      string
	catalog dataset.Catalog
	orch    Orchestrator
	exp     Exporter
	logger  *zap.Logger

	mu               sync.Mutex
	pager            *pagination.Pager
	sel              *selection.Set
	query            string
	version          string
	mode             mode.Mode
	errors           map[string]string
	originalSelected int
	from             int
	size             int
	selectedItem     *result.Item
	lastSeq          uint64
	hiddenSeq        uint64
	searchedVersion  string
	lastUsed         time.Time
}

// New creates a session. The version defaults to the catalog's first version.
func New(
	id string,
	catalog dataset.Catalog,
	orch Orchestrator,
	exp Exporter,
	pageSize, windowLimit int,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	pager := pagination.NewPager(pageSize, windowLimit)
	return &Session{
		id:       id,
		catalog:  catalog,
		orch:     orch,
		exp:      exp,
		logger:   logger.With(zap.String("session_id", id)),
		pager:    pager,
		sel:      selection.New(),
		version:  catalog.DefaultVersion(),
		mode:     mode.Components,
		errors:   map[string]string{},
		size:     pager.PageSize(),
		lastUsed: time.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Search validates the form and dispatches a search. Validation failures are
// returned as a *domain.ValidationError and listed per field in the view.
// Transport failures never surface here; they show up as the global error.
func (s *Session) Search(ctx context.Context, in Input) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.originalSelected = 0
	s.from = 0
	s.errors = map[string]string{}
	if s.lastSeq != 0 && s.orch.Snapshot().Resolved == s.lastSeq {
		s.hiddenSeq = s.lastSeq
	}
	s.query = in.Query
	s.version = in.Version
	if in.Mode != "" {
		s.mode = in.Mode
	}

	req, err := s.buildRequest()
	if err != nil {
		return s.view(), err
	}

	s.pager.Sync(s.originalSelected)
	seq, err := s.orch.Dispatch(ctx, req)
	if err != nil {
		s.logger.Warn("Dispatch failed", zap.Error(err))
	}
	s.lastSeq = seq
	s.searchedVersion = req.Dataset().Version()
	return s.view(), nil
}

// buildRequest fills the error map. Callers hold mu.
func (s *Session) buildRequest() (request.Request, error) {
	var first error
	fail := func(field, msg string) {
		if _, ok := s.errors[field]; !ok {
			s.errors[field] = msg
		}
		if first == nil {
			first = domain.NewValidationError(field, msg)
		}
	}

	if strings.TrimSpace(s.query) == "" {
		fail(domain.FieldQuery, MsgQueryRequired)
	}
	ds, err := s.catalog.Resolve(s.version)
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(ve.Field, ve.Message)
	case errors.Is(err, domain.ErrDatasetNotFound):
		fail(domain.FieldVersion, MsgVersionUnknown)
	case err != nil:
		fail(domain.FieldVersion, err.Error())
	}
	if !s.mode.IsValid() {
		fail(domain.FieldMode, MsgModeInvalid)
	}
	if first != nil {
		return request.Request{}, first
	}

	req, err := request.Build(s.query, s.mode, ds)
	if errors.As(err, &ve) {
		fail(ve.Field, ve.Message)
		return request.Request{}, err
	}
	if err != nil {
		return request.Request{}, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

// View returns the current screen state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.view()
}

// Wait blocks until the last dispatched search resolves or is superseded.
func (s *Session) Wait(ctx context.Context) (View, error) {
	s.mu.Lock()
	seq := s.lastSeq
	s.mu.Unlock()

	if seq != 0 {
		if _, err := s.orch.Wait(ctx, seq); err != nil && !errors.Is(err, domain.ErrStaleResponse) {
			return s.View(), fmt.Errorf("wait for search: %w", err)
		}
	}
	return s.View(), nil
}

// Paginate applies a navigation action.
func (s *Session) Paginate(action string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.syncPager()

	var ev pagination.Event
	switch action {
	case ActionFirst:
		ev = s.pager.FirstPage()
	case ActionPrevious:
		ev = s.pager.Previous()
	case ActionNext:
		ev = s.pager.Next()
	case ActionLast:
		ev = s.pager.LastPage()
	default:
		return s.view(), domain.NewValidationError(domain.FieldAction, fmt.Sprintf("unknown page action %q", action))
	}
	s.apply(ev)
	return s.view(), nil
}

// SetPage jumps to page i (0-based), clamped to the available pages.
func (s *Session) SetPage(i int) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.syncPager()
	s.apply(s.pager.SetPage(i))
	return s.view()
}

// apply records a pagination event. Callers hold mu.
func (s *Session) apply(ev pagination.Event) {
	s.originalSelected = ev.Selected
	s.from = ev.From
	s.size = ev.Size
}

// Toggle flips the selection of an item of the current results. An item from
// an earlier search can still be deselected.
func (s *Session) Toggle(identity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if it, ok := s.find(identity); ok {
		return s.sel.Toggle(it), nil
	}
	if s.sel.Remove(identity) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %s", domain.ErrItemNotFound, identity)
}

// SelectAll replaces the selection with every current result.
func (s *Session) SelectAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.sel.SelectAll(s.orch.Snapshot().Results)
	return s.sel.Count()
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.sel.Clear()
}

// SelectItem opens the detail view of a current result.
func (s *Session) SelectItem(identity string) (result.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	it, ok := s.find(identity)
	if !ok {
		return result.Item{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, identity)
	}
	s.selectedItem = &it
	return it, nil
}

// CloseItem closes the detail view.
func (s *Session) CloseItem() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.selectedItem = nil
}

// OpenExport shows the export dialog.
func (s *Session) OpenExport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.exp.Open()
}

// CloseExport hides the export dialog.
func (s *Session) CloseExport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.exp.Close()
}

// ConfirmExport generates the artifact from the selection, in insertion order,
// for the catalog version of the last dispatched search.
func (s *Session) ConfirmExport(ctx context.Context) (artifact.Artifact, error) {
	s.mu.Lock()
	items := s.sel.Items()
	version := s.searchedVersion
	if version == "" {
		version = s.catalog.DefaultVersion()
	}
	s.touch()
	s.mu.Unlock()

	art, err := s.exp.Confirm(ctx, version, items)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("export: %w", err)
	}
	return art, nil
}

// Close releases the session's orchestrator.
func (s *Session) Close() error {
	if err := s.orch.Close(); err != nil {
		return fmt.Errorf("close session %s: %w", s.id, err)
	}
	return nil
}

// LastUsed returns when the session was last touched.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// find looks an identity up in the current results. Callers hold mu.
func (s *Session) find(identity string) (result.Item, bool) {
	for _, it := range s.orch.Snapshot().Results {
		if it.Identity() == identity {
			return it, true
		}
	}
	return result.Item{}, false
}

// syncPager feeds the latest total and selection marker to the pager. Callers hold mu.
func (s *Session) syncPager() {
	s.pager.SetTotal(s.orch.Snapshot().Total)
	s.pager.Sync(s.originalSelected)
}

// view builds the screen state. Callers hold mu.
func (s *Session) view() View {
	snap := s.orch.Snapshot()
	s.pager.SetTotal(snap.Total)
	s.pager.Sync(s.originalSelected)

	errs := maps.Clone(s.errors)
	if snap.Err != nil && s.lastSeq != 0 && s.lastSeq != s.hiddenSeq && snap.Resolved == s.lastSeq {
		errs[domain.FieldGlobal] = snap.Error
	}

	var detail *result.Item
	if s.selectedItem != nil {
		it := *s.selectedItem
		detail = &it
	}

	return View{
		ID:            s.id,
		Query:         s.query,
		Version:       s.version,
		Versions:      s.catalog.Versions(),
		Mode:          s.mode,
		Placeholder:   s.mode.Placeholder(),
		Loading:       snap.Loading,
		SearchMessage: snap.SearchMessage,
		Errors:        errs,
		Total:         snap.Total,
		HasResult:     len(snap.Results) > 0,
		Results:       pagination.Slice(snap.Results, snap.Total, s.from, s.size),
		Pagination:    pagination.Event{Selected: s.originalSelected, From: s.from, Size: s.size},
		Window:        s.pager.Window(),
		SelectedCount: s.sel.Count(),
		Selected:      s.sel.Identities(),
		SelectedItem:  detail,
		ExportOpen:    s.exp.IsOpen(),
		Seq:           s.lastSeq,
	}
}
