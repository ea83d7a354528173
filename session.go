package compsearch

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/usecase/session"
)

// Session is one user's search screen.
type Session struct {
	s      *session.Session
	client *Client
}

// ID returns the session id.
func (s *Session) ID() string { return s.s.ID() }

// Search submits a search. An empty version keeps the session's current one.
// Invalid input returns an ErrValidation error and lists the failing fields in
// View.Errors; worker failures are reported later in View.Errors["global"].
func (s *Session) Search(ctx context.Context, query, version string, m Mode) (View, error) {
	if version == "" {
		version = s.s.View().Version
	}
	v, err := s.s.Search(ctx, session.Input{Query: query, Version: version, Mode: mode.Mode(m)})
	if err != nil {
		return viewFromDomain(&v), fmt.Errorf("compsearch: search: %w", err)
	}
	return viewFromDomain(&v), nil
}

// Wait blocks until the last search resolves.
func (s *Session) Wait(ctx context.Context) (View, error) {
	v, err := s.s.Wait(ctx)
	if err != nil {
		return viewFromDomain(&v), fmt.Errorf("compsearch: %w", err)
	}
	return viewFromDomain(&v), nil
}

// View returns the current state.
func (s *Session) View() View {
	v := s.s.View()
	return viewFromDomain(&v)
}

// Paginate applies FirstPage, PreviousPage, NextPage or LastPage.
func (s *Session) Paginate(action string) (View, error) {
	v, err := s.s.Paginate(action)
	if err != nil {
		return viewFromDomain(&v), fmt.Errorf("compsearch: %w", err)
	}
	return viewFromDomain(&v), nil
}

// SetPage jumps to a 0-based page, clamped to the available pages.
func (s *Session) SetPage(page int) View {
	v := s.s.SetPage(page)
	return viewFromDomain(&v)
}

// Toggle flips the selection of an item and reports whether it is now selected.
func (s *Session) Toggle(identity string) (bool, error) {
	on, err := s.s.Toggle(identity)
	if err != nil {
		return false, fmt.Errorf("compsearch: %w", err)
	}
	return on, nil
}

// SelectAll selects every current result and returns the selection size.
func (s *Session) SelectAll() int { return s.s.SelectAll() }

// ClearSelection empties the selection.
func (s *Session) ClearSelection() { s.s.ClearSelection() }

// Detail opens the detail view of a current result.
func (s *Session) Detail(identity string) (Item, error) {
	it, err := s.s.SelectItem(identity)
	if err != nil {
		return Item{}, fmt.Errorf("compsearch: %w", err)
	}
	return itemFromDomain(&it), nil
}

// CloseDetail closes the detail view.
func (s *Session) CloseDetail() { s.s.CloseItem() }

// Export opens the export dialog and confirms it, returning the build file
// for the selection in selection order.
func (s *Session) Export(ctx context.Context) (Artifact, error) {
	s.s.OpenExport()
	a, err := s.s.ConfirmExport(ctx)
	if err != nil {
		s.s.CloseExport()
		return Artifact{}, fmt.Errorf("compsearch: %w", err)
	}
	return artifactFromDomain(a), nil
}

// Close ends the session.
func (s *Session) Close() error {
	if err := s.client.app.Sessions().Delete(s.s.ID()); err != nil {
		return fmt.Errorf("compsearch: %w", err)
	}
	return nil
}
