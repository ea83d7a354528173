package selection

import (
	"container/list"

	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// Set is an insertion-ordered set of result items keyed by identity.
// Not safe for concurrent use.
type Set struct {
	order *list.List
	index map[string]*list.Element
}

// New creates an empty selection.
func New() *Set {
	return &Set{order: list.New(), index: make(map[string]*list.Element)}
}

// Toggle removes the item if selected, otherwise appends it.
// It reports whether the item is selected afterwards.
func (s *Set) Toggle(item result.Item) bool {
	id := item.Identity()
	if s.Remove(id) {
		return false
	}
	s.index[id] = s.order.PushBack(item)
	return true
}

// Remove drops an identity. It reports whether it was selected.
func (s *Set) Remove(identity string) bool {
	e, ok := s.index[identity]
	if !ok {
		return false
	}
	s.order.Remove(e)
	delete(s.index, identity)
	return true
}

// IsSelected reports membership by identity.
func (s *Set) IsSelected(item result.Item) bool {
	return s.Has(item.Identity())
}

// Has reports whether an identity is selected.
func (s *Set) Has(identity string) bool {
	_, ok := s.index[identity]
	return ok
}

// SelectAll replaces the selection with every item of current, in order.
// Calling it twice yields the same selection.
func (s *Set) SelectAll(current []result.Item) {
	s.Clear()
	for _, it := range current {
		s.Toggle(it)
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.order.Init()
	clear(s.index)
}

// Count returns the number of selected items.
func (s *Set) Count() int { return s.order.Len() }

// Items returns the selected items in insertion order.
func (s *Set) Items() []result.Item {
	out := make([]result.Item, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(result.Item))
	}
	return out
}

// Identities returns the selected identities in insertion order.
func (s *Set) Identities() []string {
	out := make([]string, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		it := e.Value.(result.Item)
		out = append(out, it.Identity())
	}
	return out
}
