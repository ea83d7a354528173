package pagination

// Event is emitted on every navigation action: {selected, from, size}.
type Event struct {
	Selected int `json:"selected"`
	From     int `json:"from"`
	Size     int `json:"size"`
}

// Pager holds the selected page of a result list. Not safe for concurrent use;
// the owning list view serializes access.
type Pager struct {
	pageSize int
	limit    int
	total    int
	selected int
}

// NewPager creates a pager. Non-positive arguments fall back to the defaults.
func NewPager(pageSize, limit int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Pager{pageSize: pageSize, limit: limit}
}

// PageSize returns the number of items per page.
func (p *Pager) PageSize() int { return p.pageSize }

// Limit returns the window half-width.
func (p *Pager) Limit() int { return p.limit }

// Selected returns the selected page index.
func (p *Pager) Selected() int { return p.selected }

// Total returns the result count the pager is paging over.
func (p *Pager) Total() int { return p.total }

// SetTotal updates the result count. The selection is kept.
func (p *Pager) SetTotal(total int) {
	p.total = max(total, 0)
}

// Sync compares the owner's last-known selection with the pager's own and resets
// to the first page when they differ, which happens after a fresh search.
// It reports whether a reset occurred.
func (p *Pager) Sync(originalSelected int) bool {
	if originalSelected != p.selected {
		p.selected = 0
		return true
	}
	return false
}

// Window computes the page window for the current state.
func (p *Pager) Window() Window {
	return ComputeWindow(p.total, p.pageSize, p.selected, p.limit)
}

// FirstPage selects page 0.
func (p *Pager) FirstPage() Event {
	p.selected = 0
	return p.event()
}

// Previous selects the previous page, flooring at 0.
func (p *Pager) Previous() Event {
	p.selected = max(0, p.selected-1)
	return p.event()
}

// Next selects the following page, clamped to the last page.
func (p *Pager) Next() Event {
	p.selected = min(p.selected+1, p.lastIndex())
	return p.event()
}

// LastPage selects the last page (page 0 when there are no results).
func (p *Pager) LastPage() Event {
	p.selected = p.lastIndex()
	return p.event()
}

// SetPage selects page i, clamped to the valid range.
func (p *Pager) SetPage(i int) Event {
	p.selected = min(max(i, 0), p.lastIndex())
	return p.event()
}

func (p *Pager) lastIndex() int {
	return max(PageCount(p.total, p.pageSize)-1, 0)
}

func (p *Pager) event() Event {
	return Event{Selected: p.selected, From: p.selected * p.pageSize, Size: p.pageSize}
}
