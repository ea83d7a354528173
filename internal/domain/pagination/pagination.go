package pagination

// Defaults used when a page size or window limit is not configured.
const (
	DefaultPageSize = 10
	DefaultLimit    = 5
)

// Page is one entry of the page window.
type Page struct {
	Index      int  `json:"index"`
	Label      int  `json:"label,omitempty"` // 1-based, 0 for ellipsis markers
	IsEllipsis bool `json:"is_ellipsis"`
	IsSelected bool `json:"is_selected"`
}

// Window is the bounded set of page links around the selected page.
type Window struct {
	PageCount int    `json:"page_count"`
	Pages     []Page `json:"pages"`
	IsFirst   bool   `json:"is_first"`
	IsLast    bool   `json:"is_last"`
	Offset    int    `json:"offset"`
	PageSize  int    `json:"page_size"`
}

// PageCount returns ceil(total / pageSize), or 0 when there is nothing to page.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ComputeWindow lists the pages within limit of the selected page.
// Pages exactly limit away from the selection are rendered as ellipsis markers,
// except page 0 which always keeps its label.
func ComputeWindow(total, pageSize, selected, limit int) Window {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if selected < 0 {
		selected = 0
	}
	count := PageCount(total, pageSize)

	lo := max(selected-limit, 0)
	hi := min(selected+limit, count-1)

	pages := make([]Page, 0, max(hi-lo+1, 0))
	for i := lo; i <= hi; i++ {
		p := Page{Index: i, IsSelected: i == selected}
		if (i == selected-limit || i == selected+limit) && i != 0 {
			p.IsEllipsis = true
		} else {
			p.Label = i + 1
		}
		pages = append(pages, p)
	}

	return Window{
		PageCount: count,
		Pages:     pages,
		IsFirst:   selected == 0,
		IsLast:    selected == count-1 || count == 0,
		Offset:    selected * pageSize,
		PageSize:  pageSize,
	}
}

// Slice returns items[from:from+size], bounded by both len(items) and total.
func Slice[T any](items []T, total, from, size int) []T {
	limit := min(len(items), max(total, 0))
	if from < 0 {
		from = 0
	}
	if size <= 0 || from >= limit {
		return []T{}
	}
	end := min(from+size, limit)
	return items[from:end]
}
