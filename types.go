package compsearch

import (
	"maps"

	"github.com/kailas-cloud/compsearch/internal/domain/artifact"
	"github.com/kailas-cloud/compsearch/internal/domain/pagination"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
	"github.com/kailas-cloud/compsearch/internal/usecase/session"
)

// Mode selects what a search looks for.
type Mode string

// Search modes.
const (
	// Components ranks the whole catalog against free text.
	Components Mode = Mode(mode.Components)
	// Instances filters by parent class, optionally narrowed by text after ':'.
	Instances Mode = Mode(mode.Instances)
)

// Page navigation actions for Session.Paginate.
const (
	FirstPage    = session.ActionFirst
	PreviousPage = session.ActionPrevious
	NextPage     = session.ActionNext
	LastPage     = session.ActionLast
)

// Item is one catalog component.
type Item struct {
	Identity string
	Score    float64
	Attrs    map[string]any
}

// String returns a string attribute, or "" when absent.
func (i Item) String(key string) string {
	s, _ := i.Attrs[key].(string)
	return s
}

// PageLink is one entry of the page window. Ellipsis links have Label 0.
type PageLink struct {
	Index    int
	Label    int
	Ellipsis bool
	Selected bool
}

// View is the state of a session's search screen.
type View struct {
	Query       string
	Version     string
	Mode        Mode
	Placeholder string
	Loading     bool
	Message     string
	// Errors maps form fields ("query", "version", "mode", "global") to messages.
	Errors map[string]string
	Total  int
	// Results is the visible page.
	Results   []Item
	Page      int
	PageCount int
	Pages     []PageLink
	IsFirst   bool
	IsLast    bool
	Selected  []string
	Detail    *Item
	Exporting bool
}

// Artifact is a generated export file.
type Artifact struct {
	Name        string
	ContentType string
	Body        []byte
}

func itemFromDomain(it *result.Item) Item {
	return Item{Identity: it.Identity(), Score: it.Score(), Attrs: maps.Clone(it.Attrs())}
}

func pagesFromDomain(ps []pagination.Page) []PageLink {
	out := make([]PageLink, len(ps))
	for i, p := range ps {
		out[i] = PageLink{Index: p.Index, Label: p.Label, Ellipsis: p.IsEllipsis, Selected: p.IsSelected}
	}
	return out
}

func viewFromDomain(v *session.View) View {
	items := make([]Item, len(v.Results))
	for i := range v.Results {
		items[i] = itemFromDomain(&v.Results[i])
	}
	out := View{
		Query:       v.Query,
		Version:     v.Version,
		Mode:        Mode(v.Mode),
		Placeholder: v.Placeholder,
		Loading:     v.Loading,
		Message:     v.SearchMessage,
		Errors:      maps.Clone(v.Errors),
		Total:       v.Total,
		Results:     items,
		Page:        v.Pagination.Selected,
		PageCount:   v.Window.PageCount,
		Pages:       pagesFromDomain(v.Window.Pages),
		IsFirst:     v.Window.IsFirst,
		IsLast:      v.Window.IsLast,
		Selected:    append([]string(nil), v.Selected...),
		Exporting:   v.ExportOpen,
	}
	if v.SelectedItem != nil {
		d := itemFromDomain(v.SelectedItem)
		out.Detail = &d
	}
	return out
}

func artifactFromDomain(a artifact.Artifact) Artifact {
	return Artifact{Name: a.Name, ContentType: a.ContentType, Body: a.Body}
}
