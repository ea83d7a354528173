package compsearch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/compsearch"
)

const catalogJSON = `{"components":[
 {"fullClassName":"com.adaptris.core.jms.JmsConsumer","alias":"jms-consumer","artifactId":"interlok-core",
  "parents":["com.adaptris.core.StandardWorkflow"],"profile":{"tag":"jms,consumer"}},
 {"fullClassName":"com.adaptris.core.kafka.KafkaConsumer","alias":"kafka-consumer","artifactId":"interlok-kafka",
  "parents":["com.adaptris.core.StandardWorkflow"],"profile":{"tag":"kafka"}},
 {"fullClassName":"com.adaptris.core.services.LogMessageService","alias":"log-message-service",
  "artifactId":"interlok-core","parents":["com.adaptris.core.ServiceList"]}
]}`

func newClient(t *testing.T, opts ...compsearch.Option) *compsearch.Client {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "interlok-component-4.1.0-release.json"), []byte(catalogJSON), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	opts = append([]compsearch.Option{
		compsearch.WithVersions("4.1.0-RELEASE", "4.0.0-RELEASE"),
		compsearch.WithBaseDir(dir),
		compsearch.WithURLTemplate("interlok-component-{version}.json"),
		compsearch.WithPagination(2, 5),
	}, opts...)
	c, err := compsearch.New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func search(t *testing.T, s *compsearch.Session, query, version string, m compsearch.Mode) compsearch.View {
	t.Helper()
	ctx := context.Background()
	if _, err := s.Search(ctx, query, version, m); err != nil {
		t.Fatalf("Search: %v", err)
	}
	v, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return v
}

func TestNew_RequiresVersions(t *testing.T) {
	if _, err := compsearch.New(); err == nil {
		t.Fatal("expected error without versions")
	}
}

func TestNew_InvalidTemplate(t *testing.T) {
	_, err := compsearch.New(
		compsearch.WithVersions("4.1.0-RELEASE"),
		compsearch.WithURLTemplate("data/catalog.json"),
	)
	if err == nil || !strings.Contains(err.Error(), "{version}") {
		t.Fatalf("err = %v", err)
	}
}

func TestClient_Versions(t *testing.T) {
	c := newClient(t)
	got := c.Versions()
	if len(got) != 2 || got[0] != "4.1.0-RELEASE" {
		t.Errorf("Versions = %v", got)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSession_InstancesSearch(t *testing.T) {
	c := newClient(t)
	s := c.NewSession()

	v := search(t, s, "com.adaptris.core.StandardWorkflow:consumer", "", compsearch.Instances)
	if v.Total != 2 || len(v.Results) != 2 {
		t.Fatalf("total=%d results=%d errors=%v", v.Total, len(v.Results), v.Errors)
	}
	if v.Version != "4.1.0-RELEASE" {
		t.Errorf("Version = %q", v.Version)
	}
	if v.Placeholder != "ClassName:Query" {
		t.Errorf("Placeholder = %q", v.Placeholder)
	}
	for _, it := range v.Results {
		if !strings.Contains(it.String("fullClassName"), "Consumer") {
			t.Errorf("unexpected result %+v", it)
		}
	}
}

func TestSession_ValidationError(t *testing.T) {
	c := newClient(t)
	s := c.NewSession()

	v, err := s.Search(context.Background(), "", "9.9.9", compsearch.Components)
	if !errors.Is(err, compsearch.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if v.Errors["query"] == "" || v.Errors["version"] == "" {
		t.Errorf("Errors = %v", v.Errors)
	}
	if v.Loading {
		t.Error("invalid search should not start loading")
	}
}

func TestSession_MissingDatasetReportsGlobalError(t *testing.T) {
	c := newClient(t)
	s := c.NewSession()

	v := search(t, s, "jms", "4.0.0-RELEASE", compsearch.Components)
	if v.Errors["global"] == "" {
		t.Fatalf("expected global error, got %v", v.Errors)
	}
	if v.Total != 0 || len(v.Results) != 0 {
		t.Errorf("total=%d results=%d", v.Total, len(v.Results))
	}
}

func TestSession_PaginateAndSelect(t *testing.T) {
	c := newClient(t)
	s := c.NewSession()

	v := search(t, s, "com", "", compsearch.Components)
	if v.Total != 3 || v.PageCount != 2 || len(v.Results) != 2 {
		t.Fatalf("total=%d pages=%d results=%d", v.Total, v.PageCount, len(v.Results))
	}
	if !v.IsFirst {
		t.Error("IsFirst = false on first page")
	}

	v, err := s.Paginate(compsearch.NextPage)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if v.Page != 1 || len(v.Results) != 1 || !v.IsLast {
		t.Fatalf("page=%d results=%d last=%v", v.Page, len(v.Results), v.IsLast)
	}
	if _, err := s.Paginate("sideways"); !errors.Is(err, compsearch.ErrValidation) {
		t.Errorf("bad action err = %v", err)
	}

	if n := s.SelectAll(); n != 3 {
		t.Fatalf("SelectAll = %d", n)
	}
	id := v.Results[0].Identity
	on, err := s.Toggle(id)
	if err != nil || on {
		t.Fatalf("Toggle = %v, %v", on, err)
	}
	if got := s.View().Selected; len(got) != 2 {
		t.Errorf("Selected = %v", got)
	}

	d, err := s.Detail(id)
	if err != nil || d.Identity != id {
		t.Fatalf("Detail = %+v, %v", d, err)
	}
	if s.View().Detail == nil {
		t.Error("View.Detail = nil after Detail")
	}
	s.CloseDetail()
	if s.View().Detail != nil {
		t.Error("View.Detail set after CloseDetail")
	}

	if _, err := s.Toggle("no-such-item"); !errors.Is(err, compsearch.ErrItemNotFound) {
		t.Errorf("Toggle unknown err = %v", err)
	}
}

func TestSession_Export(t *testing.T) {
	c := newClient(t, compsearch.WithExport("com.adaptris", "4.1.0-RELEASE"))
	s := c.NewSession()

	if _, err := s.Export(context.Background()); !errors.Is(err, compsearch.ErrNothingSelected) {
		t.Fatalf("empty export err = %v", err)
	}

	search(t, s, "kafka", "", compsearch.Components)
	s.SelectAll()
	art, err := s.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if art.Name != "build.gradle" {
		t.Errorf("Name = %q", art.Name)
	}
	if !strings.Contains(string(art.Body), "interlok-kafka") {
		t.Errorf("body:\n%s", art.Body)
	}
	if s.View().Exporting {
		t.Error("export dialog still open after confirm")
	}
}

func TestClient_SessionLookup(t *testing.T) {
	c := newClient(t)
	s := c.NewSession()

	got, err := c.Session(s.ID())
	if err != nil || got.ID() != s.ID() {
		t.Fatalf("Session = %v, %v", got, err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.Session(s.ID()); !errors.Is(err, compsearch.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}
