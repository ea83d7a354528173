// Package gradle renders a build.gradle that pulls in the selected components.
package gradle

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/kailas-cloud/compsearch/internal/domain/artifact"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// Artifact defaults.
const (
	FileName    = "build.gradle"
	ContentType = "text/x-groovy; charset=utf-8"

	DefaultGroup = "com.adaptris"
)

// Options configure the generated build file.
type Options struct {
	// Group is used for items without a groupId.
	Group string
	// Version pins the interlokVersion property. When empty the catalog
	// version passed to Generate is used.
	Version string
	// Repositories are extra maven repository URLs.
	Repositories []string
}

// Dependency is one implementation line.
type Dependency struct {
	Group    string
	Artifact string
	// Version is empty when the item carries none; the template then uses $interlokVersion.
	Version string
}

// Skipped is a selected item that could not be turned into a dependency.
type Skipped struct {
	Identity string
}

type model struct {
	Version      string
	Repositories []string
	Dependencies []Dependency
	Skipped      []Skipped
}

var buildTemplate = template.Must(template.New(FileName).Parse(`plugins {
    id 'java'
}

ext {
    interlokVersion = '{{ .Version }}'
}

repositories {
    mavenCentral()
{{- range .Repositories }}
    maven { url '{{ . }}' }
{{- end }}
}

dependencies {
{{- range .Dependencies }}
{{- if .Version }}
    implementation "{{ .Group }}:{{ .Artifact }}:{{ .Version }}"
{{- else }}
    implementation "{{ .Group }}:{{ .Artifact }}:$interlokVersion"
{{- end }}
{{- end }}
{{- range .Skipped }}
    // {{ .Identity }}: no artifactId
{{- end }}
}
`))

// Generator renders build.gradle files.
type Generator struct {
	opts Options
}

// New creates a generator.
func New(opts Options) *Generator {
	if opts.Group == "" {
		opts.Group = DefaultGroup
	}
	return &Generator{opts: opts}
}

// Generate writes one implementation line per item, in selection order.
// Items without their own version resolve to interlokVersion.
func (g *Generator) Generate(_ context.Context, version string, items []result.Item) (artifact.Artifact, error) {
	if g.opts.Version != "" {
		version = g.opts.Version
	}
	if version == "" {
		return artifact.Artifact{}, fmt.Errorf("render %s: interlok version required", FileName)
	}
	m := model{
		Version:      version,
		Repositories: g.opts.Repositories,
		Dependencies: make([]Dependency, 0, len(items)),
	}
	for i := range items {
		it := &items[i]
		dep, ok := g.dependency(it)
		if !ok {
			m.Skipped = append(m.Skipped, Skipped{Identity: it.Identity()})
			continue
		}
		m.Dependencies = append(m.Dependencies, dep)
	}

	var buf bytes.Buffer
	if err := buildTemplate.Execute(&buf, m); err != nil {
		return artifact.Artifact{}, fmt.Errorf("render %s: %w", FileName, err)
	}
	return artifact.Artifact{Name: FileName, ContentType: ContentType, Body: buf.Bytes()}, nil
}

func (g *Generator) dependency(it *result.Item) (Dependency, bool) {
	art := it.String("artifactId")
	if art == "" {
		return Dependency{}, false
	}
	group := it.String("groupId")
	if group == "" {
		group = g.opts.Group
	}
	return Dependency{Group: group, Artifact: art, Version: it.String("version")}, true
}
