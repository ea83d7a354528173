package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/compsearch/internal/domain"
)

// VersionPlaceholder is replaced by the lower-cased version in URL templates.
const VersionPlaceholder = "{version}"

// DefaultURLTemplate is the dataset location used when none is configured.
const DefaultURLTemplate = "data/interlok-component-{version}.json"

// Dataset identifies one versioned catalog file.
type Dataset struct {
	version string
	url     string
}

// New creates a Dataset. Both version and url are required.
func New(version, url string) (Dataset, error) {
	if version == "" {
		return Dataset{}, domain.NewValidationError(domain.FieldVersion, "Version required.")
	}
	if url == "" {
		return Dataset{}, fmt.Errorf("dataset url is required")
	}
	return Dataset{version: version, url: url}, nil
}

// Version returns the catalog version identifier (e.g. "4.1.0-RELEASE").
func (d Dataset) Version() string { return d.version }

// URL returns the dataset location (file path or http(s) URL).
func (d Dataset) URL() string { return d.url }

// Catalog lists the known catalog versions and how to locate each dataset.
type Catalog struct {
	versions    []string
	urlTemplate string
}

// NewCatalog creates a Catalog. The first version is the default.
func NewCatalog(versions []string, urlTemplate string) (Catalog, error) {
	if len(versions) == 0 {
		return Catalog{}, fmt.Errorf("at least one catalog version is required")
	}
	for _, v := range versions {
		if strings.TrimSpace(v) == "" {
			return Catalog{}, fmt.Errorf("catalog version must not be blank")
		}
	}
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if !strings.Contains(urlTemplate, VersionPlaceholder) {
		return Catalog{}, fmt.Errorf("url template %q must contain %s", urlTemplate, VersionPlaceholder)
	}
	return Catalog{versions: slices.Clone(versions), urlTemplate: urlTemplate}, nil
}

// Versions returns the known versions, newest first.
func (c Catalog) Versions() []string { return slices.Clone(c.versions) }

// DefaultVersion returns the version preselected for new sessions.
func (c Catalog) DefaultVersion() string {
	if len(c.versions) == 0 {
		return ""
	}
	return c.versions[0]
}

// Has reports whether the version is known.
func (c Catalog) Has(version string) bool {
	return slices.Contains(c.versions, version)
}

// URLFor derives the dataset location for a version. The result is not checked for existence.
func (c Catalog) URLFor(version string) string {
	return strings.ReplaceAll(c.urlTemplate, VersionPlaceholder, strings.ToLower(version))
}

// Resolve returns the Dataset for a known version.
func (c Catalog) Resolve(version string) (Dataset, error) {
	if version == "" {
		return Dataset{}, domain.NewValidationError(domain.FieldVersion, "Version required.")
	}
	if !c.Has(version) {
		return Dataset{}, fmt.Errorf("%w: unknown version %q", domain.ErrDatasetNotFound, version)
	}
	return New(version, c.URLFor(version))
}
