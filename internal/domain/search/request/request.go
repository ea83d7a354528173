package request

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/compsearch/internal/domain"
	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/query"
)

// MaxQueryLength is the maximum allowed raw query length.
const MaxQueryLength = 4096

// ParentField is the catalog field holding an item's container class hierarchy.
const ParentField = "parents"

// TagPath is the attribute path of an item's comma-separated profile tags.
const TagPath = "profile.tag"

// SubFields are the item fields tested against the text after ':' in instances mode.
var SubFields = []string{"fullClassName", "className", "packageName", "alias", "componentType"}

// Request is a validated, immutable search request.
type Request struct {
	text    string
	filter  query.Node
	dataset dataset.Dataset
	mode    mode.Mode
}

// Build turns raw user input into a Request for the given mode and dataset.
//
// In components mode the trimmed input is passed through as free text. In instances
// mode the input is split once on ':' into a required parent filter and an optional
// sub-field filter.
func Build(raw string, m mode.Mode, ds dataset.Dataset) (Request, error) {
	q := strings.TrimSpace(raw)
	if q == "" {
		return Request{}, domain.NewValidationError(domain.FieldQuery, "Query required.")
	}
	if len(q) > MaxQueryLength {
		return Request{}, domain.NewValidationError(domain.FieldQuery,
			fmt.Sprintf("Query too long (max %d chars).", MaxQueryLength))
	}
	if ds.Version() == "" {
		return Request{}, domain.NewValidationError(domain.FieldVersion, "Version required.")
	}

	switch m {
	case mode.Components:
		return Request{text: q, dataset: ds, mode: m}, nil
	case mode.Instances:
		node, err := InstancesFilter(q)
		if err != nil {
			return Request{}, err
		}
		return Request{filter: node, dataset: ds, mode: m}, nil
	default:
		return Request{}, domain.NewValidationError(domain.FieldMode, fmt.Sprintf("invalid search mode: %q", m))
	}
}

// InstancesFilter builds the instances-mode filter for "Parent" or "Parent:sub".
func InstancesFilter(q string) (query.Node, error) {
	head, tail, hasTail := strings.Cut(q, ":")
	head = strings.TrimSpace(head)
	if head == "" {
		return query.Node{}, domain.NewEmptyParentFilterError()
	}

	parent, err := query.NewLeaf(ParentField, query.ExactPrefix+head)
	if err != nil {
		return query.Node{}, fmt.Errorf("parent filter: %w", err)
	}

	tail = strings.TrimSpace(tail)
	if !hasTail || tail == "" {
		return query.NewAnd(parent)
	}

	leaves := make([]query.Node, 0, len(SubFields)+1)
	for _, f := range SubFields {
		leaf, err := query.NewLeaf(f, tail)
		if err != nil {
			return query.Node{}, fmt.Errorf("sub filter: %w", err)
		}
		leaves = append(leaves, leaf)
	}
	tag, err := query.NewPathLeaf(TagPath, tail)
	if err != nil {
		return query.Node{}, fmt.Errorf("sub filter: %w", err)
	}
	leaves = append(leaves, tag)

	sub, err := query.NewOr(leaves...)
	if err != nil {
		return query.Node{}, fmt.Errorf("sub filter: %w", err)
	}
	return query.NewAnd(parent, sub)
}

// Text returns the free-text query (components mode).
func (r *Request) Text() string { return r.text }

// Filter returns the structured filter (instances mode).
func (r *Request) Filter() query.Node { return r.filter }

// Dataset returns the dataset the request targets.
func (r *Request) Dataset() dataset.Dataset { return r.dataset }

// Mode returns the search mode.
func (r *Request) Mode() mode.Mode { return r.mode }

// Message is the worker wire message: {q, v, type, jsonFileURL}.
type Message struct {
	Q           json.RawMessage `json:"q"`
	V           string          `json:"v"`
	Type        mode.Mode       `json:"type"`
	JSONFileURL string          `json:"jsonFileURL"`
}

// Message encodes the request as the worker wire message.
func (r *Request) Message() (Message, error) {
	var (
		q   []byte
		err error
	)
	if r.mode == mode.Instances {
		q, err = json.Marshal(r.filter)
	} else {
		q, err = json.Marshal(r.text)
	}
	if err != nil {
		return Message{}, fmt.Errorf("encode query: %w", err)
	}
	return Message{
		Q:           q,
		V:           r.dataset.Version(),
		Type:        r.mode,
		JSONFileURL: r.dataset.URL(),
	}, nil
}
