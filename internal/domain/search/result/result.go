package result

import (
	"encoding/json"
	"fmt"
)

// IdentityKeys are the item attributes tried, in order, to derive an identity.
var IdentityKeys = []string{"fullClassName", "artifactId"}

// Item is a single catalog hit. Attributes are passed through untouched.
type Item struct {
	identity string
	score    float64
	attrs    map[string]any
}

// New creates a result item.
func New(identity string, score float64, attrs map[string]any) Item {
	return Item{identity: identity, score: score, attrs: attrs}
}

// FromAttrs creates an item whose identity is derived from its attributes.
// position is used when no identity attribute is present.
func FromAttrs(attrs map[string]any, score float64, position int) Item {
	return New(DeriveIdentity(attrs, position), score, attrs)
}

// DeriveIdentity returns the first non-empty identity attribute, or a positional id.
func DeriveIdentity(attrs map[string]any, position int) string {
	for _, k := range IdentityKeys {
		if s, ok := attrs[k].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("#%d", position)
}

// Identity returns the stable key used for selection tracking.
func (i *Item) Identity() string { return i.identity }

// Score returns the relevance score assigned by the index worker.
func (i *Item) Score() float64 { return i.score }

// Attrs returns the item's domain attributes.
func (i *Item) Attrs() map[string]any { return i.attrs }

// String returns a string attribute, or "" when absent or not a string.
func (i *Item) String(key string) string {
	s, _ := i.attrs[key].(string)
	return s
}

// wireItem is the JSON shape of an item: {"identity", "score", "item": {...}}.
type wireItem struct {
	Identity string         `json:"identity"`
	Score    float64        `json:"score,omitempty"`
	Item     map[string]any `json:"item"`
}

// MarshalJSON encodes the item with its attributes under "item".
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireItem{Identity: i.identity, Score: i.score, Item: i.attrs})
}

// UnmarshalJSON decodes an item; a missing identity is derived from the attributes.
func (i *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	if w.Identity == "" {
		w.Identity = DeriveIdentity(w.Item, 0)
	}
	*i = Item{identity: w.Identity, score: w.Score, attrs: w.Item}
	return nil
}

// Response is the worker's answer: the full match set plus its total count.
type Response struct {
	TotalCount int    `json:"totalCount"`
	Items      []Item `json:"components"`
}

// Empty returns a response with no matches.
func Empty() Response {
	return Response{TotalCount: 0, Items: []Item{}}
}

// Envelope is the worker success message: {"data":{"results":{...}}}.
type Envelope struct {
	Data *EnvelopeData `json:"data,omitempty"`
}

// EnvelopeData wraps the results of a success message.
type EnvelopeData struct {
	Results *Response `json:"results,omitempty"`
}

// Wrap builds a success envelope around a response.
func Wrap(r Response) Envelope {
	return Envelope{Data: &EnvelopeData{Results: &r}}
}

// Response unwraps the envelope. A missing data or results payload yields an empty response.
func (e Envelope) Response() Response {
	if e.Data == nil || e.Data.Results == nil {
		return Empty()
	}
	r := *e.Data.Results
	if r.Items == nil {
		r.Items = []Item{}
	}
	if r.TotalCount < 0 {
		r.TotalCount = 0
	}
	return r
}

// Reply is the worker's answer to one call, echoing the call's sequence number.
// Exactly one of Envelope and Err is meaningful.
type Reply struct {
	Seq      uint64
	Envelope Envelope
	Err      error
}
