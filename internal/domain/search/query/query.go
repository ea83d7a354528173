package query

import (
	"encoding/json"
	"fmt"
)

// ExactPrefix marks a leaf value as an exact-match comparison.
const ExactPrefix = "="

// MaxChildren is the maximum number of children of a compound node.
const MaxChildren = 32

// Kind discriminates query nodes.
type Kind int

// Node kinds.
const (
	KindLeaf Kind = iota
	KindPath
	KindAnd
	KindOr
)

// String returns the operator name of the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf, KindPath:
		return "eq"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a boolean filter expression: a field leaf, a path leaf, or an and/or compound.
type Node struct {
	kind     Kind
	field    string
	value    string
	children []Node
}

// NewLeaf creates an equality leaf on a top-level field.
// Empty values are kept and compared literally.
func NewLeaf(field, value string) (Node, error) {
	if field == "" {
		return Node{}, fmt.Errorf("leaf field is required")
	}
	return Node{kind: KindLeaf, field: field, value: value}, nil
}

// NewPathLeaf creates an equality leaf on a dotted attribute path (e.g. "profile.tag").
func NewPathLeaf(path, value string) (Node, error) {
	if path == "" {
		return Node{}, fmt.Errorf("leaf path is required")
	}
	return Node{kind: KindPath, field: path, value: value}, nil
}

// NewAnd creates a conjunction. At least one child is required.
func NewAnd(children ...Node) (Node, error) {
	return newCompound(KindAnd, children)
}

// NewOr creates a disjunction. At least one child is required.
func NewOr(children ...Node) (Node, error) {
	return newCompound(KindOr, children)
}

func newCompound(k Kind, children []Node) (Node, error) {
	if len(children) == 0 {
		return Node{}, fmt.Errorf("%s requires at least one child", k)
	}
	if len(children) > MaxChildren {
		return Node{}, fmt.Errorf("too many %s children (max %d)", k, MaxChildren)
	}
	out := make([]Node, len(children))
	copy(out, children)
	return Node{kind: k, children: out}, nil
}

// Kind returns the node kind.
func (n Node) Kind() Kind { return n.kind }

// Op returns the node operator: "eq", "and" or "or".
func (n Node) Op() string { return n.kind.String() }

// Field returns the field name of a leaf or the dotted path of a path leaf.
func (n Node) Field() string { return n.field }

// Value returns the comparison value of a leaf.
func (n Node) Value() string { return n.value }

// Children returns a copy of the compound's children.
func (n Node) Children() []Node {
	out := make([]Node, len(n.children))
	copy(out, n.children)
	return out
}

// IsCompound reports whether the node is an and/or node.
func (n Node) IsCompound() bool { return n.kind == KindAnd || n.kind == KindOr }

// IsZero reports whether the node was never constructed.
func (n Node) IsZero() bool {
	return n.kind == KindLeaf && n.field == "" && n.children == nil
}

// MarshalJSON encodes the node in the index worker's filter syntax:
// {"$and":[...]}, {"$or":[...]}, {"field":"value"} and {"$path":"a.b","$val":"v"}.
func (n Node) MarshalJSON() ([]byte, error) {
	switch n.kind {
	case KindLeaf:
		return json.Marshal(map[string]string{n.field: n.value})
	case KindPath:
		return json.Marshal(struct {
			Path string `json:"$path"`
			Val  string `json:"$val"`
		}{n.field, n.value})
	case KindAnd:
		return json.Marshal(map[string][]Node{"$and": n.children})
	case KindOr:
		return json.Marshal(map[string][]Node{"$or": n.children})
	default:
		return nil, fmt.Errorf("unknown node kind %d", int(n.kind))
	}
}

// UnmarshalJSON decodes the worker filter syntax produced by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode node: %w", err)
	}

	if p, ok := raw["$path"]; ok {
		var path, val string
		if err := json.Unmarshal(p, &path); err != nil {
			return fmt.Errorf("decode $path: %w", err)
		}
		if v, ok := raw["$val"]; ok {
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("decode $val: %w", err)
			}
		}
		leaf, err := NewPathLeaf(path, val)
		if err != nil {
			return err
		}
		*n = leaf
		return nil
	}

	if len(raw) != 1 {
		return fmt.Errorf("node must have exactly one key, got %d", len(raw))
	}
	for key, body := range raw {
		switch key {
		case "$and", "$or":
			var children []Node
			if err := json.Unmarshal(body, &children); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			var (
				c   Node
				err error
			)
			if key == "$and" {
				c, err = NewAnd(children...)
			} else {
				c, err = NewOr(children...)
			}
			if err != nil {
				return err
			}
			*n = c
		default:
			var val string
			if err := json.Unmarshal(body, &val); err != nil {
				return fmt.Errorf("decode leaf %q: %w", key, err)
			}
			leaf, err := NewLeaf(key, val)
			if err != nil {
				return err
			}
			*n = leaf
		}
	}
	return nil
}
