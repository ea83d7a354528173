package query

import (
	"fmt"
	"strings"
)

// Match evaluates the node against a catalog item's attributes.
//
// A value prefixed with ExactPrefix must equal the attribute exactly; any other
// value matches case-insensitively as a substring. Array attributes match when any
// element matches. An empty comparison value only matches an attribute that is
// present and itself empty.
func (n Node) Match(attrs map[string]any) bool {
	switch n.kind {
	case KindLeaf:
		v, ok := lookup(attrs, []string{n.field})
		if !ok {
			v, ok = Resolve(attrs, n.field)
		}
		return ok && matchValue(v, n.value)
	case KindPath:
		v, ok := Resolve(attrs, n.field)
		return ok && matchValue(v, n.value)
	case KindAnd:
		for _, c := range n.children {
			if !c.Match(attrs) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range n.children {
			if c.Match(attrs) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Resolve walks a dotted path ("profile.tag") through nested attribute maps.
func Resolve(attrs map[string]any, path string) (any, bool) {
	return lookup(attrs, strings.Split(path, "."))
}

func lookup(attrs map[string]any, parts []string) (any, bool) {
	var cur any = attrs
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func matchValue(attr any, want string) bool {
	switch v := attr.(type) {
	case nil:
		return false
	case []any:
		for _, e := range v {
			if matchValue(e, want) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range v {
			if matchString(e, want) {
				return true
			}
		}
		return false
	case string:
		return matchString(v, want)
	default:
		return matchString(fmt.Sprint(v), want)
	}
}

func matchString(got, want string) bool {
	if exact, ok := strings.CutPrefix(want, ExactPrefix); ok {
		return got == exact
	}
	if want == "" {
		return got == ""
	}
	return strings.Contains(strings.ToLower(got), strings.ToLower(want))
}
