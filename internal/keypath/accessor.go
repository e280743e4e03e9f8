package keypath

import (
	"errors"
	"fmt"
)

// ErrPathConflict is returned by Set when an intermediate segment already
// holds a non-mapping value.
var ErrPathConflict = errors.New("key path conflicts with an existing value")

// Get returns the value stored at p inside root.
func Get(root map[string]any, p Path) (any, bool) {
	if len(p) == 0 || root == nil {
		return nil, false
	}
	node := root
	for _, seg := range p[:len(p)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}
	v, ok := node[p[len(p)-1]]
	return v, ok
}

// Set stores v at p, creating intermediate mappings as needed. It refuses to
// replace a non-mapping value with a mapping, or a mapping with a leaf.
// Set writes into mappings already present under root; pass values through
// Clone when root must not alias them.
func Set(root map[string]any, p Path, v any) error {
	if err := p.Validate(); err != nil {
		return err
	}
	node := root
	for i, seg := range p[:len(p)-1] {
		existing, present := node[seg]
		if !present {
			child := make(map[string]any)
			node[seg] = child
			node = child
			continue
		}
		child, ok := existing.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s holds %T", ErrPathConflict, p[:i+1].String(), existing)
		}
		node = child
	}
	last := p[len(p)-1]
	if existing, ok := node[last].(map[string]any); ok && len(existing) > 0 {
		return fmt.Errorf("%w: %s has nested values", ErrPathConflict, p.String())
	}
	node[last] = v
	return nil
}

// Clone deep-copies the mappings and lists inside v. Other values are
// returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = Clone(child)
		}
		return out
	default:
		return v
	}
}
