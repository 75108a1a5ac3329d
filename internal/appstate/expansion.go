package appstate

import (
	"sort"
	"strings"
)

// Expansion is the tree's expand/select state. Values are treated as immutable:
// every transition returns a new Expansion and leaves its input untouched.
type Expansion struct {
	Expanded map[string]bool
	Selected *string
}

func NewExpansion(selected *string, expanded ...string) Expansion {
	e := Expansion{Expanded: make(map[string]bool, len(expanded))}
	for _, id := range expanded {
		if id = strings.TrimSpace(id); id != "" {
			e.Expanded[id] = true
		}
	}
	if selected != nil {
		sel := *selected
		e.Selected = &sel
	}
	return e
}

func (e Expansion) IsExpanded(id string) bool { return e.Expanded[id] }

// IDs returns the expanded ids sorted.
func (e Expansion) IDs() []string {
	out := make([]string, 0, len(e.Expanded))
	for id := range e.Expanded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (e Expansion) clone() Expansion {
	out := Expansion{Expanded: make(map[string]bool, len(e.Expanded)+1)}
	for id := range e.Expanded {
		out.Expanded[id] = true
	}
	if e.Selected != nil {
		sel := *e.Selected
		out.Selected = &sel
	}
	return out
}

// Expand adds id to the expanded set and selects it.
func Expand(e Expansion, id string) Expansion {
	out := e.clone()
	out.Expanded[id] = true
	sel := id
	out.Selected = &sel
	return out
}

// Collapse removes id from the expanded set. Selection is unchanged.
func Collapse(e Expansion, id string) Expansion {
	out := e.clone()
	delete(out.Expanded, id)
	return out
}

// Toggle collapses an expanded id and expands (and selects) a collapsed one.
func Toggle(e Expansion, id string) Expansion {
	if e.Expanded[id] {
		return Collapse(e, id)
	}
	return Expand(e, id)
}

// ChildLookup reports whether a node is currently loaded and whether it has children.
type ChildLookup func(id string) (hasChildren bool, known bool)

// Reconciler auto-expands a newly selected node that has children. It acts once
// per selection change: the selection is compared with the previously consumed one,
// so observing the same selection again never mutates the expansion.
type Reconciler struct {
	prev *string
}

// Observe applies the auto-expand rule to e. A selection that is not yet loaded is
// left pending and reconsidered on the next observation rather than consumed, so a
// node that arrives with a later sync still auto-expands.
func (r *Reconciler) Observe(e Expansion, lookup ChildLookup) (Expansion, bool) {
	sel := e.Selected
	if sel == nil {
		r.prev = nil
		return e, false
	}
	if r.prev != nil && *r.prev == *sel {
		return e, false
	}
	if e.Expanded[*sel] {
		r.consume(*sel)
		return e, false
	}
	hasChildren, known := lookup(*sel)
	if !known {
		return e, false
	}
	r.consume(*sel)
	if !hasChildren {
		return e, false
	}
	out := e.clone()
	out.Expanded[*sel] = true
	return out, true
}

func (r *Reconciler) consume(id string) {
	r.prev = &id
}
