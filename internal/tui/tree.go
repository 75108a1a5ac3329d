package tui

import (
	"sort"

	"arbor-cli/internal/model"
)

type treeRow struct {
	node     model.Node
	depth    int
	expanded bool
}

// flattenTree turns query rows into display order: depth-first, siblings newest
// first (ties by id).
//
// Outside focused view only root-level nodes start a subtree, children are walked
// only under expanded nodes, and rows whose parent is absent are dropped. In
// focused view the rows are a neighbourhood, so a node whose parent is not loaded
// starts its own subtree and every loaded child is shown.
func flattenTree(nodes []model.Node, expanded func(id string) bool, focused bool) []treeRow {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	children := map[string][]model.Node{}
	var roots []model.Node
	for _, n := range nodes {
		switch {
		case n.IsRoot():
			roots = append(roots, n)
		case present[*n.ParentID]:
			children[*n.ParentID] = append(children[*n.ParentID], n)
		case focused:
			roots = append(roots, n)
		}
	}
	sortNodes(roots)
	for _, sibs := range children {
		sortNodes(sibs)
	}

	out := make([]treeRow, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	var walk func(n model.Node, depth int)
	walk = func(n model.Node, depth int) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		open := len(children[n.ID]) > 0 && (focused || expanded(n.ID))
		out = append(out, treeRow{node: n, depth: depth, expanded: open})
		if !open {
			return
		}
		for _, ch := range children[n.ID] {
			walk(ch, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return out
}

func sortNodes(ns []model.Node) {
	sort.SliceStable(ns, func(i, j int) bool {
		a, b := ns[i], ns[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func rowIndex(rows []treeRow, id string) int {
	for i, r := range rows {
		if r.node.ID == id {
			return i
		}
	}
	return -1
}

// subtreeIDs returns id and every descendant reachable through rows.
func subtreeIDs(nodes []model.Node, id string) map[string]bool {
	kids := map[string][]string{}
	for _, n := range nodes {
		if n.ParentID != nil {
			kids[*n.ParentID] = append(kids[*n.ParentID], n.ID)
		}
	}
	out := map[string]bool{}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[cur] {
			continue
		}
		out[cur] = true
		stack = append(stack, kids[cur]...)
	}
	return out
}
