package query

import (
	"database/sql"
	"strings"

	"arbor-cli/internal/model"
	"arbor-cli/internal/store"

	json "github.com/goccy/go-json"
)

// has_children follows the archived toggle so that a node whose only children are
// hidden does not render an expandable twisty.
const nodeColumns = `n.id, n.parent_id, n.user_id, n.content, n.created_at, n.archived_at,
	EXISTS(SELECT 1 FROM nodes c WHERE c.parent_id = n.id AND (? = 1 OR c.archived_at IS NULL)) AS has_children`

// created_at is compared as a parsed instant: rows from the sync agent may carry any
// RFC3339 precision or offset, and those do not order lexically.
const nodeOrder = `ORDER BY julianday(n.created_at) DESC, n.id ASC`

// VisibleParams are the inputs of the visible-node query.
type VisibleParams struct {
	UserID         string
	SelectedNodeID *string
	FocusedView    bool
	ShowArchived   bool
}

// Visible returns the nodes to render for the given selection and view toggles.
//
// In focused view the result is the 1-hop neighbourhood of the selection: its
// parent, the parent's children (the selection's siblings), its own children, and
// the selection itself. Every sub-select repeats the selected id as `? IS NOT NULL`
// so that no selection yields an empty set rather than matching NULL columns.
// Outside focused view it is every node of the user. Archived nodes are filtered by
// ShowArchived in both modes.
func Visible(p VisibleParams) Query {
	sel := nullableArg(p.SelectedNodeID)
	archived := boolArg(p.ShowArchived)
	return Query{
		Name: "visible_nodes",
		SQL: `SELECT ` + nodeColumns + `
FROM nodes n
WHERE n.user_id = ?
  AND (? = 1 OR n.archived_at IS NULL)
  AND (? = 0 OR n.id IN (
    SELECT p.parent_id FROM nodes p WHERE p.id = ? AND ? IS NOT NULL
    UNION
    SELECT s.id FROM nodes s WHERE s.parent_id = (
      SELECT sp.parent_id FROM nodes sp WHERE sp.id = ? AND ? IS NOT NULL
    )
    UNION
    SELECT c.id FROM nodes c WHERE c.parent_id = ? AND ? IS NOT NULL
    UNION
    SELECT self.id FROM nodes self WHERE self.id = ? AND ? IS NOT NULL
  ))
` + nodeOrder,
		Args: []any{
			archived,
			strings.TrimSpace(p.UserID),
			archived,
			boolArg(p.FocusedView),
			sel, sel,
			sel, sel,
			sel, sel,
			sel, sel,
		},
		Tables: []string{store.TableNodes},
	}
}

// AllNodes is Visible outside focused view.
func AllNodes(userID string, showArchived bool) Query {
	q := Visible(VisibleParams{UserID: userID, ShowArchived: showArchived})
	q.Name = "all_nodes"
	return q
}

// ExpandedScope returns the root-level nodes plus the direct children of every
// expanded id. The expanded set is bound as one JSON array parameter.
func ExpandedScope(userID string, expanded []string, showArchived bool) Query {
	if expanded == nil {
		expanded = []string{}
	}
	raw, _ := json.Marshal(expanded)
	archived := boolArg(showArchived)
	return Query{
		Name: "expanded_nodes",
		SQL: `SELECT ` + nodeColumns + `
FROM nodes n
WHERE n.user_id = ?
  AND (? = 1 OR n.archived_at IS NULL)
  AND (n.parent_id IS NULL OR n.parent_id IN (SELECT value FROM json_each(?)))
` + nodeOrder,
		Args:   []any{archived, strings.TrimSpace(userID), archived, string(raw)},
		Tables: []string{store.TableNodes},
	}
}

// Children returns the direct children of parentID.
func Children(parentID string, showArchived bool) Query {
	archived := boolArg(showArchived)
	return Query{
		Name: "children",
		SQL: `SELECT ` + nodeColumns + `
FROM nodes n
WHERE n.parent_id = ?
  AND (? = 1 OR n.archived_at IS NULL)
` + nodeOrder,
		Args:   []any{archived, strings.TrimSpace(parentID), archived},
		Tables: []string{store.TableNodes},
	}
}

// NodeByID returns at most one row; archived nodes are included.
func NodeByID(id string) Query {
	return Query{
		Name: "node_by_id",
		SQL: `SELECT ` + nodeColumns + `
FROM nodes n
WHERE n.id = ?`,
		Args:   []any{1, strings.TrimSpace(id)},
		Tables: []string{store.TableNodes},
	}
}

// ScanNodes reads rows produced by the node queries in this package.
func ScanNodes(rows *sql.Rows) ([]model.Node, error) {
	out := []model.Node{}
	for rows.Next() {
		var (
			n           model.Node
			parentID    sql.NullString
			createdAt   string
			archivedAt  sql.NullString
			hasChildren int
		)
		if err := rows.Scan(&n.ID, &parentID, &n.UserID, &n.Content, &createdAt, &archivedAt, &hasChildren); err != nil {
			return nil, err
		}
		if parentID.Valid && parentID.String != "" {
			pid := parentID.String
			n.ParentID = &pid
		}
		t, err := store.ParseTime(createdAt)
		if err != nil {
			return nil, err
		}
		n.CreatedAt = t
		if archivedAt.Valid && archivedAt.String != "" {
			at, err := store.ParseTime(archivedAt.String)
			if err != nil {
				return nil, err
			}
			n.ArchivedAt = &at
		}
		n.HasChildren = hasChildren != 0
		out = append(out, n)
	}
	return out, rows.Err()
}
