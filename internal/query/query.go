// Package query builds the parameterised SQL the tree view and CLI run against the
// local node mirror. Builders are pure: they return a Query value and never touch
// the database. Running a Query (once, or reactively) is the caller's business.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Querier is the read surface a Query runs against (*sql.DB, *sql.Tx, *store.DB).
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Query is a SQL statement paired with its positional arguments and the tables
// whose changes make its result stale.
type Query struct {
	Name   string
	SQL    string
	Args   []any
	Tables []string
}

// Key identifies the query and its bound arguments. Two Query values with the same
// Key produce the same result against the same database state.
func (q Query) Key() string {
	raw, err := json.Marshal(q.Args)
	if err != nil {
		return q.Name + "|" + fmt.Sprint(q.Args...)
	}
	return q.Name + "|" + string(raw)
}

func (q Query) String() string {
	return fmt.Sprintf("%s: %s %v", q.Name, strings.Join(strings.Fields(q.SQL), " "), q.Args)
}

// Run executes q once and scans every row with scan.
func Run[T any](ctx context.Context, db Querier, q Query, scan func(*sql.Rows) (T, error)) (T, error) {
	var zero T
	rows, err := db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return zero, fmt.Errorf("query %s: %w", q.Name, err)
	}
	defer rows.Close()
	out, err := scan(rows)
	if err != nil {
		return zero, fmt.Errorf("query %s: %w", q.Name, err)
	}
	return out, nil
}

func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableArg binds a nil or blank id as SQL NULL.
func nullableArg(id *string) any {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	return strings.TrimSpace(*id)
}
