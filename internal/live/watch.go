package live

import (
	"context"
	"database/sql"
	"time"

	"arbor-cli/internal/query"
)

// Result is one execution of a watched query.
type Result[T any] struct {
	Key   string
	Seq   int
	Value T
	Err   error
	At    time.Time
}

// Watch runs q against db immediately and again after every notification for one of
// q.Tables. Results arrive in execution order on the returned channel, which is
// closed once ctx is done. A slow reader never blocks other subscriptions: pending
// notifications coalesce while a result waits to be received.
func Watch[T any](ctx context.Context, h *Hub, db query.Querier, q query.Query, scan func(*sql.Rows) (T, error)) <-chan Result[T] {
	out := make(chan Result[T])
	id, sub := h.register(q.Tables)
	key := q.Key()

	go func() {
		defer close(out)
		defer h.unregister(id)

		seq := 0
		for {
			unlock := h.lock(key)
			v, err := query.Run(ctx, db, q, scan)
			unlock()
			if ctx.Err() != nil {
				return
			}
			seq++
			res := Result[T]{Key: key, Seq: seq, Value: v, Err: err, At: time.Now()}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
			select {
			case <-sub.signal:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
