// Package nodes is the write façade over the local node mirror. Every mutation is a
// local transaction that updates the nodes table and appends an upload-queue entry;
// nothing here waits for, or assumes, propagation to the backend.
package nodes

import (
	"context"
	"strings"
	"time"

	"arbor-cli/internal/logging"
	"arbor-cli/internal/model"
	"arbor-cli/internal/query"
	"arbor-cli/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RootNodeName is hashed with the user id to derive the per-user root node id.
const RootNodeName = "ROOT_NODE"

// maxAncestorDepth bounds the ancestor walk if synced data already contains a cycle.
const maxAncestorDepth = 10000

type Service struct {
	db    *store.DB
	now   func() time.Time
	newID func() string
	log   logrus.FieldLogger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func New(db *store.DB, opts ...Option) *Service {
	s := &Service{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RootID returns the deterministic root node id for userID (UUID v5 of RootNodeName
// in the user's namespace). Non-UUID user ids are first mapped into a namespace.
func RootID(userID string) string {
	userID = strings.TrimSpace(userID)
	ns, err := uuid.Parse(userID)
	if err != nil {
		ns = uuid.NewSHA1(uuid.NameSpaceURL, []byte("arbor:user:"+userID))
	}
	return uuid.NewSHA1(ns, []byte(RootNodeName)).String()
}

type CreateParams struct {
	UserID   string
	ParentID *string
	Content  string
}

type MutationResult struct {
	Node    model.Node
	Changed bool
}

func (s *Service) Get(ctx context.Context, id string) (model.Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Node{}, ErrEmptyID
	}
	return getNode(ctx, s.db, id)
}

func (s *Service) Create(ctx context.Context, p CreateParams) (model.Node, error) {
	userID := strings.TrimSpace(p.UserID)
	if userID == "" {
		return model.Node{}, store.ErrNoSession
	}
	n := model.Node{
		ID:        s.newID(),
		UserID:    userID,
		Content:   p.Content,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if p.ParentID != nil && strings.TrimSpace(*p.ParentID) != "" {
		pid := strings.TrimSpace(*p.ParentID)
		n.ParentID = &pid
	}

	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		if n.ParentID != nil {
			if _, err := getNode(ctx, tx, *n.ParentID); err != nil {
				return err
			}
		}
		return insertNode(ctx, tx, n)
	})
	if err != nil {
		return model.Node{}, err
	}
	s.log.WithFields(logrus.Fields{"node": n.ID, "parent": deref(n.ParentID)}).Debug("node created")
	return n, nil
}

// EnsureRoot returns the user's root node, creating it when missing.
func (s *Service) EnsureRoot(ctx context.Context, userID string) (model.Node, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Node{}, store.ErrNoSession
	}
	id := RootID(userID)
	var out model.Node
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		n, err := getNode(ctx, tx, id)
		if err == nil {
			out = n
			return nil
		}
		if !IsNotFound(err) {
			return err
		}
		out = model.Node{
			ID:        id,
			UserID:    userID,
			CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		}
		return insertNode(ctx, tx, out)
	})
	return out, err
}

func (s *Service) Rename(ctx context.Context, id, content string) (MutationResult, error) {
	return s.update(ctx, id, func(ctx context.Context, tx *store.Tx, n *model.Node) (map[string]any, error) {
		if n.Content == content {
			return nil, nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET content = ? WHERE id = ?`, content, n.ID); err != nil {
			return nil, err
		}
		n.Content = content
		return map[string]any{"content": content}, nil
	})
}

// Move reparents id under newParentID (nil moves it to the top level).
func (s *Service) Move(ctx context.Context, id string, newParentID *string) (MutationResult, error) {
	var parent *string
	if newParentID != nil && strings.TrimSpace(*newParentID) != "" {
		pid := strings.TrimSpace(*newParentID)
		parent = &pid
	}
	return s.update(ctx, id, func(ctx context.Context, tx *store.Tx, n *model.Node) (map[string]any, error) {
		if deref(n.ParentID) == deref(parent) {
			return nil, nil
		}
		if parent != nil {
			if _, err := getNode(ctx, tx, *parent); err != nil {
				return nil, err
			}
			cyclic, err := isAncestorOrSelf(ctx, tx, n.ID, *parent)
			if err != nil {
				return nil, err
			}
			if cyclic {
				return nil, ErrCycle
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET parent_id = ? WHERE id = ?`, nullable(parent), n.ID); err != nil {
			return nil, err
		}
		n.ParentID = parent
		return map[string]any{"parent_id": nullable(parent)}, nil
	})
}

func (s *Service) Archive(ctx context.Context, id string) (MutationResult, error) {
	return s.setArchived(ctx, id, true)
}

func (s *Service) Unarchive(ctx context.Context, id string) (MutationResult, error) {
	return s.setArchived(ctx, id, false)
}

func (s *Service) setArchived(ctx context.Context, id string, archived bool) (MutationResult, error) {
	return s.update(ctx, id, func(ctx context.Context, tx *store.Tx, n *model.Node) (map[string]any, error) {
		if n.Archived() == archived {
			return nil, nil
		}
		var at *time.Time
		var col any
		if archived {
			t := s.now().UTC().Truncate(time.Millisecond)
			at = &t
			col = store.FormatTime(t)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET archived_at = ? WHERE id = ?`, col, n.ID); err != nil {
			return nil, err
		}
		n.ArchivedAt = at
		return map[string]any{"archived_at": col}, nil
	})
}

type mutation func(ctx context.Context, tx *store.Tx, n *model.Node) (map[string]any, error)

// update loads id, applies fn, and enqueues a PATCH with the changed columns.
// fn returning a nil patch means "no change": nothing is written or enqueued.
func (s *Service) update(ctx context.Context, id string, fn mutation) (MutationResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MutationResult{}, ErrEmptyID
	}
	var res MutationResult
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		n, err := getNode(ctx, tx, id)
		if err != nil {
			return err
		}
		patch, err := fn(ctx, tx, &n)
		if err != nil {
			return err
		}
		res.Node = n
		if patch == nil {
			return nil
		}
		res.Changed = true
		tx.Touch(store.TableNodes)
		return tx.Enqueue(ctx, model.CrudPatch, store.TableNodes, n.ID, patch)
	})
	if err != nil {
		return MutationResult{}, err
	}
	if res.Changed {
		s.log.WithField("node", res.Node.ID).Debug("node updated")
	}
	return res, nil
}

func insertNode(ctx context.Context, tx *store.Tx, n model.Node) error {
	created := store.FormatTime(n.CreatedAt)
	if _, err := tx.ExecContext(ctx, `INSERT INTO nodes(id, parent_id, user_id, content, created_at, archived_at) VALUES(?, ?, ?, ?, ?, NULL)`,
		n.ID, nullable(n.ParentID), n.UserID, n.Content, created); err != nil {
		return err
	}
	tx.Touch(store.TableNodes)
	return tx.Enqueue(ctx, model.CrudPut, store.TableNodes, n.ID, map[string]any{
		"parent_id":  nullable(n.ParentID),
		"user_id":    n.UserID,
		"content":    n.Content,
		"created_at": created,
	})
}

func getNode(ctx context.Context, db query.Querier, id string) (model.Node, error) {
	ns, err := query.Run(ctx, db, query.NodeByID(id), query.ScanNodes)
	if err != nil {
		return model.Node{}, err
	}
	if len(ns) == 0 {
		return model.Node{}, NotFoundError{Kind: "node", ID: id}
	}
	return ns[0], nil
}

// isAncestorOrSelf reports whether nodeID is start or one of start's ancestors.
func isAncestorOrSelf(ctx context.Context, tx *store.Tx, nodeID, start string) (bool, error) {
	var found bool
	err := tx.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors(id, depth) AS (
			SELECT ?, 0
			UNION ALL
			SELECT n.parent_id, a.depth + 1
			FROM nodes n
			JOIN ancestors a ON n.id = a.id
			WHERE n.parent_id IS NOT NULL AND a.depth < ?
		)
		SELECT EXISTS(SELECT 1 FROM ancestors WHERE id = ?)
	`, start, maxAncestorDepth, nodeID).Scan(&found)
	return found, err
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
