package tui

import (
	"context"

	"arbor-cli/internal/appstate"
	"arbor-cli/internal/live"
	"arbor-cli/internal/metrics"
	"arbor-cli/internal/model"
	"arbor-cli/internal/nodes"
	"arbor-cli/internal/query"
	"arbor-cli/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type promptKind int

const (
	promptNone promptKind = iota
	promptNewChild
	promptNewSibling
	promptRename
)

type appModel struct {
	ctx     context.Context
	db      *store.DB
	state   *appstate.State
	svc     *nodes.Service
	hub     *live.Hub
	metrics *metrics.Tracker
	log     logrus.FieldLogger
	keys    keyMap

	width  int
	height int

	nodes  []model.Node
	rows   []treeRow
	cursor int

	visKey    string
	visEpoch  int
	visCancel context.CancelFunc

	allNodes  int64
	userNodes int64
	pending   int64
	sync      model.SyncStatus

	spin     spinner.Model
	spinning bool

	prompt       promptKind
	input        textinput.Model
	promptTarget string
	promptParent *string

	flash string
	err   string

	startup []tea.Cmd
}

func newAppModel(ctx context.Context, d Deps) appModel {
	d = d.withDefaults()
	in := textinput.New()
	in.CharLimit = 2000
	in.Prompt = "› "

	m := appModel{
		ctx:     ctx,
		db:      d.DB,
		state:   d.State,
		svc:     d.Nodes,
		hub:     d.Hub,
		metrics: d.Metrics,
		log:     d.Log,
		keys:    defaultKeyMap(),
		spin:    spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		input:   in,
	}

	sess := m.state.Session()
	m.startup = []tea.Cmd{
		waitState(m.state.Changes()),
		m.ensureRoot(sess.UserID),
		listen(subAllNodes, 0, live.Watch(ctx, m.hub, m.db, query.CountAllNodes(), query.ScanCount)),
		listen(subUserNodes, 0, live.Watch(ctx, m.hub, m.db, query.CountUserNodes(sess.EffectiveLocalID()), query.ScanCount)),
		listen(subPending, 0, live.Watch(ctx, m.hub, m.db, query.CountPendingUploads(), query.ScanCount)),
		listen(subSync, 0, live.Watch(ctx, m.hub, m.db, query.SyncStatus(), store.ScanSyncStatus)),
	}
	if cmd := m.resubscribe(); cmd != nil {
		m.startup = append(m.startup, cmd)
	}
	return m
}

func (m appModel) Init() tea.Cmd { return tea.Batch(m.startup...) }

// visibleQuery is the neighbourhood query in focused view, and the root level plus
// the children of every expanded node otherwise.
func (m *appModel) visibleQuery() query.Query {
	snap := m.state.Snapshot()
	if snap.FocusedView {
		return query.Visible(m.state.VisibleParams())
	}
	return query.ExpandedScope(snap.Session.UserID, snap.Expanded, snap.ShowArchived)
}

// resubscribe replaces the visible-node subscription when its query changed.
func (m *appModel) resubscribe() tea.Cmd {
	q := m.visibleQuery()
	if q.Key() == m.visKey {
		return nil
	}
	if m.visCancel != nil {
		m.visCancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.visCancel = cancel
	m.visKey = q.Key()
	m.visEpoch++
	m.log.WithFields(logrus.Fields{"query": q.Name, "epoch": m.visEpoch}).Debug("visible subscription")
	return listen(subVisible, m.visEpoch, live.Watch(ctx, m.hub, m.db, q, query.ScanNodes))
}

// reflow rebuilds the rows and keeps the cursor on the selected node.
func (m *appModel) reflow() {
	snap := m.state.Snapshot()
	m.rows = flattenTree(m.nodes, m.state.IsExpanded, snap.FocusedView)
	if snap.SelectedNodeID != nil {
		if i := rowIndex(m.rows, *snap.SelectedNodeID); i >= 0 {
			m.cursor = i
			return
		}
	}
	m.cursor = min(max(m.cursor, 0), max(len(m.rows)-1, 0))
}

func (m *appModel) selectedRow() (treeRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return treeRow{}, false
	}
	return m.rows[m.cursor], true
}

func (m *appModel) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.state.Select(m.rows[m.cursor].node.ID)
	m.state.ObserveNodes(m.nodes)
}

func (m *appModel) ensureRoot(userID string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		n, err := svc.EnsureRoot(ctx, userID)
		return rootMsg{node: n, err: err}
	}
}

func (m *appModel) createNode(parentID *string, content string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	userID := m.state.Session().UserID
	return func() tea.Msg {
		n, err := svc.Create(ctx, nodes.CreateParams{UserID: userID, ParentID: parentID, Content: content})
		return mutationMsg{kind: mutCreate, node: n, changed: err == nil, err: err}
	}
}

func (m *appModel) renameNode(id, content string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		res, err := svc.Rename(ctx, id, content)
		return mutationMsg{kind: mutRename, node: res.Node, changed: res.Changed, err: err}
	}
}

func (m *appModel) toggleArchived(n model.Node) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	if n.Archived() {
		return func() tea.Msg {
			res, err := svc.Unarchive(ctx, n.ID)
			return mutationMsg{kind: mutUnarchive, node: res.Node, changed: res.Changed, err: err}
		}
	}
	return func() tea.Msg {
		res, err := svc.Archive(ctx, n.ID)
		return mutationMsg{kind: mutArchive, node: res.Node, changed: res.Changed, err: err}
	}
}
