package tui

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"arbor-cli/internal/appstate"
	"arbor-cli/internal/live"
	"arbor-cli/internal/metrics"
	"arbor-cli/internal/model"
	"arbor-cli/internal/nodes"
	"arbor-cli/internal/query"
	"arbor-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

const testUser = "4f1c2a7e-9d0b-4c3e-8a55-0c1d2e3f4a5b"

type fixture struct {
	ctx     context.Context
	db      *store.DB
	state   *appstate.State
	svc     *nodes.Service
	metrics *metrics.Tracker
}

func newFixture(t *testing.T, opts ...appstate.Option) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := store.Store{Dir: t.TempDir()}.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st, err := appstate.New(&model.Session{UserID: testUser}, opts...)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	var tick atomic.Int64
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }

	return &fixture{
		ctx:     ctx,
		db:      db,
		state:   st,
		svc:     nodes.New(db, nodes.WithClock(clock)),
		metrics: metrics.New(nil),
	}
}

func (f *fixture) model() appModel {
	m := newAppModel(f.ctx, Deps{DB: f.db, State: f.state, Nodes: f.svc, Metrics: f.metrics})
	m.width, m.height = 100, 30
	return m
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(appModel)
	require.True(t, ok)
	return out, cmd
}

// deliver runs the current visible query and hands the result to the model, the
// way the live subscription would.
func deliver(t *testing.T, m appModel) appModel {
	t.Helper()
	ns, err := query.Run(context.Background(), m.db, m.visibleQuery(), query.ScanNodes)
	require.NoError(t, err)
	m, _ = update(t, m, resultMsg[[]model.Node]{kind: subVisible, epoch: m.visEpoch, res: live.Result[[]model.Node]{Value: ns}})
	return m
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func (f *fixture) seedTree(t *testing.T) (root, a, b model.Node) {
	t.Helper()
	var err error
	root, err = f.svc.EnsureRoot(f.ctx, testUser)
	require.NoError(t, err)
	a, err = f.svc.Create(f.ctx, nodes.CreateParams{UserID: testUser, ParentID: &root.ID, Content: "alpha"})
	require.NoError(t, err)
	b, err = f.svc.Create(f.ctx, nodes.CreateParams{UserID: testUser, ParentID: &root.ID, Content: "beta"})
	require.NoError(t, err)
	return root, a, b
}

func TestAppModel_SelectingRootAutoExpandsOnce(t *testing.T) {
	f := newFixture(t)
	root, a, b := f.seedTree(t)
	m := f.model()

	m, _ = update(t, m, rootMsg{node: root})
	sel, ok := f.state.SelectedNodeID()
	require.True(t, ok)
	require.Equal(t, root.ID, sel)

	// First delivery only has the root level; the reconciler expands the root.
	m = deliver(t, m)
	require.True(t, f.state.IsExpanded(root.ID))

	m = deliver(t, m)
	require.Equal(t, []string{root.ID, b.ID, a.ID}, rowIDs(m.rows))

	// Collapsing by hand sticks: the same selection is never auto-expanded again.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, f.state.IsExpanded(root.ID))
	m = deliver(t, m)
	require.False(t, f.state.IsExpanded(root.ID))
	require.Equal(t, []string{root.ID}, rowIDs(m.rows))
}

func TestAppModel_ArchiveHidesNodeAndSelectsParent(t *testing.T) {
	f := newFixture(t)
	root, a, b := f.seedTree(t)
	m := f.model()
	m, _ = update(t, m, rootMsg{node: root})
	m = deliver(t, m)
	m = deliver(t, m)

	m, _ = update(t, m, keyRunes("j"))
	sel, _ := f.state.SelectedNodeID()
	require.Equal(t, b.ID, sel)

	m, cmd := update(t, m, keyRunes("x"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(mutationMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	require.True(t, msg.changed)

	m, _ = update(t, m, msg)
	sel, _ = f.state.SelectedNodeID()
	require.Equal(t, root.ID, sel)
	m = deliver(t, m)
	require.Equal(t, []string{root.ID, a.ID}, rowIDs(m.rows))

	// Showing archived brings it back, marked.
	m, _ = update(t, m, keyRunes("a"))
	m = deliver(t, m)
	require.Equal(t, []string{root.ID, b.ID, a.ID}, rowIDs(m.rows))
	require.Contains(t, m.View(), glyphArchived()+" beta")

	pending, err := f.db.PendingUploads(f.ctx, 100)
	require.NoError(t, err)
	require.Equal(t, model.CrudPatch, pending[len(pending)-1].Op)
}

func TestAppModel_NewChildPromptCreatesAndSelects(t *testing.T) {
	f := newFixture(t)
	root, _, _ := f.seedTree(t)
	m := f.model()
	m, _ = update(t, m, rootMsg{node: root})
	m = deliver(t, m)

	m, _ = update(t, m, keyRunes("n"))
	require.Equal(t, promptNewChild, m.prompt)
	m, _ = update(t, m, keyRunes("gamma"))
	require.Contains(t, m.View(), "New child")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, promptNone, m.prompt)
	require.NotNil(t, cmd)
	msg, ok := cmd().(mutationMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	require.Equal(t, "gamma", msg.node.Content)
	require.Equal(t, root.ID, *msg.node.ParentID)

	m, _ = update(t, m, msg)
	sel, _ := f.state.SelectedNodeID()
	require.Equal(t, msg.node.ID, sel)
	m = deliver(t, m)
	require.Equal(t, msg.node.ID, m.rows[m.cursor].node.ID)
}

func TestAppModel_PromptEscCancels(t *testing.T) {
	f := newFixture(t)
	root, _, _ := f.seedTree(t)
	m := f.model()
	m, _ = update(t, m, rootMsg{node: root})
	m = deliver(t, m)

	m, _ = update(t, m, keyRunes("e"))
	require.Equal(t, promptRename, m.prompt)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, promptNone, m.prompt)
	require.Nil(t, cmd)
}

func TestAppModel_FocusedWithoutSelectionIsEmpty(t *testing.T) {
	f := newFixture(t, appstate.WithFocusedView(true))
	f.seedTree(t)
	m := f.model()

	m = deliver(t, m)
	require.Empty(t, m.rows)
	require.Contains(t, m.View(), "No nodes")
}

func TestAppModel_StaleVisibleResultIgnored(t *testing.T) {
	f := newFixture(t)
	root, _, _ := f.seedTree(t)
	m := f.model()

	stale := resultMsg[[]model.Node]{kind: subVisible, epoch: m.visEpoch - 1, res: live.Result[[]model.Node]{Value: []model.Node{root}}}
	m, cmd := update(t, m, stale)
	require.Nil(t, cmd)
	require.Empty(t, m.rows)
}

func TestAppModel_SidebarCountersAndSyncStatus(t *testing.T) {
	f := newFixture(t)
	m := f.model()
	f.metrics.RegisterStart()

	m, _ = update(t, m, resultMsg[int64]{kind: subAllNodes, res: live.Result[int64]{Value: 0}})
	require.NotContains(t, f.metrics.Snapshot().Measured, metrics.TimeToInteraction)

	m, _ = update(t, m, resultMsg[int64]{kind: subAllNodes, res: live.Result[int64]{Value: 7}})
	m, _ = update(t, m, resultMsg[int64]{kind: subUserNodes, res: live.Result[int64]{Value: 4}})
	m, _ = update(t, m, resultMsg[int64]{kind: subPending, res: live.Result[int64]{Value: 2}})
	require.Contains(t, f.metrics.Snapshot().Measured, metrics.TimeToInteraction)

	st := model.SyncStatus{
		Connected: true,
		DataFlow:  model.DataFlowStatus{Downloading: true, Uploading: true},
		DownloadProgress: &model.DownloadProgress{
			DownloadedOperations: 3,
			TotalOperations:      10,
			DownloadedFraction:   0.3,
		},
	}
	m, cmd := update(t, m, resultMsg[model.SyncStatus]{kind: subSync, res: live.Result[model.SyncStatus]{Value: st}})
	require.NotNil(t, cmd)
	require.True(t, m.spinning)

	view := m.View()
	for _, want := range []string{"3/10 (30%)", "2 pending", "connected"} {
		require.True(t, strings.Contains(view, want), "view missing %q:\n%s", want, view)
	}
	require.Equal(t, int64(7), m.allNodes)
	require.Equal(t, int64(4), m.userNodes)
}

func TestRun_RequiresDatabaseAndSession(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Run(context.Background(), Deps{}), store.ErrNoDatabase)

	db, err := store.Store{Dir: t.TempDir()}.Open(context.Background())
	require.NoError(t, err)
	defer db.Close()
	require.ErrorIs(t, Run(context.Background(), Deps{DB: db}), store.ErrNoSession)
}
