package tui

import (
	"strings"

	"arbor-cli/internal/metrics"
	"arbor-cli/internal/model"
	"arbor-cli/internal/store"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resultMsg[[]model.Node]:
		if msg.epoch != m.visEpoch {
			// Superseded subscription; its context is already cancelled.
			return m, nil
		}
		next := listen(subVisible, msg.epoch, msg.ch)
		if msg.res.Err != nil {
			m.err = msg.res.Err.Error()
			m.log.WithError(msg.res.Err).Warn("visible query failed")
			return m, next
		}
		m.err = ""
		m.nodes = msg.res.Value
		m.metrics.RegisterLastSync()
		m.state.ObserveNodes(m.nodes)
		m.reflow()
		return m, tea.Batch(next, m.resubscribe())

	case resultMsg[int64]:
		next := listen(msg.kind, msg.epoch, msg.ch)
		if msg.res.Err != nil {
			m.err = msg.res.Err.Error()
			return m, next
		}
		switch msg.kind {
		case subAllNodes:
			m.allNodes = msg.res.Value
			if m.allNodes > 0 {
				m.metrics.MeasureOnce(metrics.TimeToInteraction)
			}
		case subUserNodes:
			m.userNodes = msg.res.Value
		case subPending:
			m.pending = msg.res.Value
		}
		return m, next

	case resultMsg[model.SyncStatus]:
		next := listen(msg.kind, msg.epoch, msg.ch)
		if msg.res.Err != nil {
			m.err = msg.res.Err.Error()
			return m, next
		}
		m.sync = msg.res.Value
		active := m.sync.DataFlow.Downloading || m.sync.DataFlow.Uploading
		if active && !m.spinning {
			m.spinning = true
			return m, tea.Batch(next, m.spin.Tick)
		}
		m.spinning = active
		return m, next

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case stateChangedMsg:
		m.reflow()
		return m, tea.Batch(waitState(m.state.Changes()), m.resubscribe())

	case rootMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		if _, ok := m.state.SelectedNodeID(); !ok {
			m.state.Select(msg.node.ID)
		}
		return m, m.resubscribe()

	case mutationMsg:
		return m.handleMutation(msg)

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	row, hasRow := m.selectedRow()

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.visCancel != nil {
			m.visCancel()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Toggle):
		if hasRow {
			m.state.ToggleExpanded(row.node.ID)
		}
	case key.Matches(msg, m.keys.Expand):
		if hasRow && row.node.HasChildren {
			m.state.Expand(row.node.ID)
		}
	case key.Matches(msg, m.keys.Collapse):
		if !hasRow {
			break
		}
		if m.state.IsExpanded(row.node.ID) {
			m.state.Collapse(row.node.ID)
		} else if !row.node.IsRoot() {
			// Collapsing a leaf jumps to its parent, as in most outliners.
			m.state.Select(*row.node.ParentID)
		}
	case key.Matches(msg, m.keys.Focused):
		m.state.ToggleFocusedView()
	case key.Matches(msg, m.keys.ShowArchived):
		m.state.ToggleShowArchived()
	case key.Matches(msg, m.keys.NewChild):
		if hasRow {
			id := row.node.ID
			return m.openPrompt(promptNewChild, "", &id, "")
		}
		return m.openPrompt(promptNewChild, "", nil, "")
	case key.Matches(msg, m.keys.NewSibling):
		if hasRow {
			return m.openPrompt(promptNewSibling, "", row.node.ParentID, "")
		}
	case key.Matches(msg, m.keys.Rename):
		if hasRow {
			return m.openPrompt(promptRename, row.node.ID, nil, row.node.Content)
		}
	case key.Matches(msg, m.keys.Archive):
		if hasRow {
			return m, m.toggleArchived(row.node)
		}
	case key.Matches(msg, m.keys.Reload):
		m.hub.Notify(store.AllTables...)
		m.flash = "reloaded"
		return m, nil
	default:
		return m, nil
	}
	m.reflow()
	return m, m.resubscribe()
}

func (m appModel) openPrompt(kind promptKind, target string, parent *string, value string) (tea.Model, tea.Cmd) {
	m.prompt = kind
	m.promptTarget = target
	m.promptParent = nil
	if parent != nil {
		p := *parent
		m.promptParent = &p
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m appModel) closePrompt() appModel {
	m.prompt = promptNone
	m.promptTarget = ""
	m.promptParent = nil
	m.input.Blur()
	m.input.Reset()
	return m
}

func (m appModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.closePrompt(), nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		kind, target, parent := m.prompt, m.promptTarget, m.promptParent
		m = m.closePrompt()
		switch kind {
		case promptNewChild, promptNewSibling:
			if value == "" {
				return m, nil
			}
			return m, m.createNode(parent, value)
		case promptRename:
			return m, m.renameNode(target, value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) handleMutation(msg mutationMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err.Error()
		m.log.WithError(msg.err).Warn("mutation failed")
		return m, nil
	}
	m.err = ""
	switch msg.kind {
	case mutCreate:
		if msg.node.ParentID != nil {
			m.state.Expand(*msg.node.ParentID)
		}
		m.state.Select(msg.node.ID)
		m.flash = "created"
	case mutRename:
		if msg.changed {
			m.flash = "renamed"
		}
	case mutArchive:
		m.flash = "archived"
		if !m.state.Snapshot().ShowArchived {
			gone := subtreeIDs(m.nodes, msg.node.ID)
			m.state.PruneExpanded(func(id string) bool { return !gone[id] })
			if msg.node.ParentID != nil {
				m.state.Select(*msg.node.ParentID)
			}
		}
	case mutUnarchive:
		m.flash = "unarchived"
	}
	m.reflow()
	return m, m.resubscribe()
}
