package tui

import (
	"arbor-cli/internal/live"
	"arbor-cli/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

type subKind int

const (
	subVisible subKind = iota
	subAllNodes
	subUserNodes
	subPending
	subSync
)

// resultMsg carries one live.Watch delivery into the update loop. ch is handed back
// so the handler can keep listening; epoch lets it drop results of a subscription
// that has since been replaced.
type resultMsg[T any] struct {
	kind  subKind
	epoch int
	res   live.Result[T]
	ch    <-chan live.Result[T]
}

func listen[T any](kind subKind, epoch int, ch <-chan live.Result[T]) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return resultMsg[T]{kind: kind, epoch: epoch, res: res, ch: ch}
	}
}

type stateChangedMsg struct{}

func waitState(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

type rootMsg struct {
	node model.Node
	err  error
}

type mutationKind int

const (
	mutCreate mutationKind = iota
	mutRename
	mutArchive
	mutUnarchive
)

type mutationMsg struct {
	kind    mutationKind
	node    model.Node
	changed bool
	err     error
}
