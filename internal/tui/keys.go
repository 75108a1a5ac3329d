package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Toggle       key.Binding
	Expand       key.Binding
	Collapse     key.Binding
	Focused      key.Binding
	ShowArchived key.Binding
	NewChild     key.Binding
	NewSibling   key.Binding
	Rename       key.Binding
	Archive      key.Binding
	Reload       key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:         key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Toggle:       key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
		Expand:       key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l", "expand")),
		Collapse:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "collapse")),
		Focused:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
		ShowArchived: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archived")),
		NewChild:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new child")),
		NewSibling:   key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new sibling")),
		Rename:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename")),
		Archive:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "archive")),
		Reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) footer() []key.Binding {
	return []key.Binding{k.Toggle, k.Focused, k.ShowArchived, k.NewChild, k.NewSibling, k.Rename, k.Archive, k.Reload, k.Quit}
}
