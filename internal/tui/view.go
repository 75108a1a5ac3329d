package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) View() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	bodyH := max(height-2, 1)

	sideW, mainW := splitWidths(width)
	body := joinPanes(m.viewSidebar(), m.viewTree(mainW, bodyH), sideW, mainW, bodyH)
	return strings.Join([]string{body, m.viewStatusLine(width), m.viewFooter(width)}, "\n")
}

func (m appModel) viewSidebar() string {
	snap := m.state.Snapshot()
	var b strings.Builder
	b.WriteString(styleHeading().Render("arbor"))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(strings.Repeat(glyphRule(), 10)))
	b.WriteString("\n")

	line := func(label, value string) {
		b.WriteString(styleMuted().Render(fmt.Sprintf("%-10s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	line("my nodes", fmt.Sprint(m.userNodes))
	line("nodes", fmt.Sprint(m.allNodes))
	sel := "-"
	if snap.SelectedNodeID != nil {
		sel = shortID(*snap.SelectedNodeID)
	}
	line("selected", sel)
	b.WriteString("\n")

	if m.sync.Connected {
		line("sync", styleConnected(true).Render(glyphOnline()+" connected"))
	} else {
		line("sync", styleConnected(false).Render(glyphOffline()+" offline"))
	}
	line("synced", yesNo(m.sync.HasSynced))
	if m.sync.DataFlow.Downloading {
		line("download", m.spin.View()+" "+downloadProgress(m))
	}
	if m.sync.DataFlow.Uploading {
		line("upload", m.spin.View()+fmt.Sprintf(" %d pending", m.pending))
	}
	b.WriteString("\n")

	view := "tree"
	if snap.FocusedView {
		view = "focused"
	}
	line("view", view)
	archived := "hidden"
	if snap.ShowArchived {
		archived = "shown"
	}
	line("archived", archived)
	return b.String()
}

func downloadProgress(m appModel) string {
	p := m.sync.DownloadProgress
	if p == nil {
		return "…"
	}
	return p.String()
}

func (m appModel) viewTree(width, height int) string {
	if len(m.rows) == 0 {
		return styleMuted().Render("No nodes. Press n to add one.")
	}

	// Keep the cursor in view.
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) renderRow(r treeRow, selected bool, width int) string {
	twisty := glyphLeaf()
	switch {
	case r.expanded:
		twisty = glyphTwistyExpanded()
	case r.node.HasChildren:
		twisty = glyphTwistyCollapsed()
	}
	content := r.node.Content
	if strings.TrimSpace(content) == "" {
		if r.node.IsRoot() {
			content = "(root)"
		} else {
			content = "(empty)"
		}
	}
	content = strings.ReplaceAll(content, "\n", " ")
	if r.node.Archived() {
		content = glyphArchived() + " " + content
	}

	ln := strings.Repeat("  ", r.depth) + twisty + " " + content
	ln = fitLine(ln, width)
	switch {
	case selected:
		return styleSelected().Render(ln)
	case r.node.Archived():
		return styleArchived().Render(ln)
	}
	return ln
}

func (m appModel) viewStatusLine(width int) string {
	if m.prompt != promptNone {
		label := map[promptKind]string{
			promptNewChild:   "New child",
			promptNewSibling: "New sibling",
			promptRename:     "Rename",
		}[m.prompt]
		return fitLine(label+": "+m.input.View(), width)
	}
	if m.err != "" {
		return styleError().Render(fitLine("error: "+m.err, width))
	}
	return styleMuted().Render(fitLine(m.flash, width))
}

func (m appModel) viewFooter(width int) string {
	parts := make([]string, 0, 9)
	for _, b := range m.keys.footer() {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return lipgloss.NewStyle().Faint(true).Render(fitLine(strings.Join(parts, "  "), width))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
