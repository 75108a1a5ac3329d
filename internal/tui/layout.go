package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const (
	sidebarWidth    = 30
	minMainWidth    = 20
	maxRawLineBytes = 8192
)

// fitPane pads or truncates s (ANSI-aware) to exactly width columns and height
// lines, so panes joined with lipgloss.JoinHorizontal stay aligned.
func fitPane(s string, width, height int) string {
	width = max(width, 0)
	height = max(height, 0)

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		// Bound the width computation on pathological content.
		if len(ln) > maxRawLineBytes {
			ln = xansi.Cut(ln, 0, width+1)
		}
		lines[i] = fitLine(ln, width)
	}
	return strings.Join(lines, "\n")
}

func fitLine(ln string, width int) string {
	w := xansi.StringWidth(ln)
	if w > width {
		switch {
		case width <= 0:
			return ""
		case width == 1:
			ln = xansi.Cut(ln, 0, 1)
		default:
			ln = xansi.Truncate(ln, width, "…")
		}
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}

// splitWidths divides the terminal between sidebar and tree. Narrow terminals drop
// the sidebar.
func splitWidths(total int) (side, main int) {
	if total-sidebarWidth-1 < minMainWidth {
		return 0, max(total, 0)
	}
	return sidebarWidth, total - sidebarWidth - 1
}

func joinPanes(side, main string, sideW, mainW, height int) string {
	if sideW <= 0 {
		return fitPane(main, mainW, height)
	}
	sep := strings.TrimRight(strings.Repeat("│\n", max(height, 1)), "\n")
	return lipgloss.JoinHorizontal(lipgloss.Top,
		fitPane(side, sideW, height),
		styleMuted().Render(sep),
		fitPane(main, mainW, height),
	)
}
