package tui

import (
	"os"
	"strings"
	"sync"
)

// Some terminal fonts render the box-drawing and triangle glyphs badly, so the tree
// can fall back to plain ASCII affordances.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference picks the glyph set from ARBOR_TUI_GLYPHS, then the configured
// value. Unknown values leave the current set alone.
func applyGlyphPreference(configured string) {
	v := strings.TrimSpace(os.Getenv("ARBOR_TUI_GLYPHS"))
	if v == "" {
		v = configured
	}
	if gs, ok := parseGlyphSet(v); ok {
		setGlyphs(gs)
	}
}

func parseGlyphSet(v string) (glyphSet, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "unicode", "utf8", "utf-8":
		return glyphSetUnicode, true
	case "ascii":
		return glyphSetASCII, true
	}
	return glyphSetUnicode, false
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	defer glyphsMu.RUnlock()
	return currentGlyphs
}

func pick(unicode, ascii string) string {
	if glyphs() == glyphSetASCII {
		return ascii
	}
	return unicode
}

func glyphTwistyCollapsed() string { return pick("▸", ">") }

func glyphTwistyExpanded() string { return pick("▾", "v") }

// glyphLeaf marks nodes without (visible) children.
func glyphLeaf() string { return pick("•", "*") }

func glyphArchived() string { return pick("⌫", "x") }

func glyphOnline() string { return pick("●", "+") }

func glyphOffline() string { return pick("○", "-") }

func glyphRule() string { return pick("─", "-") }
