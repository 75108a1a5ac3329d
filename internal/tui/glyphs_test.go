package tui

import "testing"

func TestGlyphs_FromEnvAndConfig(t *testing.T) {
	t.Setenv("ARBOR_TUI_GLYPHS", "")
	setGlyphs(glyphSetUnicode)
	applyGlyphPreference("")
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected unicode glyphs by default; got %v", got)
	}

	applyGlyphPreference("ascii")
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected configured ascii glyphs; got %v", got)
	}
	if glyphTwistyCollapsed() != ">" || glyphLeaf() != "*" {
		t.Fatalf("expected ascii affordances, got %q %q", glyphTwistyCollapsed(), glyphLeaf())
	}

	// Env wins over config.
	t.Setenv("ARBOR_TUI_GLYPHS", "unicode")
	applyGlyphPreference("ascii")
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected env to override config; got %v", got)
	}

	// Unknown values keep the current set.
	setGlyphs(glyphSetASCII)
	t.Setenv("ARBOR_TUI_GLYPHS", "bogus")
	applyGlyphPreference("")
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected unknown to be ignored; got %v", got)
	}
	setGlyphs(glyphSetUnicode)
}
