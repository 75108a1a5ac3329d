package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

const (
	JSON = "json"
	YAML = "yaml"
	Text = "text"
)

// Formats lists the accepted --format values.
var Formats = []string{JSON, YAML, Text}

// Texter is implemented by values that have a human-readable rendering.
// Values without one fall back to YAML in text mode.
type Texter interface {
	Text(st Styles) string
}

// Styles are the lipgloss styles handed to Texter implementations. They are bound
// to the destination writer, so piping to a file produces plain text.
type Styles struct {
	Key    lipgloss.Style
	Header lipgloss.Style
	Muted  lipgloss.Style
	Warn   lipgloss.Style
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - yaml
// - text
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case YAML:
		return WriteYAML(w, v)
	case Text:
		return WriteText(w, v)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func WriteText(w io.Writer, v any) error {
	t, ok := v.(Texter)
	if !ok {
		return WriteYAML(w, v)
	}
	out := t.Text(NewStyles(w))
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := io.WriteString(w, out)
	return err
}

// NewStyles builds styles for w. NO_COLOR (and a non-terminal w) disables colour.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	if termenv.EnvNoColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		Key:    r.NewStyle().Bold(true),
		Header: r.NewStyle().Bold(true).Underline(true),
		Muted:  r.NewStyle().Faint(true),
		Warn:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "160", Dark: "203"}),
	}
}

// KV is an ordered list of label/value pairs rendered as an aligned block.
type KV [][2]string

func (kv KV) Text(st Styles) string {
	width := 0
	for _, p := range kv {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for _, p := range kv {
		label := p[0] + ":" + strings.Repeat(" ", width-len(p[0]))
		b.WriteString(st.Key.Render(label))
		b.WriteString(" ")
		b.WriteString(p[1])
		b.WriteString("\n")
	}
	return b.String()
}

// Table renders rows under a header with columns padded to the widest cell.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t Table) Text(st Styles) string {
	widths := make([]int, len(t.Header))
	measure := func(row []string) {
		for i, c := range row {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}
	measure(t.Header)
	for _, r := range t.Rows {
		measure(r)
	}
	line := func(row []string, style lipgloss.Style) string {
		cells := make([]string, 0, len(widths))
		for i := range widths {
			c := ""
			if i < len(row) {
				c = row[i]
			}
			pad := widths[i] - lipgloss.Width(c)
			if i == len(widths)-1 {
				pad = 0
			}
			cells = append(cells, style.Render(c)+strings.Repeat(" ", pad))
		}
		return strings.Join(cells, "  ")
	}
	var b strings.Builder
	b.WriteString(line(t.Header, st.Header))
	b.WriteString("\n")
	if len(t.Rows) == 0 {
		b.WriteString(st.Muted.Render("(none)"))
		b.WriteString("\n")
	}
	for _, r := range t.Rows {
		b.WriteString(line(r, lipgloss.NewStyle()))
		b.WriteString("\n")
	}
	return b.String()
}
