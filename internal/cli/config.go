package cli

import (
	"fmt"

	"arbor-cli/internal/config"
	"arbor-cli/internal/format"

	"github.com/spf13/cobra"
)

type configView struct {
	config.Config `yaml:",inline"`
	Dir           string `json:"configDir" yaml:"configDir"`
}

func (v configView) Text(st format.Styles) string {
	file := v.File
	if file == "" {
		file = st.Muted.Render("(defaults)")
	}
	return format.KV{
		{"file", file},
		{"configDir", v.Dir},
		{"dataDir", v.DataDir},
		{"log.level", v.Log.Level},
		{"log.file", v.Log.File},
		{"tui.glyphs", v.TUI.Glyphs},
		{"tui.showArchived", fmt.Sprint(v.TUI.ShowArchived)},
		{"tui.focusedView", fmt.Sprint(v.TUI.FocusedView)},
		{"watch.pollInterval", v.Watch.PollInterval.String()},
		{"watch.forcePoll", fmt.Sprint(v.Watch.ForcePoll)},
	}.Text(st)
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file, ARBOR_* env, and flags applied)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.Dir()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, configView{Config: *app.cfg, Dir: dir})
		},
	})
	return cmd
}
