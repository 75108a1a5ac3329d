package cli

import (
	"strings"

	"arbor-cli/internal/format"
	"arbor-cli/internal/useragent"

	"github.com/spf13/cobra"
)

type uaReport struct {
	Info      []string             `json:"info" yaml:"info"`
	Navigator *useragent.Navigator `json:"navigator" yaml:"navigator"`
}

func (r uaReport) Text(st format.Styles) string {
	if len(r.Info) == 0 {
		return st.Muted.Render("(unknown)") + "\n"
	}
	return strings.Join(r.Info, " ") + "\n"
}

func newUACmd(app *App) *cobra.Command {
	var ua, chUA, chPlatform string

	cmd := &cobra.Command{
		Use:   "ua",
		Short: "Reduce a user agent to browser/version and OS tokens (this binary's when no flags)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var nav *useragent.Navigator
			if cmd.Flags().Changed("ua") || cmd.Flags().Changed("ch-ua") || cmd.Flags().Changed("ch-platform") {
				nav = useragent.FromHeaders(ua, chUA, chPlatform)
			} else {
				nav = useragent.DefaultNavigator()
			}
			return writeOut(cmd, app, uaReport{Info: useragent.Info(nav), Navigator: nav})
		},
	}
	cmd.Flags().StringVar(&ua, "ua", "", "User-Agent header")
	cmd.Flags().StringVar(&chUA, "ch-ua", "", "Sec-CH-UA header")
	cmd.Flags().StringVar(&chPlatform, "ch-platform", "", "Sec-CH-UA-Platform header")
	return cmd
}
