package cli

import (
	"errors"
	"os"
	"strings"

	"arbor-cli/internal/model"
	"arbor-cli/internal/nodes"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(app *App) *cobra.Command {
	var userID, localID, email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the session identity and create the user's root node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				if !isTerminal() {
					return writeErr(cmd, errors.New("missing --user (no terminal to prompt on)"))
				}
				if err := promptLogin(&userID, &email); err != nil {
					return writeErr(cmd, err)
				}
			}
			sess := &model.Session{
				UserID:  strings.TrimSpace(userID),
				LocalID: strings.TrimSpace(localID),
				Email:   strings.TrimSpace(email),
			}
			if err := app.store().SaveSession(sess); err != nil {
				return writeErr(cmd, err)
			}

			db, err := app.openDB(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			root, err := nodes.New(db, nodes.WithLogger(app.log)).EnsureRoot(cmd.Context(), sess.UserID)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.WithField("user", sess.UserID).Info("logged in")
			return writeOut(cmd, app, map[string]any{"session": sess, "rootNodeId": root.ID})
		},
	}

	cmd.Flags().StringVar(&userID, "user", envOr("ARBOR_USER", ""), "User id")
	cmd.Flags().StringVar(&localID, "local-id", "", "Local id the user's nodes are counted under (default: user id)")
	cmd.Flags().StringVar(&email, "email", "", "Email shown in status output")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session (local data is kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.store()
			if err := s.ClearSession(); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.ClearViewState(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"loggedOut": true})
		},
	}
}

func promptLogin(userID, email *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User id").
				Description("The id your nodes are stored under").
				Value(userID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("user id is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Email (optional)").
				Value(email),
		),
	).WithTheme(huh.ThemeBase())
	return form.Run()
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
