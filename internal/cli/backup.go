package cli

import (
	"github.com/spf13/cobra"
)

func newBackupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dest>",
		Short: "Write a consistent copy of the local database to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := db.Backup(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			app.log.WithField("dest", args[0]).Info("backup written")
			return writeOut(cmd, app, map[string]any{"backup": args[0]})
		},
	}
}
