package cli

import (
	"fmt"

	"github.com/diewo77/devinvoice/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Long: `Apply schema migrations.

By default the schema is derived from the models. With --sql the embedded,
versioned SQL migrations are applied instead (Postgres only).`,
		Example: `  invoicectl migrate
  invoicectl migrate --sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			useSQL, _ := cmd.Flags().GetBool("sql")
			mode := db.MigrateAuto
			if useSQL {
				mode = db.MigrateSQL
			}
			if err := db.Apply(e.conn, mode, e.cfg.Database); err != nil {
				return err
			}
			if mode == db.MigrateSQL {
				v, dirty, err := db.SQLMigrationVersion(e.cfg.Database.URL())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (sql, version %d, dirty %t)\n", v, dirty)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", mode)
			return nil
		},
	}
	cmd.Flags().Bool("sql", false, "Apply the versioned SQL migrations")
	return cmd
}
