// Package cli implements the invoicectl maintenance commands.
package cli

import (
	"fmt"

	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/db"
	"github.com/diewo77/devinvoice/internal/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "0.1.0"

// Opener returns the database the commands operate on.
type Opener func(cfg *config.Config) (*gorm.DB, error)

// OpenDatabase connects with the configured driver.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	return db.Open(cfg.Database)
}

// env is the state shared by subcommands once the root has connected.
type env struct {
	cfg  *config.Config
	conn *gorm.DB
}

// NewRootCmd builds the command tree. open is called once, before any subcommand runs.
func NewRootCmd(cfg *config.Config, open Opener) *cobra.Command {
	e := &env{cfg: cfg}
	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Maintenance commands for the invoicing service",
		Long: `invoicectl operates directly on the invoicing database.

It applies schema migrations, inspects invoice number sequences and lists or
moves invoices through their lifecycle without going through the HTTP API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			conn, err := open(e.cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			e.conn = conn
			log := logger.WithComponent("cli")
			log.Debug().Str("command", cmd.CommandPath()).Msg("database ready")
			return nil
		},
	}
	root.AddCommand(newMigrateCmd(e), newSequenceCmd(e), newInvoicesCmd(e))
	return root
}
