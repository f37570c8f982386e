package db

import (
	"fmt"

	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/models"
	"gorm.io/gorm"
)

// Migration modes accepted by Apply.
const (
	MigrateAuto = "auto"
	MigrateSQL  = "sql"
	MigrateOff  = "off"
)

// Models lists every table the application owns, parents first.
func Models() []any {
	return []any{
		&models.User{},
		&models.Client{},
		&models.Invoice{},
		&models.LineItem{},
		&models.NumberSequenceBucket{},
	}
}

// Migrate runs AutoMigrate for all models.
// Call this at application startup or as part of a migration step.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Apply migrates the schema according to mode. Versioned SQL files are
// written for Postgres only.
func Apply(conn *gorm.DB, mode string, cfg config.DatabaseConfig) error {
	switch mode {
	case "", MigrateAuto:
		return Migrate(conn)
	case MigrateSQL:
		if cfg.Driver == "sqlite" {
			return fmt.Errorf("sql migrations require postgres, driver is %q", cfg.Driver)
		}
		return RunSQLMigrations(cfg.URL())
	case MigrateOff:
		return nil
	default:
		return fmt.Errorf("unknown migration mode %q", mode)
	}
}
