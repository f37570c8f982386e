// Package db opens the gorm connection and applies schema migrations.
package db

import (
	"fmt"
	"regexp"
	"time"

	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var passwordPattern = regexp.MustCompile(`(password=)(\S+)`)

// Open connects using the configured driver, retrying while Postgres starts up.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log := logger.WithComponent("db")
	gcfg := &gorm.Config{Logger: logger.NewGormLogger(cfg.Debug)}

	var dialector gorm.Dialector
	target := cfg.SQLitePath
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres", "":
		target = MaskDSN(cfg.DSN())
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	var conn *gorm.DB
	var err error
	for i := 1; i <= 5; i++ {
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Msg("database connection failed, retrying")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info().Str("driver", cfg.Driver).Str("target", target).Msg("database connected")
	return conn, nil
}

// MaskDSN hides the password of a key=value DSN.
func MaskDSN(dsn string) string {
	return passwordPattern.ReplaceAllString(dsn, `${1}***`)
}
