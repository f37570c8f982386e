package main

import (
	"fmt"
	"os"

	"github.com/diewo77/devinvoice/internal/cli"
	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if err := logger.Setup(cfg.Log); err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.NewRootCmd(cfg, cli.OpenDatabase).Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
