package main

import (
	"fmt"
	"os"

	"github.com/storefront-dev/storefront/internal/config"
	"github.com/storefront-dev/storefront/internal/logger"
	"github.com/storefront-dev/storefront/internal/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	log.Info().
		Str("version", version).
		Str("listen_addr", cfg.Server.ListenAddr).
		Str("database", cfg.Database.URL).
		Msg("Starting identityd")

	srv, err := server.New(cfg, logger.GetLogger(), version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Shutdown complete")
}
