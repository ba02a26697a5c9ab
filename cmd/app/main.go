package main

import (
	"flag"
	"log"
	"os"

	"AstraMind/internal/di"
	"AstraMind/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}

	log.Printf("env=%s regime=%s passes=%d", cfg.Environment, cfg.Gating.Regime, cfg.Uncertainty.Passes)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Blocks until SIGINT or SIGTERM.
	return app.Run()
}
