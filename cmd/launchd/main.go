// ====================================
// File: cmd/launchd/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/launchforge/launchpad-engine/internal/config"
	"github.com/launchforge/launchpad-engine/internal/logger"
	"github.com/launchforge/launchpad-engine/internal/service"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}

	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting launchpad engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := service.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize runner", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Error("Engine stopped with error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	runner.Shutdown(shutdownCtx)
}
