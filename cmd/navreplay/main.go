package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fileprediction/internal/config"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/eventlog"
	"github.com/GriffinCanCode/fileprediction/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fileprediction/internal/replay"
)

func main() {
	cfg := config.LoadOrDefault()

	script := flag.String("script", "", "Replay script (.yaml, .yml or .toml)")
	seed := flag.Int64("seed", -1, "Override the script seed (negative keeps the script's)")
	flag.StringVar(&cfg.EventLog.Driver, "events", cfg.EventLog.Driver, "Event log driver (jsonl, sqlite, discard)")
	flag.StringVar(&cfg.EventLog.Path, "events-path", cfg.EventLog.Path, "Event log location")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	if *script == "" {
		flag.Usage()
		os.Exit(2)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	logCfg.Service = "navreplay"
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	s, err := replay.Load(*script)
	if err != nil {
		logger.Fatal("failed to load script", zap.String("script", *script), zap.Error(err))
	}
	if *seed >= 0 {
		v := uint64(*seed)
		s.Seed = &v
		s.Draws = nil
	}

	store, err := eventlog.NewFromConfig(cfg.EventLog.Driver, cfg.EventLog.Path)
	if err != nil {
		logger.Fatal("failed to open event log", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := replay.NewRunner(cfg, store, nil, logger.Component("replay")).Run(ctx, s)
	if err != nil {
		logger.Error("replay failed", zap.Error(err))
		return
	}

	out, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", zap.Error(err))
		return
	}
	fmt.Println(string(out))
}
