package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vokal-ai/vokal/pkg/audio"
	"github.com/vokal-ai/vokal/pkg/runner"
	"github.com/vokal-ai/vokal/pkg/vokal"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := vokal.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config_load_failed", "path", *configPath, "error", err.Error())
		os.Exit(1)
	}

	if err := audio.Init(); err != nil {
		slog.Error("audio_init_failed", "error", err.Error())
		os.Exit(1)
	}
	defer audio.Terminate()

	engine, err := vokal.NewEngine(vokal.EngineOptions{Config: cfg})
	if err != nil {
		slog.Error("engine_init_failed", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	life := runner.NewLifecycle(engine, runner.Hooks{
		OnStart: func() { slog.Info("vokal_started") },
		OnStop:  func() { slog.Info("vokal_stopped") },
	}, 10*time.Second)

	go func() {
		defer cancel()
		if err := engine.Run(ctx); err != nil {
			slog.Error("conversation_ended", "error", err.Error())
		}
	}()

	if err := life.Run(ctx); err != nil {
		slog.Warn("shutdown_incomplete", "error", err.Error())
	}
}
