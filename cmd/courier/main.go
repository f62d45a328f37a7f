package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casualjim/courier/internal/config"
	"github.com/casualjim/courier/internal/sim"
	"github.com/casualjim/courier/pkg/slogx"
	_ "github.com/joho/godotenv/autoload"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	configPath := flag.String("config", "", "path to the configuration file (yaml, json or toml)")
	debug := flag.Bool("debug", os.Getenv("COURIER_DEBUG") != "", "enable debug logging")
	flag.Parse()

	setupLogging(*debug)
	if err := run(*configPath); err != nil {
		slog.Error("courier failed", slogx.Error(err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		pp.Default.SetColoringEnabled(false)
		slog.Debug("configuration loaded", slog.String("config", pp.Sprint(cfg)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := sim.New(cfg, slog.Default())
	if err != nil {
		return err
	}
	report, runErr := s.Run(ctx)

	if err := writeReport(cfg.Output, report); err != nil {
		return err
	}
	report.WriteSummary(os.Stderr)
	return runErr
}

func writeReport(path string, report *sim.Report) error {
	if path == "" {
		return report.WriteJSON(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	slog.Info("report written", slog.String("path", path))
	return nil
}
