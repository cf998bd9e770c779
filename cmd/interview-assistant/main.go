// Command interview-assistant runs the interview assistance core: it captures
// system audio, streams it to the transcription provider, and submits quiet
// transcript spans to the configured chat model.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nohairblingbling/interview-assistant/internal/app"
	"github.com/nohairblingbling/interview-assistant/internal/capture"
	"github.com/nohairblingbling/interview-assistant/internal/config"
	"github.com/nohairblingbling/interview-assistant/pkg/audio"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	captureWAV := flag.String("capture-wav", "", "replay a WAV file as the audio source instead of a live device")
	record := flag.Bool("record", false, "start audio capture immediately")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "interview-assistant: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "interview-assistant: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("interview-assistant starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	providers, err := app.BuildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	if *captureWAV != "" {
		path := *captureWAV
		opts = append(opts, app.WithSourceFactory(func(context.Context) (capture.Source, error) {
			return audio.OpenWAV(path)
		}))
		slog.Info("using WAV replay source", "path", path)
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if *record {
		if err := application.Interview.StartCapture(ctx); err != nil {
			slog.Error("failed to start capture", "err", err)
		}
	}

	slog.Info("ready, press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔════════════════════════════════════════════╗")
	fmt.Println("║    interview-assistant / startup summary   ║")
	fmt.Println("╠════════════════════════════════════════════╣")
	printLine("Chat", summarizeChat(cfg.Chat))
	printLine("Transcription", summarizeTranscription(cfg.Transcription))
	printLine("Storage", cfg.Storage.Path)
	printLine("Auto-submit", fmt.Sprintf("%v (%d ms)", cfg.Assistant.AutoSubmit, cfg.Assistant.QuietPeriodMS))
	printLine("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚════════════════════════════════════════════╝")
}

func printLine(key, value string) {
	fmt.Printf("║  %-13s: %-26s ║\n", key, value)
}

func summarizeChat(cc config.ChatConfig) string {
	if !cc.Configured() {
		return "(not configured)"
	}
	return fmt.Sprintf("%s / %s (%s)", cc.Provider, cc.Model, cc.CallMethod)
}

func summarizeTranscription(tc config.TranscriptionConfig) string {
	if tc.APIKey == "" {
		return "(not configured)"
	}
	if tc.SecondaryLanguage != "" {
		return fmt.Sprintf("deepgram, %s+%s", tc.PrimaryLanguage, tc.SecondaryLanguage)
	}
	return "deepgram, " + tc.PrimaryLanguage
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
