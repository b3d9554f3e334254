package main

import (
	"careerai/app/api"
	"careerai/app/client/gemini"
	"careerai/app/client/openai"
	"careerai/app/config"
	"careerai/app/mcptool"
	"careerai/app/service/advisor"
	"careerai/app/service/assessment"
	"careerai/app/service/profile"
	"careerai/app/service/prompt"
	"careerai/app/service/provider"
	"careerai/app/service/roadmap"
	"careerai/app/util/mylog"
	"careerai/app/util/telemetry"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "careerai",
	Short:         "Career guidance assistant backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	mylog.Preinit()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(askCmd)
}

// setup loads config, configures logging and registers every service.
func setup(ctx context.Context) (*do.Injector, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}

	if err = mylog.Init(cfg); err != nil {
		return nil, nil, fmt.Errorf("logging init failed: %w", err)
	}

	di := do.New()
	do.ProvideValue(di, ctx)
	do.ProvideValue(di, cfg)

	do.Provide(di, gemini.New)
	do.Provide(di, openai.New)
	do.Provide(di, profile.New)
	do.Provide(di, prompt.New)
	do.Provide(di, provider.New)
	do.Provide(di, advisor.New)
	do.Provide(di, assessment.New)
	do.Provide(di, roadmap.New)
	do.Provide(di, api.New)
	do.Provide(di, mcptool.New)

	return di, cfg, nil
}

func shutdown(di *do.Injector) {
	slog.Info("Waiting for services to finish...")
	if err := di.Shutdown(); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

func providersStatus(di *do.Injector) {
	if !do.MustInvoke[*advisor.Service](di).Available() {
		slog.Warn("No AI provider is configured, chat replies will be unavailable")
	}
}

func startTelemetry(ctx context.Context, cfg *config.Config) telemetry.Shutdown {
	stop, err := telemetry.Setup(ctx, &cfg.Telemetry)
	if err != nil {
		slog.Warn("Tracing setup failed, continuing without it", "error", err)
		return func(context.Context) error { return nil }
	}
	return stop
}
