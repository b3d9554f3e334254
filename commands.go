package main

import (
	"careerai/app/api"
	"careerai/app/mcptool"
	"careerai/app/service/advisor"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		di, cfg, err := setup(ctx)
		if err != nil {
			return err
		}
		defer shutdown(di)

		stopTracing := startTelemetry(ctx, cfg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stopTracing(shutdownCtx); err != nil {
				slog.Warn("Tracing shutdown failed", "error", err)
			}
		}()

		server, err := do.Invoke[*api.Server](di)
		if err != nil {
			return fmt.Errorf("failed to start api: %w", err)
		}
		providersStatus(di)

		slog.Info("Service started")

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return server.Run(groupCtx)
		})

		return group.Wait()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the career tools over MCP stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		di, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown(di)

		server, err := do.Invoke[*mcptool.Server](di)
		if err != nil {
			return fmt.Errorf("failed to start mcp server: %w", err)
		}
		providersStatus(di)

		return server.ServeStdio()
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Print a single reply to a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		di, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown(di)

		service, err := do.Invoke[*advisor.Service](di)
		if err != nil {
			return err
		}

		reply, err := service.GenerateReply(cmd.Context(), strings.Join(args, " "), nil)
		if errors.Is(err, advisor.ErrUnavailable) {
			return errors.New(advisor.UnavailableMessage(err))
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), reply.Reply)
		return nil
	},
}
