package main

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"transcribe/internal/mcptools"
	"transcribe/internal/polling"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve transcription tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			logger := ctx.log()
			poller := polling.New(client,
				polling.WithConfig(polling.ConfigFrom(cfg)),
				polling.WithLogger(logger),
			)
			mcpServer := mcptools.NewServer(mcptools.Deps{API: client, Poller: poller, Logger: logger}, version)
			stdio := server.NewStdioServer(mcpServer)
			if err := stdio.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
