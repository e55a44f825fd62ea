package main

import (
	"github.com/spf13/cobra"

	"transcribe/internal/broadcast"
	"transcribe/internal/detail"
	"transcribe/internal/jobs"
	"transcribe/internal/listsync"
	"transcribe/internal/polling"
	"transcribe/internal/tui"
)

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Open the interactive job dashboard",
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
			ratings := broadcast.New[broadcast.RatingChanged]()
			syncer := listsync.New(client, jobs.NewStore(),
				listsync.WithConfig(listsync.ConfigFrom(cfg)),
				listsync.WithRatings(ratings),
				listsync.WithLogger(logger),
			)
			ctrl := detail.New(client,
				detail.WithRatings(ratings),
				detail.WithPollingOptions(polling.WithConfig(polling.ConfigFrom(cfg))),
				detail.WithLogger(logger),
			)
			return tui.Run(cmd.Context(), tui.Deps{Sync: syncer, Detail: ctrl, Submit: client})
		},
	}
}
