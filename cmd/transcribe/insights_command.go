package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"transcribe/internal/detail"
	"transcribe/internal/polling"
	"transcribe/internal/services"
)

func newInsightsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Generate AI insights for a transcribed video",
	}
	cmd.AddCommand(newInsightsRunCommand(ctx, polling.ModeInitial))
	cmd.AddCommand(newInsightsRunCommand(ctx, polling.ModeRegenerate))
	return cmd
}

func newInsightsRunCommand(ctx *commandContext, mode polling.Mode) *cobra.Command {
	use, short := "generate <id>", "Generate insights and wait for them"
	if mode == polling.ModeRegenerate {
		use, short = "regenerate <id>", "Regenerate insights, keeping the previous ones on failure"
	}
	var noWait bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			ctrl := detail.New(client,
				detail.WithLogger(ctx.log()),
				detail.WithPollingOptions(polling.WithConfig(polling.ConfigFrom(cfg))),
			)
			defer ctrl.Close()

			if err := ctrl.Load(cmd.Context(), args[0]); err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			var (
				mu   sync.Mutex
				last int
			)
			unsub := ctrl.Subscribe(func(v detail.View) {
				if v.Progress == nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if v.Progress.Attempt == last {
					return
				}
				last = v.Progress.Attempt
				fmt.Fprintf(errOut, "  attempt %d/%d (%d%%)\n", v.Progress.Attempt, v.Progress.MaxAttempts, v.Progress.Percent)
			})
			defer unsub()

			if !noWait {
				fmt.Fprintf(errOut, "Waiting for insights (%s)...\n", mode)
			}
			session, err := ctrl.StartInsights(cmd.Context(), mode)
			if err != nil {
				if errors.Is(err, services.ErrValidation) {
					return errors.New("transcript is not ready yet; insights can be generated once transcription completes")
				}
				return err
			}
			if session == nil {
				return errors.New("insight generation did not start")
			}
			out := cmd.OutOrStdout()
			if noWait {
				fmt.Fprintf(out, "Insight generation requested for %s\n", args[0])
				return nil
			}
			result, err := session.Wait(cmd.Context())
			if err != nil {
				return err
			}
			if result.State != polling.StateCompleted {
				if result.Message != "" {
					return errors.New(result.Message)
				}
				return fmt.Errorf("insight generation ended: %s", result.State)
			}
			view := ctrl.View()
			job := view.Job
			if result.Job != nil {
				job = result.Job
			}
			if job == nil {
				return nil
			}
			for _, line := range renderInsights(job.Insights, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return after the generation request is accepted")
	return cmd
}
