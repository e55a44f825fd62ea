package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"transcribe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity to the API, auth provider, and notification topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Config", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Path", statusInfo, ctx.configPath, colorize))
			fmt.Fprintln(out, renderStatusLine("Exists", statusInfo, yesNo(ctx.configExists), colorize))
			fmt.Fprintln(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
