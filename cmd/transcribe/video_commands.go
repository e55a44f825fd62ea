package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"transcribe/internal/errclass"
	"transcribe/internal/jobs"
	"transcribe/internal/logging"
	"transcribe/internal/services"
	"transcribe/internal/snapshotcache"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "add <youtube-url>",
		Short: "Submit a YouTube video for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := client.AddVideo(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s (%s)\n", job.ID, jobs.StatusText(job))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type listOptions struct {
	sort    string
	order   string
	status  string
	asJSON  bool
	offline bool
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transcription jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := jobs.ParseSortKey(opts.sort)
			if !ok {
				return fmt.Errorf("invalid --sort %q (use created_at, rating or duration)", opts.sort)
			}
			order, ok := jobs.ParseOrder(opts.order)
			if !ok {
				return fmt.Errorf("invalid --order %q (use asc or desc)", opts.order)
			}
			var filter jobs.Status
			if opts.status != "" {
				if filter, ok = jobs.ParseStatus(opts.status); !ok {
					return fmt.Errorf("invalid --status %q", opts.status)
				}
			}

			list, fetchedAt, err := ctx.loadList(cmd.Context(), opts.offline)
			if err != nil {
				return err
			}
			list = jobs.Sort(list, key, order)
			if filter != "" {
				filtered := make(jobs.Collection, 0, len(list))
				for _, job := range list {
					if job.Status == filter {
						filtered = append(filtered, job)
					}
				}
				list = filtered
			}

			if opts.asJSON {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if !fetchedAt.IsZero() {
				fmt.Fprintf(out, "Cached snapshot from %s\n", fetchedAt.Local().Format("02.01.2006 15:04"))
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No videos yet. Add one with `transcribe add <url>`.")
				return nil
			}
			fmt.Fprintln(out, renderJobTable(list, time.Now(), shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.sort, "sort", "created_at", "Sort by created_at, rating or duration")
	cmd.Flags().StringVar(&opts.order, "order", "desc", "Sort order: asc or desc")
	cmd.Flags().StringVar(&opts.status, "status", "", "Only show jobs with this status")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Read the cached snapshot without contacting the API")
	return cmd
}

// loadList fetches the job list and refreshes the snapshot cache. On a
// network failure, or with offline set, the cached snapshot is returned
// together with the time it was taken; a live result has a zero time.
func (c *commandContext) loadList(ctx context.Context, offline bool) (jobs.Collection, time.Time, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, time.Time{}, err
	}
	cache, cacheErr := snapshotcache.OpenFromConfig(ctx, cfg)
	if cacheErr == nil {
		defer cache.Close()
	} else if !errors.Is(cacheErr, snapshotcache.ErrDisabled) {
		logging.WarnWithContext(c.log(), "snapshot cache unavailable", "snapshot_open_failed",
			logging.Error(cacheErr),
			logging.String(logging.FieldImpact, "offline listing disabled for this run"),
		)
		cache = nil
	}

	if offline {
		if cache == nil {
			return nil, time.Time{}, errors.New("snapshot cache is disabled; enable [cache] to use --offline")
		}
		list, at, err := cache.Load(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		if at.IsZero() {
			return nil, time.Time{}, errors.New("snapshot cache is empty; run `transcribe list` while online first")
		}
		return list, at, nil
	}

	client, err := c.apiClient()
	if err != nil {
		return nil, time.Time{}, err
	}
	list, err := client.ListVideos(ctx)
	if err != nil {
		if cache != nil && errors.Is(err, services.ErrNetwork) {
			cached, at, loadErr := cache.Load(ctx)
			if loadErr == nil && !at.IsZero() {
				return cached, at, nil
			}
		}
		return nil, time.Time{}, err
	}
	if cache != nil {
		if err := cache.Save(ctx, list, time.Now()); err != nil {
			logging.WarnWithContext(c.log(), "snapshot cache write failed", "snapshot_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "offline listing may be stale"),
			)
		}
	}
	return list, time.Time{}, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func durationCell(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return jobs.FormatDuration(seconds)
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <id>...",
		Short: "Show lightweight status for one or more jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			infos, err := client.StatusBatch(cmd.Context(), args)
			if err != nil {
				return err
			}
			if asJSON {
				ordered := make([]any, 0, len(args))
				for _, id := range args {
					ordered = append(ordered, infos[id])
				}
				return writeJSON(cmd, ordered)
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			rows := make([][]string, 0, len(args))
			for _, id := range args {
				info := infos[id]
				if info == nil {
					continue
				}
				job := &jobs.Job{ID: id, Status: info.Status, ProcessingStage: info.ProcessingStage}
				rows = append(rows, []string{id, colorJobStatus(job, colorize), string(info.Status), info.Error})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(statusColumns, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON, withTranscript bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job with its insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := client.GetVideo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, job)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderJobDetail(job, withTranscript, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&withTranscript, "transcript", false, "Include the full transcript")
	return cmd
}

func renderJobDetail(job *jobs.Job, withTranscript, colorize bool) []string {
	lines := renderSectionHeader(displayTitle(job), colorize)
	lines = append(lines,
		fmt.Sprintf("ID:       %s", job.ID),
		fmt.Sprintf("URL:      %s", job.URL),
		fmt.Sprintf("Channel:  %s", orDash(job.Channel)),
		fmt.Sprintf("Status:   %s", colorJobStatus(job, colorize)),
		fmt.Sprintf("Duration: %s", durationCell(job.Duration)),
		fmt.Sprintf("Rating:   %s", ratingStars(job.Rating)),
	)
	if job.Error != "" {
		lines = append(lines, fmt.Sprintf("Error:    %s", errclass.Translate(job.Error)))
	}
	lines = append(lines, "")
	lines = append(lines, renderInsights(job.Insights, colorize)...)
	if withTranscript && job.Transcript != "" {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Transcript", colorize)...)
		lines = append(lines, job.Transcript)
	}
	return lines
}

func renderInsights(insights *jobs.Insights, colorize bool) []string {
	lines := renderSectionHeader("Insights", colorize)
	switch {
	case insights == nil:
		return append(lines, "Insights not generated yet")
	case insights.Error != "":
		return append(lines, errclass.Translate(insights.Error))
	}
	content := insights.Content()
	if content == "" {
		return append(lines, "Insights not generated yet")
	}
	for _, section := range jobs.SplitSections(content) {
		if section.Title != "" {
			lines = append(lines, "# "+section.Title)
		}
		lines = append(lines, strings.TrimSpace(section.Body))
	}
	return lines
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <0-5>",
		Short: "Rate a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return services.Markf(services.ErrValidation, "rating must be a number between 0 and 5")
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.SetRating(cmd.Context(), args[0], rating); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rated %s: %s\n", args[0], ratingStars(rating))
			return nil
		},
	}
}
