package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"transcribe/internal/jobs"
	"transcribe/internal/listsync"
	"transcribe/internal/logging"
	"transcribe/internal/metrics"
	"transcribe/internal/notifications"
	"transcribe/internal/snapshotcache"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow job status changes until interrupted",
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
			runCtx := cmd.Context()

			if bind := cfg.Metrics.Bind; bind != "" {
				metrics.StartServer(runCtx, bind, logger)
			}

			store := jobs.NewStore()
			cache, err := snapshotcache.OpenFromConfig(runCtx, cfg)
			switch {
			case err == nil:
				defer cache.Close()
				defer cache.Attach(store, logger)()
			case !errors.Is(err, snapshotcache.ErrDisabled):
				logging.WarnWithContext(logger, "snapshot cache unavailable", "snapshot_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "snapshots will not be persisted"),
				)
			}

			if notify {
				watcher := notifications.NewWatcher(notifications.NewService(cfg), notifications.TogglesFrom(cfg), logger)
				defer watcher.Watch(store)()
			}

			out := cmd.OutOrStdout()
			printer := newChangePrinter(out, shouldColorize(out))
			defer store.Subscribe(printer.observe)()

			syncer := listsync.New(client, store,
				listsync.WithConfig(listsync.ConfigFrom(cfg)),
				listsync.WithLogger(logger),
			)
			var (
				msgMu   sync.Mutex
				lastMsg string
			)
			defer syncer.Subscribe(func(st listsync.State) {
				msgMu.Lock()
				defer msgMu.Unlock()
				if st.Message != "" && st.Message != lastMsg {
					fmt.Fprintf(cmd.ErrOrStderr(), "! %s\n", st.Message)
				}
				lastMsg = st.Message
			})()

			syncer.Start(runCtx)
			defer syncer.Stop()
			<-runCtx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", true, "Send ntfy notifications for finished jobs")
	return cmd
}

// changePrinter writes one line per job whose status or stage changed.
type changePrinter struct {
	out      io.Writer
	colorize bool

	mu   sync.Mutex
	seen map[string]string
}

func newChangePrinter(out io.Writer, colorize bool) *changePrinter {
	return &changePrinter{out: out, colorize: colorize, seen: make(map[string]string)}
}

func (p *changePrinter) observe(list jobs.Collection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stamp := time.Now().Format("15:04:05")
	for _, job := range list {
		label := jobs.StatusText(job)
		if p.seen[job.ID] == label {
			continue
		}
		p.seen[job.ID] = label
		fmt.Fprintf(p.out, "%s  %-36s  %s  %s\n", stamp, job.ID, colorJobStatus(job, p.colorize), truncateRunes(displayTitle(job), 60))
	}
}
