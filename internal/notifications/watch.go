package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"transcribe/internal/config"
	"transcribe/internal/jobs"
	"transcribe/internal/logging"
)

// Toggles selects which outcomes produce a notification.
type Toggles struct {
	Completed bool
	Failed    bool
}

// TogglesFrom reads the toggles from cfg.
func TogglesFrom(cfg *config.Config) Toggles {
	if cfg == nil {
		return Toggles{Completed: true, Failed: true}
	}
	return Toggles{Completed: cfg.Notifications.Completed, Failed: cfg.Notifications.Failed}
}

// Watcher notifies when a job transitions into a terminal status.
type Watcher struct {
	svc     Service
	toggles Toggles
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	seen   map[string]jobs.Status
	primed bool
}

// NewWatcher creates a watcher; call Observe with each snapshot.
func NewWatcher(svc Service, toggles Toggles, logger *slog.Logger) *Watcher {
	if svc == nil {
		svc = noopService{}
	}
	return &Watcher{
		svc:     svc,
		toggles: toggles,
		logger:  logging.NewComponentLogger(logger, "notifications"),
		timeout: 15 * time.Second,
		seen:    make(map[string]jobs.Status),
	}
}

// Watch subscribes w to store and returns the unsubscribe function.
func (w *Watcher) Watch(store *jobs.Store) func() {
	w.Observe(store.Snapshot())
	return store.Subscribe(w.Observe)
}

// Observe diffs list against the previously seen statuses. The first
// snapshot only primes the state, so jobs already finished before the watch
// started stay silent. Jobs first seen later in a terminal state do notify.
func (w *Watcher) Observe(list jobs.Collection) {
	w.mu.Lock()
	var transitions []*jobs.Job
	next := make(map[string]jobs.Status, len(list))
	for _, job := range list {
		if job == nil {
			continue
		}
		next[job.ID] = job.Status
		if !w.primed {
			continue
		}
		prev, known := w.seen[job.ID]
		if known && prev == job.Status {
			continue
		}
		if job.Status.Terminal() {
			transitions = append(transitions, job.Clone())
		}
	}
	w.seen = next
	w.primed = true
	w.mu.Unlock()

	for _, job := range transitions {
		w.dispatch(job)
	}
}

func (w *Watcher) dispatch(job *jobs.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	var err error
	switch job.Status {
	case jobs.StatusCompleted:
		if !w.toggles.Completed {
			return
		}
		err = w.svc.NotifyJobCompleted(ctx, job)
	case jobs.StatusFailed:
		if !w.toggles.Failed {
			return
		}
		err = w.svc.NotifyJobFailed(ctx, job)
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(w.logger, "notification delivery failed", "notification_failed",
			logging.String(logging.FieldVideoID, job.ID),
			logging.String("status", string(job.Status)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "user was not alerted about job outcome"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic is reachable"),
		)
		return
	}
	w.logger.Info("job outcome notified",
		logging.String(logging.FieldVideoID, job.ID),
		logging.String("status", string(job.Status)),
	)
}
