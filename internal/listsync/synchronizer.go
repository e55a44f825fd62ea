package listsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"transcribe/internal/broadcast"
	"transcribe/internal/config"
	"transcribe/internal/errclass"
	"transcribe/internal/jobs"
	"transcribe/internal/logging"
	"transcribe/internal/metrics"
	"transcribe/internal/schedule"
)

// Lister fetches the full job collection.
type Lister interface {
	ListVideos(ctx context.Context) (jobs.Collection, error)
}

// Config controls refresh timing.
type Config struct {
	Interval   time.Duration
	RetryBase  time.Duration
	MaxRetries int
}

// DefaultConfig returns a 3s interval and retries after 2s, 4s, and 6s.
func DefaultConfig() Config {
	return Config{Interval: 3 * time.Second, RetryBase: 2 * time.Second, MaxRetries: 3}
}

// ConfigFrom reads the [sync] section.
func ConfigFrom(cfg *config.Config) Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	if d := cfg.SyncInterval(); d > 0 {
		out.Interval = d
	}
	if d := cfg.RetryBase(); d > 0 {
		out.RetryBase = d
	}
	if cfg.Sync.MaxRetries >= 0 {
		out.MaxRetries = cfg.Sync.MaxRetries
	}
	return out
}

// State is the list view's observable state.
type State struct {
	Jobs    jobs.Collection
	Loading bool
	// Err is the last surfaced failure; Message is its user-facing text.
	Err     error
	Message string
	Retries int
}

// Option customises a Synchronizer.
type Option func(*Synchronizer)

// WithScheduler overrides the timer source.
func WithScheduler(s schedule.Scheduler) Option {
	return func(sy *Synchronizer) {
		if s != nil {
			sy.sched = s
		}
	}
}

// WithConfig overrides timing.
func WithConfig(cfg Config) Option {
	return func(sy *Synchronizer) { sy.cfg = cfg }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sy *Synchronizer) { sy.logger = logger }
}

// WithRatings subscribes the synchronizer to rating changes while running.
func WithRatings(bus *broadcast.Bus[broadcast.RatingChanged]) Option {
	return func(sy *Synchronizer) { sy.ratings = bus }
}

// Synchronizer drives periodic list refreshes into a store.
type Synchronizer struct {
	api     Lister
	store   *jobs.Store
	sched   schedule.Scheduler
	cfg     Config
	logger  *slog.Logger
	ratings *broadcast.Bus[broadcast.RatingChanged]
	changes *broadcast.Bus[State]
	flight  singleflight.Group

	mu      sync.Mutex
	running bool
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  schedule.Timer
	retry   schedule.Timer
	retries int
	loading bool
	err     error
	unsub   func()
}

// New builds a Synchronizer writing into store.
func New(api Lister, store *jobs.Store, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		api:     api,
		store:   store,
		sched:   schedule.Real(),
		cfg:     DefaultConfig(),
		changes: broadcast.New[State](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = jobs.NewStore()
	}
	s.logger = logging.NewComponentLogger(s.logger, "listsync")
	return s
}

// Store returns the backing store.
func (s *Synchronizer) Store() *jobs.Store {
	return s.store
}

// Running reports whether the periodic refresh is active.
func (s *Synchronizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// State returns a snapshot of the list state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Synchronizer) stateLocked() State {
	st := State{
		Jobs:    s.store.Snapshot(),
		Loading: s.loading,
		Err:     s.err,
		Retries: s.retries,
	}
	if s.err != nil {
		st.Message = errclass.ToUserMessage(s.err)
	}
	return st
}

// Subscribe registers fn for state changes (loading, error, or jobs).
func (s *Synchronizer) Subscribe(fn func(State)) func() {
	return s.changes.Subscribe(fn)
}

func (s *Synchronizer) publish() {
	s.changes.Publish(s.State())
}

// Start fetches immediately on the caller's goroutine and then every
// Interval until Stop. Calling Start while running is a no-op.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.gen++
	gen := s.gen
	s.ctx, s.cancel = context.WithCancel(ctx)
	if s.ratings != nil {
		s.unsub = s.ratings.Subscribe(func(ev broadcast.RatingChanged) {
			s.ApplyExternalPatch(ev.VideoID, jobs.RatingPatch(ev.Rating))
		})
	}
	s.mu.Unlock()

	s.logger.Info("list sync started",
		logging.Duration("interval", s.cfg.Interval),
		logging.Int("max_retries", s.cfg.MaxRetries),
	)
	s.tick(gen)
}

// Stop cancels the periodic timer, any pending retry, and any in-flight
// request. It is idempotent.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.gen++
	s.stopTimersLocked()
	cancel := s.cancel
	unsub := s.unsub
	s.unsub = nil
	s.loading = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	s.logger.Info("list sync stopped")
}

func (s *Synchronizer) stopTimersLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

// tick re-arms the periodic timer first so a slow fetch never delays the
// next tick, then fetches unless a backoff retry owns the schedule.
func (s *Synchronizer) tick(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.ticker = s.sched.AfterFunc(s.cfg.Interval, func() { s.tick(gen) })
	if s.retry != nil {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	_ = s.fetch(ctx, false)
}

func (s *Synchronizer) runRetry(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.retry = nil
	ctx := s.ctx
	s.mu.Unlock()

	_ = s.fetch(ctx, false)
}

// Refetch performs a manual fetch and asserts the loading flag. Concurrent
// calls share one request. It works whether or not the synchronizer is
// running.
func (s *Synchronizer) Refetch(ctx context.Context) error {
	return s.fetch(ctx, true)
}

func (s *Synchronizer) fetch(ctx context.Context, manual bool) error {
	s.mu.Lock()
	showLoading := manual || len(s.store.Snapshot()) == 0
	changed := showLoading && !s.loading
	if showLoading {
		s.loading = true
	}
	s.mu.Unlock()
	if changed {
		s.publish()
	}

	_, err, _ := s.flight.Do("list", func() (any, error) {
		return nil, s.fetchOnce(ctx)
	})
	return err
}

// fetchOnce runs one request and applies its outcome. Results from a
// generation that has since been stopped are dropped.
func (s *Synchronizer) fetchOnce(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	list, err := s.api.ListVideos(ctx)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.handleFailureLocked(ctx, gen, err)
		s.mu.Unlock()
		s.publish()
		return err
	}
	s.retries = 0
	s.err = nil
	s.loading = false
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()

	changed := s.store.Reconcile(list)
	if changed {
		metrics.ListFetchesTotal.WithLabelValues("changed").Inc()
		counts := make(map[string]int)
		for status, n := range jobs.CountByStatus(list) {
			counts[string(status)] = n
		}
		metrics.SetJobCounts(counts, jobs.TimeSaved(list))
		s.logger.Debug("job list changed", logging.Int("jobs", len(list)))
	} else {
		metrics.ListFetchesTotal.WithLabelValues("unchanged").Inc()
	}
	s.publish()
	return nil
}

func (s *Synchronizer) handleFailureLocked(ctx context.Context, gen uint64, err error) {
	s.loading = false
	metrics.ListFetchesTotal.WithLabelValues("error").Inc()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}
	cls := errclass.Classify(err)
	if cls.IsNetwork && s.running && s.retries < s.cfg.MaxRetries {
		delay := s.cfg.RetryBase * time.Duration(s.retries+1)
		s.retries++
		if s.retry != nil {
			s.retry.Stop()
		}
		s.retry = s.sched.AfterFunc(delay, func() { s.runRetry(gen) })
		metrics.ObserveRetry(s.retries)
		s.logger.Info("job list fetch failed, retrying",
			logging.Int(logging.FieldAttempt, s.retries),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		return
	}
	s.err = err
	logging.WarnWithContext(s.logger, "job list fetch failed", "list_fetch_failed",
		logging.Error(err),
		logging.Int("retries", s.retries),
		logging.Bool("network", cls.IsNetwork),
		logging.Bool("auth", cls.IsAuth),
		logging.String(logging.FieldErrorHint, "check the API base url and session"),
		logging.String(logging.FieldImpact, "job list shows last known state"),
	)
}

// ApplyExternalPatch merges a client-originated change, such as a rating
// confirmed on the detail view, without refetching.
func (s *Synchronizer) ApplyExternalPatch(id string, patch jobs.Patch) bool {
	if !s.store.Patch(id, patch) {
		return false
	}
	s.logger.Debug("external patch applied", logging.String(logging.FieldVideoID, id))
	s.publish()
	return true
}

// DismissError clears the surfaced list error.
func (s *Synchronizer) DismissError() {
	s.mu.Lock()
	had := s.err != nil
	s.err = nil
	s.mu.Unlock()
	if had {
		s.publish()
	}
}
