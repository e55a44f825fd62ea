package polling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"transcribe/internal/config"
	"transcribe/internal/errclass"
	"transcribe/internal/jobs"
	"transcribe/internal/logging"
	"transcribe/internal/metrics"
	"transcribe/internal/schedule"
	"transcribe/internal/services"
)

// ErrAlreadyActive is returned by Start while another session is running.
var ErrAlreadyActive = errors.New("insight generation already in progress")

// Mode selects the trigger endpoint and completion rule.
type Mode string

const (
	ModeInitial    Mode = "initial"
	ModeRegenerate Mode = "regenerate"
)

// State is a session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StatePolling
	StateCompleted
	StateTimedOut
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s ends a session.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// API is the subset of the transcription client a session needs.
type API interface {
	GetVideo(ctx context.Context, id string) (*jobs.Job, error)
	GenerateInsights(ctx context.Context, id string) error
	RegenerateInsights(ctx context.Context, id string) error
}

// Params is the attempt budget for one mode.
type Params struct {
	MaxAttempts int
	Interval    time.Duration
}

// Config holds timing for both modes.
type Config struct {
	StartDelay time.Duration
	Initial    Params
	Regenerate Params
}

// DefaultConfig returns 60x1s for initial and 90x2s for regenerate, each
// after a 1s start delay.
func DefaultConfig() Config {
	return Config{
		StartDelay: time.Second,
		Initial:    Params{MaxAttempts: 60, Interval: time.Second},
		Regenerate: Params{MaxAttempts: 90, Interval: 2 * time.Second},
	}
}

// ConfigFrom reads the [insights] section.
func ConfigFrom(cfg *config.Config) Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	ins := cfg.Insights
	if ins.StartDelayMS >= 0 {
		out.StartDelay = time.Duration(ins.StartDelayMS) * time.Millisecond
	}
	if ins.InitialAttempts > 0 {
		out.Initial.MaxAttempts = ins.InitialAttempts
	}
	if ins.InitialIntervalMS > 0 {
		out.Initial.Interval = time.Duration(ins.InitialIntervalMS) * time.Millisecond
	}
	if ins.RegenerateAttempts > 0 {
		out.Regenerate.MaxAttempts = ins.RegenerateAttempts
	}
	if ins.RegenerateIntervalMS > 0 {
		out.Regenerate.Interval = time.Duration(ins.RegenerateIntervalMS) * time.Millisecond
	}
	return out
}

func (c Config) params(mode Mode) Params {
	if mode == ModeRegenerate {
		return c.Regenerate
	}
	return c.Initial
}

// Progress is reported after each regenerate poll.
type Progress struct {
	Attempt     int
	MaxAttempts int
	Percent     int
}

func newProgress(attempt, max int) Progress {
	pct := 0
	if max > 0 {
		pct = int(math.Round(float64(attempt) / float64(max) * 100))
	}
	return Progress{Attempt: attempt, MaxAttempts: max, Percent: pct}
}

// Hooks receive session output. Any hook may be nil. Hooks never fire after
// the session is canceled.
type Hooks struct {
	OnProgress func(Progress)
	// OnRecord receives the job record that completed the session.
	OnRecord func(*jobs.Job)
	// OnRollback receives the pre-call insights (possibly nil) when a
	// regenerate session ends without completing.
	OnRollback func(*jobs.Insights)
	// OnError receives the translated message for the insights surface.
	OnError func(string)
	OnDone  func(State)
}

// Result summarizes a finished session.
type Result struct {
	State    State
	Job      *jobs.Job
	Attempts int
	// Message is the text surfaced through OnError, if any.
	Message string
	Err     error
}

// Option customises a Poller.
type Option func(*Poller)

// WithScheduler overrides the timer source.
func WithScheduler(s schedule.Scheduler) Option {
	return func(p *Poller) {
		if s != nil {
			p.sched = s
		}
	}
}

// WithConfig overrides attempt budgets and intervals.
func WithConfig(cfg Config) Option {
	return func(p *Poller) { p.cfg = cfg }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// Poller enforces one active session per owner.
type Poller struct {
	api    API
	sched  schedule.Scheduler
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	active *Session
}

// New builds a Poller over api.
func New(api API, opts ...Option) *Poller {
	p := &Poller{
		api:   api,
		sched: schedule.Real(),
		cfg:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "polling")
	return p
}

// Active reports whether a session is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

// Current returns the running session, if any.
func (p *Poller) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// State returns the running session's state, or StateIdle.
func (p *Poller) State() State {
	if s := p.Current(); s != nil {
		return s.State()
	}
	return StateIdle
}

// Cancel stops the running session without firing hooks.
func (p *Poller) Cancel() {
	if s := p.Current(); s != nil {
		s.Cancel()
	}
}

// Start triggers generation for videoID and begins polling. baseline is the
// insights shown before the call and is used only in regenerate mode. The
// trigger request runs on the caller's goroutine; its failure ends the
// session (hooks fire) and is also returned.
func (p *Poller) Start(ctx context.Context, mode Mode, videoID string, baseline *jobs.Insights, hooks Hooks) (*Session, error) {
	if mode != ModeInitial && mode != ModeRegenerate {
		return nil, fmt.Errorf("unknown polling mode %q", mode)
	}
	if videoID == "" {
		return nil, services.Markf(services.ErrValidation, "video id is required")
	}
	if mode == ModeInitial {
		baseline = nil
	} else if baseline != nil {
		cp := *baseline
		baseline = &cp
	}

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	ctx = services.WithVideoID(ctx, videoID)
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		poller:   p,
		mode:     mode,
		videoID:  videoID,
		baseline: baseline,
		params:   p.cfg.params(mode),
		hooks:    hooks,
		ctx:      sctx,
		cancel:   cancel,
		state:    StateStarting,
		alive:    true,
		done:     make(chan struct{}),
		logger: logging.WithContext(sctx, p.logger).With(
			logging.String(logging.FieldMode, string(mode)),
		),
	}
	p.active = s
	p.mu.Unlock()

	s.logger.Info("insight generation started",
		logging.Int("max_attempts", s.params.MaxAttempts),
		logging.Duration("interval", s.params.Interval),
		logging.Bool("has_baseline", baseline != nil),
	)

	var err error
	if mode == ModeRegenerate {
		err = p.api.RegenerateInsights(sctx, videoID)
	} else {
		err = p.api.GenerateInsights(sctx, videoID)
	}
	if !s.isAlive() {
		return s, context.Canceled
	}
	if err != nil {
		s.fail(failTrigger, err)
		return s, fmt.Errorf("start %s insights: %w", mode, err)
	}

	s.mu.Lock()
	if s.alive {
		s.state = StatePolling
	}
	s.mu.Unlock()
	s.schedule(p.cfg.StartDelay)
	return s, nil
}

func (p *Poller) release(s *Session) {
	p.mu.Lock()
	if p.active == s {
		p.active = nil
	}
	p.mu.Unlock()
}

// Session is one generation attempt.
type Session struct {
	poller   *Poller
	mode     Mode
	videoID  string
	baseline *jobs.Insights
	params   Params
	hooks    Hooks
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	attempt int
	alive   bool
	timer   schedule.Timer
	result  Result
	done    chan struct{}
}

// Mode returns the session mode.
func (s *Session) Mode() Mode { return s.mode }

// VideoID returns the job being polled.
func (s *Session) VideoID() string { return s.videoID }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempt returns the number of polls issued so far.
func (s *Session) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the terminal summary. It is meaningful after Done closes.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Wait blocks until the session finishes or ctx ends.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.Result(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Cancel marks the session dead, stops any scheduled poll, and aborts the
// in-flight request. No hook fires afterwards. Cancel is idempotent.
func (s *Session) Cancel() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	s.state = StateCanceled
	s.result = Result{State: StateCanceled, Attempts: s.attempt, Err: context.Canceled}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	attempts := s.attempt
	s.mu.Unlock()

	s.cancel()
	s.poller.release(s)
	metrics.PollingSessionsTotal.WithLabelValues(string(s.mode), StateCanceled.String()).Inc()
	s.logger.Info("insight generation canceled", logging.Int(logging.FieldAttempt, attempts))
	close(s.done)
}

func (s *Session) isAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *Session) schedule(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return
	}
	s.timer = s.poller.sched.AfterFunc(delay, s.poll)
}

func (s *Session) poll() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	job, err := s.poller.api.GetVideo(s.ctx, s.videoID)
	if !s.isAlive() {
		return
	}
	if err != nil {
		s.logger.Debug("insight poll failed", logging.Int(logging.FieldAttempt, attempt), logging.Error(err))
		s.fail(failPoll, err)
		return
	}

	if s.mode == ModeRegenerate && s.hooks.OnProgress != nil {
		s.hooks.OnProgress(newProgress(attempt, s.params.MaxAttempts))
		if !s.isAlive() {
			return
		}
	}

	if s.completedBy(job) {
		s.succeed(job, attempt)
		return
	}
	if attempt >= s.params.MaxAttempts {
		s.fail(failTimeout, nil)
		return
	}
	s.schedule(s.params.Interval)
}

// completedBy applies the mode's completion rule. Initial completes on any
// insights record, including an error record. Regenerate additionally needs
// a detectable change from the baseline: the timestamp first, then content
// for backends that do not bump it.
func (s *Session) completedBy(job *jobs.Job) bool {
	if job == nil || job.Insights == nil {
		return false
	}
	if s.mode == ModeInitial || s.baseline == nil {
		return true
	}
	if job.Insights.UpdatedAt != s.baseline.UpdatedAt {
		return true
	}
	return *job.Insights != *s.baseline
}

// finish transitions to a terminal state. It returns false when the session
// was already dead.
func (s *Session) finish(result Result) bool {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return false
	}
	s.alive = false
	s.state = result.State
	result.Attempts = s.attempt
	s.result = result
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.poller.release(s)
	metrics.PollingSessionsTotal.WithLabelValues(string(s.mode), result.State.String()).Inc()
	return true
}

func (s *Session) succeed(job *jobs.Job, attempt int) {
	message := ""
	if job.Insights.Error != "" {
		message = errclass.Translate(job.Insights.Error)
	}
	if !s.finish(Result{State: StateCompleted, Job: job, Message: message}) {
		return
	}
	s.logger.Info("insight generation completed",
		logging.Int(logging.FieldAttempt, attempt),
		logging.Bool("insights_error", message != ""),
	)
	if s.hooks.OnRecord != nil {
		s.hooks.OnRecord(job)
	}
	if message != "" && s.hooks.OnError != nil {
		s.hooks.OnError(message)
	}
	s.settle(StateCompleted)
}

func (s *Session) fail(kind failureKind, err error) {
	state := StateFailed
	if kind == failTimeout {
		state = StateTimedOut
	}
	message := failureMessage(kind, s.mode, s.baseline != nil)
	if !s.finish(Result{State: state, Message: message, Err: err}) {
		return
	}
	attrs := []logging.Attr{
		logging.String("outcome", state.String()),
		logging.Int(logging.FieldAttempt, s.Attempt()),
		logging.String(logging.FieldImpact, message),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err), logging.String("error_kind", services.Kind(err)))
	}
	logging.WarnWithContext(s.logger, "insight generation did not complete", "insights_"+state.String(), attrs...)

	if s.mode == ModeRegenerate && s.hooks.OnRollback != nil {
		var baseline *jobs.Insights
		if s.baseline != nil {
			cp := *s.baseline
			baseline = &cp
		}
		s.hooks.OnRollback(baseline)
	}
	if s.hooks.OnError != nil {
		s.hooks.OnError(message)
	}
	s.settle(state)
}

func (s *Session) settle(state State) {
	s.cancel()
	if s.hooks.OnDone != nil {
		s.hooks.OnDone(state)
	}
	close(s.done)
}
