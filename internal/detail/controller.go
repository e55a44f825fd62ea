package detail

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"transcribe/internal/apiclient"
	"transcribe/internal/broadcast"
	"transcribe/internal/errclass"
	"transcribe/internal/jobs"
	"transcribe/internal/logging"
	"transcribe/internal/polling"
	"transcribe/internal/schedule"
	"transcribe/internal/services"
)

// API is the subset of the transcription client the controller uses.
type API interface {
	polling.API
	SetRating(ctx context.Context, id string, rating int) error
}

// Surface names an independent error slot.
type Surface string

const (
	SurfaceLoad     Surface = "load"
	SurfaceRating   Surface = "rating"
	SurfaceInsights Surface = "insights"
)

// ErrNoJob is returned by operations that need a loaded job.
var ErrNoJob = errors.New("no video loaded")

// View is a snapshot of the controller's observable state.
type View struct {
	Job        *jobs.Job
	Loading    bool
	NotFound   bool
	RatingBusy bool
	Generating bool
	Mode       polling.Mode
	Progress   *polling.Progress
	Errors     map[Surface]string
}

// Error returns the message on surface, if any.
func (v View) Error(s Surface) string {
	return v.Errors[s]
}

// Option customises a Controller.
type Option func(*Controller)

// WithRatings sets the bus that receives confirmed rating changes.
func WithRatings(bus *broadcast.Bus[broadcast.RatingChanged]) Option {
	return func(c *Controller) { c.ratings = bus }
}

// WithPollingOptions configures the embedded poller.
func WithPollingOptions(opts ...polling.Option) Option {
	return func(c *Controller) { c.pollOpts = append(c.pollOpts, opts...) }
}

// WithScheduler is shorthand for the poller's scheduler option.
func WithScheduler(s schedule.Scheduler) Option {
	return WithPollingOptions(polling.WithScheduler(s))
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller owns one detail view.
type Controller struct {
	api      API
	poller   *polling.Poller
	pollOpts []polling.Option
	ratings  *broadcast.Bus[broadcast.RatingChanged]
	changes  *broadcast.Bus[View]
	logger   *slog.Logger

	mu         sync.Mutex
	closed     bool
	loadGen    uint64
	pollGen    uint64
	id         string
	job        *jobs.Job
	loading    bool
	notFound   bool
	ratingBusy bool
	mode       polling.Mode
	generating bool
	progress   *polling.Progress
	errs       map[Surface]string
}

// New builds a controller over api.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		changes: broadcast.New[View](),
		errs:    make(map[Surface]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "detail")
	c.poller = polling.New(api, append([]polling.Option{polling.WithLogger(c.logger)}, c.pollOpts...)...)
	return c
}

// View returns the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Job:        c.job,
		Loading:    c.loading,
		NotFound:   c.notFound,
		RatingBusy: c.ratingBusy,
		Generating: c.generating,
		Mode:       c.mode,
		Errors:     make(map[Surface]string, len(c.errs)),
	}
	if c.progress != nil {
		p := *c.progress
		v.Progress = &p
	}
	for k, msg := range c.errs {
		v.Errors[k] = msg
	}
	return v
}

// Subscribe registers fn for view changes.
func (c *Controller) Subscribe(fn func(View)) func() {
	return c.changes.Subscribe(fn)
}

func (c *Controller) publish() {
	c.changes.Publish(c.View())
}

// Session returns the running insights session, if any.
func (c *Controller) Session() *polling.Session {
	return c.poller.Current()
}

// Load fetches the full record for id. A missing job sets NotFound and is
// not reported on the load surface.
func (c *Controller) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switched := c.id != "" && c.id != id
	c.loadGen++
	gen := c.loadGen
	c.id = id
	c.loading = true
	c.notFound = false
	delete(c.errs, SurfaceLoad)
	if switched {
		c.job = nil
		c.pollGen++
		c.generating = false
		c.progress = nil
	}
	c.mu.Unlock()
	if switched {
		c.poller.Cancel()
	}
	c.publish()

	job, err := c.api.GetVideo(services.WithVideoID(ctx, id), id)

	c.mu.Lock()
	if c.closed || gen != c.loadGen {
		c.mu.Unlock()
		return err
	}
	c.loading = false
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.notFound = true
		c.job = nil
	case err != nil:
		c.errs[SurfaceLoad] = errclass.ToUserMessage(err)
	default:
		c.job = job
	}
	c.mu.Unlock()
	c.publish()

	if err != nil && !errors.Is(err, services.ErrNotFound) {
		logging.WarnWithContext(c.logger, "video load failed", "detail_load_failed",
			logging.String(logging.FieldVideoID, id),
			logging.Error(err),
		)
	}
	return err
}

// ErrClosed is returned after Close.
var ErrClosed = errors.New("detail view closed")

// SetRating stores a 0..5 rating. A call made while another is in flight is
// ignored and returns nil. On success the local copy is updated and the
// change is broadcast; on failure the local copy is untouched.
func (c *Controller) SetRating(ctx context.Context, rating int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.job == nil {
		c.mu.Unlock()
		return ErrNoJob
	}
	if c.ratingBusy {
		c.mu.Unlock()
		c.logger.Debug("rating change ignored while another is in flight")
		return nil
	}
	if !apiclient.ValidRating(rating) {
		err := services.Markf(services.ErrValidation, "rating must be between 0 and 5, got %d", rating)
		c.errs[SurfaceRating] = errclass.ToUserMessage(err)
		c.mu.Unlock()
		c.publish()
		return err
	}
	id := c.id
	gen := c.loadGen
	c.ratingBusy = true
	delete(c.errs, SurfaceRating)
	c.mu.Unlock()
	c.publish()

	err := c.api.SetRating(services.WithVideoID(ctx, id), id, rating)

	c.mu.Lock()
	c.ratingBusy = false
	if c.closed || gen != c.loadGen || c.job == nil {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.errs[SurfaceRating] = errclass.ToUserMessage(err)
		c.mu.Unlock()
		c.publish()
		return err
	}
	next := c.job.Clone()
	next.Rating = rating
	c.job = next
	c.mu.Unlock()

	c.logger.Info("rating updated", logging.String(logging.FieldVideoID, id), logging.Int("rating", rating))
	c.publish()
	c.ratings.Publish(broadcast.RatingChanged{VideoID: id, Rating: rating})
	return nil
}

// GenerateInsights starts initial generation. It is a no-op while a
// session is running.
func (c *Controller) GenerateInsights(ctx context.Context) error {
	_, err := c.StartInsights(ctx, polling.ModeInitial)
	return err
}

// RegenerateInsights starts regeneration, keeping the current insights as
// the rollback baseline. It is a no-op while a session is running.
func (c *Controller) RegenerateInsights(ctx context.Context) error {
	_, err := c.StartInsights(ctx, polling.ModeRegenerate)
	return err
}

// StartInsights starts a session in mode and returns it. The session stays
// valid after it finishes, unlike Session. A nil session with a nil error
// means another session was already running.
func (c *Controller) StartInsights(ctx context.Context, mode polling.Mode) (*polling.Session, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.generating || c.poller.Active() {
		c.mu.Unlock()
		return nil, nil
	}
	if c.job == nil {
		c.mu.Unlock()
		return nil, ErrNoJob
	}
	if c.job.Transcript == "" {
		c.mu.Unlock()
		return nil, services.Markf(services.ErrValidation, "transcript is not available yet")
	}
	id := c.id
	var baseline *jobs.Insights
	if c.job.Insights != nil {
		cp := *c.job.Insights
		baseline = &cp
	}
	c.pollGen++
	gen := c.pollGen
	c.generating = true
	c.mode = mode
	c.progress = nil
	delete(c.errs, SurfaceInsights)
	c.mu.Unlock()
	c.publish()

	session, err := c.poller.Start(ctx, mode, id, baseline, c.hooks(gen))
	if errors.Is(err, polling.ErrAlreadyActive) {
		c.mu.Lock()
		if gen == c.pollGen {
			c.generating = false
		}
		c.mu.Unlock()
		return nil, nil
	}
	return session, err
}

// hooks binds session output to this controller. Output from a superseded
// session or after Close is dropped.
func (c *Controller) hooks(gen uint64) polling.Hooks {
	apply := func(fn func()) {
		c.mu.Lock()
		if c.closed || gen != c.pollGen {
			c.mu.Unlock()
			return
		}
		fn()
		c.mu.Unlock()
		c.publish()
	}
	return polling.Hooks{
		OnProgress: func(p polling.Progress) {
			apply(func() { c.progress = &p })
		},
		OnRecord: func(job *jobs.Job) {
			apply(func() {
				if job != nil && job.ID == c.id {
					c.job = job
				}
			})
		},
		OnRollback: func(baseline *jobs.Insights) {
			apply(func() {
				if c.job == nil {
					return
				}
				next := c.job.Clone()
				next.Insights = baseline
				c.job = next
			})
		},
		OnError: func(msg string) {
			apply(func() { c.errs[SurfaceInsights] = msg })
		},
		OnDone: func(polling.State) {
			apply(func() {
				c.generating = false
				c.progress = nil
			})
		},
	}
}

// DismissError clears one error surface.
func (c *Controller) DismissError(s Surface) {
	c.mu.Lock()
	_, had := c.errs[s]
	delete(c.errs, s)
	c.mu.Unlock()
	if had {
		c.publish()
	}
}

// Close cancels any running session and detaches the view. It is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generating = false
	c.mu.Unlock()
	c.poller.Cancel()
}
