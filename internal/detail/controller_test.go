package detail_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"transcribe/internal/apiclient"
	"transcribe/internal/broadcast"
	"transcribe/internal/detail"
	"transcribe/internal/errclass"
	"transcribe/internal/jobs"
	"transcribe/internal/listsync"
	"transcribe/internal/polling"
	"transcribe/internal/schedule"
	"transcribe/internal/services"
	"transcribe/internal/testsupport"
)

type fixture struct {
	api    *testsupport.FakeAPI
	client *apiclient.Client
	clock  *schedule.Manual
	bus    *broadcast.Bus[broadcast.RatingChanged]
	ctrl   *detail.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := testsupport.NewFakeAPI(t)
	client, err := apiclient.New(api.URL())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	clock := schedule.NewManual(time.Unix(0, 0))
	bus := broadcast.New[broadcast.RatingChanged]()
	ctrl := detail.New(client, detail.WithScheduler(clock), detail.WithRatings(bus))
	t.Cleanup(ctrl.Close)
	return &fixture{api: api, client: client, clock: clock, bus: bus, ctrl: ctrl}
}

func completedJob(id string, ins *jobs.Insights) jobs.Job {
	return jobs.Job{ID: id, Status: jobs.StatusCompleted, Transcript: "hello world", Duration: 300, Insights: ins}
}

func drain(clock *schedule.Manual) {
	for i := 0; i < 1000; i++ {
		if _, ok := clock.RunNext(); !ok {
			return
		}
	}
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	f.api.Put(completedJob("xyz", nil))

	if err := f.ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v := f.ctrl.View()
	if v.Job == nil || v.Job.ID != "xyz" || v.Loading || v.NotFound {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestLoadMissingIsNotFoundNotError(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.Load(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	v := f.ctrl.View()
	if !v.NotFound || v.Error(detail.SurfaceLoad) != "" {
		t.Fatalf("expected not-found state without banner, got %+v", v)
	}
}

func TestLoadFailureUsesLoadSurface(t *testing.T) {
	f := newFixture(t)
	f.api.Put(completedJob("xyz", nil))
	f.api.FailWith(testsupport.RouteGet, http.StatusInternalServerError, `{"detail":"Server error"}`, 1)

	if err := f.ctrl.Load(context.Background(), "xyz"); err == nil {
		t.Fatal("expected load error")
	}
	if got := f.ctrl.View().Error(detail.SurfaceLoad); got != "Ошибка сервера" {
		t.Fatalf("unexpected load error %q", got)
	}
}

func TestRatingReachesListWithoutFetch(t *testing.T) {
	f := newFixture(t)
	f.api.Put(jobs.Job{ID: "xyz", Status: jobs.StatusCompleted, Rating: 0, Transcript: "t"})

	syncer := listsync.New(f.client, jobs.NewStore(),
		listsync.WithScheduler(f.clock), listsync.WithRatings(f.bus))
	syncer.Start(context.Background())
	defer syncer.Stop()
	listFetches := f.api.Requests(testsupport.RouteList)

	if err := f.ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := f.ctrl.SetRating(context.Background(), 5); err != nil {
		t.Fatalf("SetRating: %v", err)
	}

	job, ok := syncer.Store().Get("xyz")
	if !ok || job.Rating != 5 {
		t.Fatalf("list rating = %+v, want 5", job)
	}
	if f.api.Requests(testsupport.RouteList) != listFetches {
		t.Fatal("rating propagation must not refetch the list")
	}
	if f.ctrl.View().Job.Rating != 5 {
		t.Fatal("expected local rating update")
	}
}

func TestRatingFailureLeavesLocalUnchanged(t *testing.T) {
	f := newFixture(t)
	f.api.Put(jobs.Job{ID: "xyz", Status: jobs.StatusCompleted, Rating: 2})
	if err := f.ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	var published int
	f.bus.Subscribe(func(broadcast.RatingChanged) { published++ })
	f.api.FailWith(testsupport.RouteRating, http.StatusForbidden, "", 1)

	if err := f.ctrl.SetRating(context.Background(), 4); err == nil {
		t.Fatal("expected rating error")
	}
	v := f.ctrl.View()
	if v.Job.Rating != 2 || published != 0 {
		t.Fatalf("failure must not change rating or broadcast: rating=%d published=%d", v.Job.Rating, published)
	}
	if v.Error(detail.SurfaceRating) != errclass.AccessDeniedMessage {
		t.Fatalf("unexpected rating error %q", v.Error(detail.SurfaceRating))
	}
	if v.RatingBusy {
		t.Fatal("busy flag must clear after failure")
	}
}

func TestRatingValidation(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.SetRating(context.Background(), 3); !errors.Is(err, detail.ErrNoJob) {
		t.Fatalf("expected ErrNoJob, got %v", err)
	}
	f.api.Put(jobs.Job{ID: "xyz", Status: jobs.StatusCompleted})
	_ = f.ctrl.Load(context.Background(), "xyz")

	if err := f.ctrl.SetRating(context.Background(), 9); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.api.Requests(testsupport.RouteRating) != 0 {
		t.Fatal("invalid rating must not be sent")
	}
}

// blockingRater holds SetRating until released so a second call can overlap.
type blockingRater struct {
	*apiclient.Client
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (b *blockingRater) SetRating(ctx context.Context, id string, rating int) error {
	b.calls++
	close(b.entered)
	<-b.release
	return nil
}

func TestReentrantRatingIgnored(t *testing.T) {
	f := newFixture(t)
	f.api.Put(jobs.Job{ID: "xyz", Status: jobs.StatusCompleted})
	rater := &blockingRater{Client: f.client, entered: make(chan struct{}), release: make(chan struct{})}
	ctrl := detail.New(rater, detail.WithScheduler(f.clock))
	defer ctrl.Close()
	if err := ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.SetRating(context.Background(), 3) }()
	<-rater.entered

	if err := ctrl.SetRating(context.Background(), 4); err != nil {
		t.Fatalf("re-entrant call should be ignored, got %v", err)
	}
	if !ctrl.View().RatingBusy {
		t.Fatal("expected busy flag while first call is in flight")
	}
	close(rater.release)
	if err := <-done; err != nil {
		t.Fatalf("first SetRating: %v", err)
	}
	if rater.calls != 1 || ctrl.View().Job.Rating != 3 {
		t.Fatalf("expected single call with rating 3, got calls=%d rating=%d", rater.calls, ctrl.View().Job.Rating)
	}
}

func TestGenerateInsightsCompletes(t *testing.T) {
	f := newFixture(t)
	f.api.Put(completedJob("xyz", nil))
	f.api.OnTrigger(func(id string, regenerate bool) {
		f.api.Update(id, func(j *jobs.Job) {
			j.Insights = &jobs.Insights{MarkdownContent: "# Итоги\nok", UpdatedAt: "t1"}
		})
	})
	if err := f.ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := f.ctrl.GenerateInsights(context.Background()); err != nil {
		t.Fatalf("GenerateInsights: %v", err)
	}
	if !f.ctrl.View().Generating {
		t.Fatal("expected generating state")
	}
	if err := f.ctrl.RegenerateInsights(context.Background()); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}
	if f.api.Requests(testsupport.RouteRegenerate) != 0 {
		t.Fatal("no-op start must not trigger")
	}
	drain(f.clock)

	v := f.ctrl.View()
	if v.Generating || v.Job.Insights == nil || v.Job.Insights.UpdatedAt != "t1" {
		t.Fatalf("unexpected view after completion %+v", v)
	}
}

func TestRegenerateTimeoutRestoresBaselineAndKeepsRatingError(t *testing.T) {
	f := newFixture(t)
	baseline := &jobs.Insights{MarkdownContent: "old", UpdatedAt: "t0"}
	f.api.Put(completedJob("xyz", baseline))
	ctrl := detail.New(f.client, detail.WithPollingOptions(
		polling.WithScheduler(f.clock),
		polling.WithConfig(polling.Config{
			Initial:    polling.Params{MaxAttempts: 3, Interval: time.Second},
			Regenerate: polling.Params{MaxAttempts: 3, Interval: time.Second},
		}),
	))
	defer ctrl.Close()
	if err := ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.api.FailWith(testsupport.RouteRating, http.StatusInternalServerError, "boom", 1)
	_ = ctrl.SetRating(context.Background(), 1)

	var progress []int
	unsub := ctrl.Subscribe(func(v detail.View) {
		if v.Progress != nil && (len(progress) == 0 || progress[len(progress)-1] != v.Progress.Percent) {
			progress = append(progress, v.Progress.Percent)
		}
	})
	defer unsub()

	if err := ctrl.RegenerateInsights(context.Background()); err != nil {
		t.Fatalf("RegenerateInsights: %v", err)
	}
	drain(f.clock)

	v := ctrl.View()
	if v.Job.Insights == nil || *v.Job.Insights != *baseline {
		t.Fatalf("expected baseline insights, got %+v", v.Job.Insights)
	}
	if v.Error(detail.SurfaceInsights) != "Таймаут регенерации insights. Исходные insights сохранены. Попробуйте еще раз." {
		t.Fatalf("unexpected insights error %q", v.Error(detail.SurfaceInsights))
	}
	if v.Error(detail.SurfaceRating) != "boom" {
		t.Fatalf("rating error must survive insights failure, got %q", v.Error(detail.SurfaceRating))
	}
	if len(progress) != 3 || progress[2] != 100 {
		t.Fatalf("unexpected progress %v", progress)
	}

	ctrl.DismissError(detail.SurfaceInsights)
	if ctrl.View().Error(detail.SurfaceInsights) != "" || ctrl.View().Error(detail.SurfaceRating) == "" {
		t.Fatal("dismiss must clear only its own surface")
	}
}

func TestGenerateRequiresTranscript(t *testing.T) {
	f := newFixture(t)
	f.api.Put(jobs.Job{ID: "xyz", Status: jobs.StatusProcessing})
	_ = f.ctrl.Load(context.Background(), "xyz")
	if err := f.ctrl.GenerateInsights(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCloseCancelsSession(t *testing.T) {
	f := newFixture(t)
	f.api.Put(completedJob("xyz", nil))
	if err := f.ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := f.ctrl.GenerateInsights(context.Background()); err != nil {
		t.Fatalf("GenerateInsights: %v", err)
	}
	session := f.ctrl.Session()
	f.ctrl.Close()
	f.ctrl.Close()
	drain(f.clock)

	if session.State() != polling.StateCanceled {
		t.Fatalf("expected canceled session, got %v", session.State())
	}
	if f.api.Requests(testsupport.RouteGet) != 1 {
		t.Fatal("closed view must not poll")
	}
	if err := f.ctrl.Load(context.Background(), "xyz"); !errors.Is(err, detail.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestStartInsightsReturnsSessionAfterItFinishes(t *testing.T) {
	f := newFixture(t)
	f.api.Put(completedJob("xyz", nil))
	f.api.OnTrigger(func(id string, regenerate bool) {
		f.api.Update(id, func(j *jobs.Job) {
			j.Insights = &jobs.Insights{MarkdownContent: "# Итоги\nok", UpdatedAt: "t1"}
		})
	})
	if err := f.ctrl.Load(context.Background(), "xyz"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	session, err := f.ctrl.StartInsights(context.Background(), polling.ModeInitial)
	if err != nil {
		t.Fatalf("StartInsights: %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}
	drain(f.clock)

	if f.ctrl.Session() != nil {
		t.Fatal("finished session should no longer be current")
	}
	result, err := session.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.State != polling.StateCompleted {
		t.Fatalf("expected completed, got %v", result.State)
	}

	again, err := f.ctrl.StartInsights(context.Background(), polling.ModeRegenerate)
	if err != nil || again == nil || again == session {
		t.Fatalf("expected a fresh regenerate session, got %v %v", again, err)
	}
}
