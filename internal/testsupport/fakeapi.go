package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"transcribe/internal/jobs"
)

// Routes recorded by FakeAPI.
const (
	RouteList       = "GET /videos/"
	RouteSubmit     = "POST /videos/"
	RouteGet        = "GET /videos/{id}"
	RouteStatus     = "GET /videos/{id}/status"
	RouteRating     = "POST /videos/{id}/rating"
	RouteInsights   = "POST /videos/{id}/insights"
	RouteRegenerate = "POST /videos/{id}/insights/regenerate"
)

type failure struct {
	status int
	body   string
	times  int
}

// FakeAPI is an in-memory transcription service served over httptest.
type FakeAPI struct {
	t      testing.TB
	server *httptest.Server

	mu        sync.Mutex
	order     []string
	jobs      map[string]*jobs.Job
	requests  map[string]int
	failures  map[string]*failure
	authHdrs  []string
	token     string
	nextID    int
	onTrigger func(id string, regenerate bool)
}

// NewFakeAPI starts a fake server mounted at /api and registers cleanup.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		t:        t,
		jobs:     make(map[string]*jobs.Job),
		requests: make(map[string]int),
		failures: make(map[string]*failure),
	}
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(f.record)
		r.Get("/videos/", f.handleList)
		r.Post("/videos/", f.handleSubmit)
		r.Get("/videos/{id}", f.handleGet)
		r.Get("/videos/{id}/status", f.handleStatus)
		r.Post("/videos/{id}/rating", f.handleRating)
		r.Post("/videos/{id}/insights", f.handleTrigger(false))
		r.Post("/videos/{id}/insights/regenerate", f.handleTrigger(true))
	})
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API base URL (ending in /api).
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api"
}

// Close stops the server so later requests fail at the transport.
func (f *FakeAPI) Close() {
	f.server.Close()
}

// Put inserts or replaces a job, keeping first-insertion order.
func (f *FakeAPI) Put(job jobs.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.ID]; !ok {
		f.order = append(f.order, job.ID)
	}
	cp := job.Clone()
	f.jobs[job.ID] = cp
}

// Update mutates a stored job in place.
func (f *FakeAPI) Update(id string, mutate func(*jobs.Job)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		f.t.Fatalf("fake api: unknown job %q", id)
	}
	mutate(job)
}

// Job returns a copy of the stored job.
func (f *FakeAPI) Job(id string) (jobs.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return jobs.Job{}, false
	}
	return *job.Clone(), true
}

// Requests returns how many requests hit route.
func (f *FakeAPI) Requests(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[route]
}

// AuthHeaders returns every Authorization header seen, in order.
func (f *FakeAPI) AuthHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authHdrs...)
}

// RequireToken makes every route return 401 unless the bearer token matches.
func (f *FakeAPI) RequireToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// FailWith makes the next times requests to route return status with body.
// times <= 0 fails indefinitely.
func (f *FakeAPI) FailWith(route string, status int, body string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = &failure{status: status, body: body, times: times}
}

// OnTrigger registers a callback run after an insights trigger is accepted.
func (f *FakeAPI) OnTrigger(fn func(id string, regenerate bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTrigger = fn
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeFor(r)
		f.mu.Lock()
		f.requests[route]++
		f.authHdrs = append(f.authHdrs, r.Header.Get("Authorization"))
		token := f.token
		fail := f.failures[route]
		if fail != nil {
			if fail.times > 0 {
				fail.times--
				if fail.times == 0 {
					delete(f.failures, route)
				}
			}
		}
		f.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeText(w, http.StatusUnauthorized, `{"detail":"Not authenticated"}`)
			return
		}
		if fail != nil {
			writeText(w, fail.status, fail.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routeFor(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if path == "/videos/" {
		return r.Method + " /videos/"
	}
	parts := strings.Split(strings.TrimPrefix(path, "/videos/"), "/")
	switch {
	case len(parts) == 1:
		return r.Method + " /videos/{id}"
	case len(parts) == 2:
		return r.Method + " /videos/{id}/" + parts[1]
	default:
		return r.Method + " /videos/{id}/" + strings.Join(parts[1:], "/")
	}
}

func (f *FakeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]*jobs.Job, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.jobs[id].Clone())
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeText(w, http.StatusUnprocessableEntity, `{"detail":"url is required"}`)
		return
	}
	id, ok := jobs.ExtractVideoID(req.URL)
	f.mu.Lock()
	if !ok {
		f.nextID++
		id = fmt.Sprintf("job-%d", f.nextID)
	}
	job := &jobs.Job{ID: id, URL: req.URL, Status: jobs.StatusQueued, CreatedAt: "2026-01-01T00:00:00Z"}
	if _, exists := f.jobs[id]; !exists {
		f.order = append(f.order, id)
	}
	f.jobs[id] = job
	out := job.Clone()
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) lookup(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	job, ok := f.jobs[id]
	var cp *jobs.Job
	if ok {
		cp = job.Clone()
	}
	f.mu.Unlock()
	if !ok {
		writeText(w, http.StatusNotFound, `{"detail":"Video not found"}`)
		return nil, false
	}
	return cp, true
}

func (f *FakeAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	if job, ok := f.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, job)
	}
}

func (f *FakeAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := f.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               job.ID,
		"status":           job.Status,
		"processing_stage": job.ProcessingStage,
		"error":            job.Error,
	})
}

func (f *FakeAPI) handleRating(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusUnprocessableEntity, `{"detail":"invalid body"}`)
		return
	}
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	job, ok := f.jobs[id]
	if ok {
		job.Rating = req.Rating
	}
	f.mu.Unlock()
	if !ok {
		writeText(w, http.StatusNotFound, `{"detail":"Video not found"}`)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "rating": req.Rating})
}

func (f *FakeAPI) handleTrigger(regenerate bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := f.lookup(w, r); !ok {
			return
		}
		id := chi.URLParam(r, "id")
		f.mu.Lock()
		hook := f.onTrigger
		f.mu.Unlock()
		if hook != nil {
			hook(id, regenerate)
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": "accepted"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
