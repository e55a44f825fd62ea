package main

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"transcribe/internal/jobs"
	"transcribe/internal/services"
	"transcribe/internal/testsupport"
)

func TestAddListAndRate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"add", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}, env.configPath, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued dQw4w9WgXcQ")

	env.api.Update("dQw4w9WgXcQ", func(j *jobs.Job) {
		j.Status = jobs.StatusCompleted
		j.Title = "Never Gonna Give You Up"
		j.Duration = 213
	})

	out, _, err = runCLI(t, []string{"list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Never Gonna Give You Up")
	requireContains(t, out, "dQw4w9WgXcQ")

	out, _, err = runCLI(t, []string{"rate", "dQw4w9WgXcQ", "4"}, env.configPath, "")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	requireContains(t, out, "★★★★☆")
	job, ok := env.api.Job("dQw4w9WgXcQ")
	if !ok || job.Rating != 4 {
		t.Fatalf("expected stored rating 4, got %+v", job)
	}
}

func TestAddRejectsNonYouTubeURL(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"add", "https://example.com/video"}, env.configPath, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if env.api.Requests(testsupport.RouteSubmit) != 0 {
		t.Fatal("invalid url must not reach the API")
	}
}

func TestRateRejectsOutOfRange(t *testing.T) {
	env := setupCLITestEnv(t)
	env.api.Put(jobs.Job{ID: "a", Status: jobs.StatusCompleted})
	if _, _, err := runCLI(t, []string{"rate", "a", "9"}, env.configPath, ""); err == nil {
		t.Fatal("expected error for rating 9")
	}
	if env.api.Requests(testsupport.RouteRating) != 0 {
		t.Fatal("out-of-range rating must not reach the API")
	}
}

func TestListFiltersAndJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.api.Put(jobs.Job{ID: "done", Title: "Done", Status: jobs.StatusCompleted, CreatedAt: "2026-01-02T00:00:00Z"})
	env.api.Put(jobs.Job{ID: "busy", Title: "Busy", Status: jobs.StatusProcessing, CreatedAt: "2026-01-03T00:00:00Z"})

	out, _, err := runCLI(t, []string{"list", "--status", "completed", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, `"id": "done"`)
	if strings.Contains(out, `"busy"`) {
		t.Fatalf("filtered job present: %s", out)
	}

	if _, _, err := runCLI(t, []string{"list", "--sort", "bogus"}, env.configPath, ""); err == nil {
		t.Fatal("expected invalid sort key to fail")
	}
}

func TestListFallsBackToSnapshotCache(t *testing.T) {
	env := setupCLITestEnv(t)
	env.api.Put(jobs.Job{ID: "a", Title: "Cached title", Status: jobs.StatusCompleted})

	if _, _, err := runCLI(t, []string{"list"}, env.configPath, ""); err != nil {
		t.Fatalf("online list: %v", err)
	}
	env.api.Close()

	out, _, err := runCLI(t, []string{"list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("fallback list: %v", err)
	}
	requireContains(t, out, "Cached snapshot from")
	requireContains(t, out, "Cached title")

	out, _, err = runCLI(t, []string{"list", "--offline"}, env.configPath, "")
	if err != nil {
		t.Fatalf("offline list: %v", err)
	}
	requireContains(t, out, "Cached title")
}

func TestListOfflineWithoutSnapshot(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"list", "--offline"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty cache error, got %v", err)
	}
}

func TestShowNotFoundTranslates(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"show", "missing"}, env.configPath, "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if msg := userError(err); msg == err.Error() {
		t.Fatalf("expected localized message, got %q", msg)
	}
}

func TestShowRendersInsights(t *testing.T) {
	env := setupCLITestEnv(t)
	env.api.Put(jobs.Job{
		ID:         "a",
		Title:      "Talk",
		Status:     jobs.StatusCompleted,
		Transcript: "hello world",
		Insights:   &jobs.Insights{MarkdownContent: "## Summary\nShort talk about greetings."},
	})
	out, _, err := runCLI(t, []string{"show", "a", "--transcript"}, env.configPath, "")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "== Talk ==")
	requireContains(t, out, "Short talk about greetings.")
	requireContains(t, out, "hello world")
}

func TestStatusBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	env.api.Put(jobs.Job{ID: "a", Status: jobs.StatusCompleted})
	env.api.Put(jobs.Job{ID: "b", Status: jobs.StatusFailed, Error: "boom"})

	out, _, err := runCLI(t, []string{"status", "a", "b"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "boom")

	env.api.FailWith(testsupport.RouteStatus, http.StatusInternalServerError, "oops", 0)
	if _, _, err := runCLI(t, []string{"status", "a"}, env.configPath, ""); err == nil {
		t.Fatal("expected failing status route to error")
	}
}
