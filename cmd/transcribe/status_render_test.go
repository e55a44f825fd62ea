package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"transcribe/internal/jobs"
	"transcribe/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("API", statusError, "unreachable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "API:", "[ERROR] unreachable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("API", statusOK, "reachable", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "API", Passed: true, Detail: "HTTP 200"},
		{Name: "Auth", Skipped: true, Detail: "not configured"},
		{Name: "ntfy", Passed: false, Detail: "HTTP 500"},
	}, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	requireContains(t, lines[0], "[OK] HTTP 200")
	requireContains(t, lines[1], "[SKIP] not configured")
	requireContains(t, lines[2], "[ERROR] HTTP 500")
	requireContains(t, lines[3], "1 check(s) failed")
}

func TestJobStatusColors(t *testing.T) {
	cases := map[jobs.Status]statusKind{
		jobs.StatusCompleted:  statusOK,
		jobs.StatusFailed:     statusError,
		jobs.StatusProcessing: statusWarn,
		jobs.StatusQueued:     statusInfo,
	}
	for status, want := range cases {
		if got := jobStatusKind(&jobs.Job{Status: status}); got != want {
			t.Fatalf("%s: got %v want %v", status, got, want)
		}
	}
}

func TestChangePrinterPrintsTransitionsOnce(t *testing.T) {
	var buf strings.Builder
	p := newChangePrinter(&buf, false)
	list := jobs.Collection{{ID: "a", Status: jobs.StatusQueued}}
	p.observe(list)
	p.observe(list)
	p.observe(jobs.Collection{{ID: "a", Status: jobs.StatusCompleted}})
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", n, buf.String())
	}
}

func TestRenderJobTable(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	out := renderJobTable(jobs.Collection{{ID: "a", Title: "Talk", Duration: 90, Rating: 3, Status: jobs.StatusCompleted, CreatedAt: "2026-01-01T00:00:00Z"}}, now, false)
	requireContains(t, out, "Talk")
	requireContains(t, out, "★★★☆☆")
	requireContains(t, out, "Всего: 1")
	requireContains(t, out, "Готово: 1")
	requireContains(t, out, "Duration")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(statusColumns, [][]string{{"a", "done"}})
	requireContains(t, out, "Error")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := strings.Count(lines[1], "│")
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "│") {
			continue
		}
		if strings.Count(line, "│") != want {
			t.Fatalf("ragged table row %q in:\n%s", line, out)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
