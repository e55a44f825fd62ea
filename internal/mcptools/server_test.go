package mcptools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"transcribe/internal/apiclient"
	"transcribe/internal/jobs"
	"transcribe/internal/polling"
	"transcribe/internal/testsupport"
)

func newTestDeps(t *testing.T) (Deps, *testsupport.FakeAPI) {
	t.Helper()
	api := testsupport.NewFakeAPI(t)
	client, err := apiclient.New(api.URL())
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	fast := polling.Config{
		StartDelay: time.Millisecond,
		Initial:    polling.Params{MaxAttempts: 5, Interval: time.Millisecond},
		Regenerate: polling.Params{MaxAttempts: 3, Interval: time.Millisecond},
	}
	return Deps{API: client, Poller: polling.New(client, polling.WithConfig(fast))}, api
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestListVideosSortsAndFilters(t *testing.T) {
	deps, api := newTestDeps(t)
	api.Put(jobs.Job{ID: "a", Status: jobs.StatusCompleted, Rating: 2, CreatedAt: "2026-01-01T00:00:00Z"})
	api.Put(jobs.Job{ID: "b", Status: jobs.StatusCompleted, Rating: 5, CreatedAt: "2026-01-02T00:00:00Z"})
	api.Put(jobs.Job{ID: "c", Status: jobs.StatusFailed, CreatedAt: "2026-01-03T00:00:00Z"})

	result, err := listVideos(deps)(context.Background(), callTool("list_videos", map[string]interface{}{
		"sort":   "rating",
		"status": "completed",
	}))
	if err != nil || result.IsError {
		t.Fatalf("unexpected failure: %v %v", err, result)
	}
	var got []jobSummary
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if got[0].StatusText != "Готово" {
		t.Fatalf("status text = %q", got[0].StatusText)
	}
}

func TestListVideosRejectsBadArguments(t *testing.T) {
	deps, _ := newTestDeps(t)
	for _, args := range []map[string]interface{}{
		{"sort": "title"},
		{"order": "sideways"},
		{"status": "archived"},
	} {
		result, err := listVideos(deps)(context.Background(), callTool("list_videos", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Fatalf("expected tool error for %v", args)
		}
	}
}

func TestGetVideoNotFound(t *testing.T) {
	deps, _ := newTestDeps(t)
	result, _ := getVideo(deps)(context.Background(), callTool("get_video", map[string]interface{}{"id": "missing"}))
	if !result.IsError || toolText(t, result) != "Video not found" {
		t.Fatalf("expected not found, got %q", toolText(t, result))
	}
}

func TestSubmitAndRate(t *testing.T) {
	deps, api := newTestDeps(t)
	result, _ := submitVideo(deps)(context.Background(), callTool("submit_video", map[string]interface{}{"url": "not a url"}))
	if !result.IsError || toolText(t, result) != jobs.InvalidURLMessage {
		t.Fatalf("expected validation error, got %q", toolText(t, result))
	}

	result, _ = submitVideo(deps)(context.Background(), callTool("submit_video", map[string]interface{}{"url": "https://youtu.be/dQw4w9WgXcQ"}))
	if result.IsError || !strings.Contains(toolText(t, result), `"id":"dQw4w9WgXcQ"`) {
		t.Fatalf("unexpected submit result %q", toolText(t, result))
	}

	result, _ = rateVideo(deps)(context.Background(), callTool("rate_video", map[string]interface{}{"id": "dQw4w9WgXcQ", "rating": float64(3)}))
	if result.IsError {
		t.Fatalf("rate failed: %s", toolText(t, result))
	}
	if job, _ := api.Job("dQw4w9WgXcQ"); job.Rating != 3 {
		t.Fatalf("rating = %d", job.Rating)
	}

	result, _ = rateVideo(deps)(context.Background(), callTool("rate_video", map[string]interface{}{"id": "dQw4w9WgXcQ", "rating": float64(9)}))
	if !result.IsError {
		t.Fatalf("expected out-of-range rating to fail")
	}
}

func TestGenerateInsightsWaitsForCompletion(t *testing.T) {
	deps, api := newTestDeps(t)
	api.Put(jobs.Job{ID: "v1", Status: jobs.StatusCompleted, Transcript: "hello"})
	api.OnTrigger(func(id string, regenerate bool) {
		api.Update(id, func(job *jobs.Job) {
			job.Insights = &jobs.Insights{MarkdownContent: "# Summary\nok", UpdatedAt: "t1"}
		})
	})

	result, err := generateInsights(deps)(context.Background(), callTool("generate_insights", map[string]interface{}{"id": "v1"}))
	if err != nil || result.IsError {
		t.Fatalf("generate failed: %v %q", err, toolText(t, result))
	}
	var out insightsResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.State != polling.StateCompleted.String() || out.Insights == nil || out.Insights.UpdatedAt != "t1" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestGenerateInsightsRequiresTranscript(t *testing.T) {
	deps, api := newTestDeps(t)
	api.Put(jobs.Job{ID: "v1", Status: jobs.StatusProcessing})
	result, _ := generateInsights(deps)(context.Background(), callTool("generate_insights", map[string]interface{}{"id": "v1"}))
	if !result.IsError || toolText(t, result) != "transcript is not available yet" {
		t.Fatalf("unexpected result %q", toolText(t, result))
	}
}

func TestRegenerateTimeoutReportsFailure(t *testing.T) {
	deps, api := newTestDeps(t)
	api.Put(jobs.Job{ID: "v1", Status: jobs.StatusCompleted, Transcript: "hello",
		Insights: &jobs.Insights{MarkdownContent: "old", UpdatedAt: "t0"}})

	result, _ := generateInsights(deps)(context.Background(), callTool("generate_insights", map[string]interface{}{"id": "v1", "regenerate": true}))
	if !result.IsError {
		t.Fatalf("expected timeout to be reported as an error")
	}
	var out insightsResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.State != polling.StateTimedOut.String() || out.Attempts != 3 || out.Message == "" {
		t.Fatalf("unexpected result %+v", out)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	deps, _ := newTestDeps(t)
	srv := NewServer(deps, "test")
	tools := srv.ListTools()
	for _, name := range []string{"list_videos", "get_video", "submit_video", "rate_video", "generate_insights"} {
		if _, ok := tools[name]; !ok {
			t.Fatalf("tool %s not registered", name)
		}
	}
}
