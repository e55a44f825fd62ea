package jobs_test

import (
	"encoding/json"
	"testing"
	"time"

	"transcribe/internal/jobs"
)

func TestJobDecodesServerFields(t *testing.T) {
	payload := `{
		"id": "abc123",
		"status": "processing",
		"processing_stage": "generating_insights",
		"view_count": 1500,
		"created_at": "2026-02-01T08:30:00.123456",
		"insights": {"markdown_content": "# A", "updated_at": "t0"},
		"rating": 4,
		"unknown_field": true
	}`
	var job jobs.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.ProcessingStage != jobs.StageGeneratingInsights || job.ViewCount != 1500 || job.Rating != 4 {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Insights.Content() != "# A" {
		t.Fatalf("unexpected insights %+v", job.Insights)
	}
	want := time.Date(2026, 2, 1, 8, 30, 0, 123456000, time.UTC)
	if !job.CreatedTime().Equal(want) {
		t.Fatalf("unexpected created time %v", job.CreatedTime())
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := jobs.ParseStatus(" Completed "); !ok || status != jobs.StatusCompleted {
		t.Fatalf("unexpected %q %v", status, ok)
	}
	if _, ok := jobs.ParseStatus("archived"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if !jobs.StatusFailed.Terminal() || jobs.StatusQueued.Terminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := &jobs.Job{ID: "a", Tags: []string{"x"}, Insights: &jobs.Insights{UpdatedAt: "t0"}}
	cp := original.Clone()
	cp.Tags[0] = "y"
	cp.Insights.UpdatedAt = "t1"
	if original.Tags[0] != "x" || original.Insights.UpdatedAt != "t0" {
		t.Fatal("expected clone to be independent")
	}
}
