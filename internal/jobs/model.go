package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the server-side lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a Status if recognized.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether no further server transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage is the processing sub-state, meaningful only while processing.
type Stage string

const (
	StageDownloading        Stage = "downloading"
	StageTranscribing       Stage = "transcribing"
	StageGeneratingInsights Stage = "generating_insights"
)

// Insights is the AI analysis attached to a completed job. A record with
// Error set is still "present" for completion detection.
type Insights struct {
	MarkdownContent string `json:"markdown_content,omitempty"`
	Summary         string `json:"summary,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Content returns the markdown body, falling back to the summary.
func (i *Insights) Content() string {
	if i == nil {
		return ""
	}
	if i.MarkdownContent != "" {
		return i.MarkdownContent
	}
	return i.Summary
}

// Job is one submitted video's server-tracked record.
type Job struct {
	ID              string    `json:"id"`
	URL             string    `json:"url,omitempty"`
	Status          Status    `json:"status"`
	ProcessingStage Stage     `json:"processing_stage,omitempty"`
	Title           string    `json:"title,omitempty"`
	Channel         string    `json:"channel,omitempty"`
	Duration        int       `json:"duration,omitempty"`
	ViewCount       int64     `json:"view_count,omitempty"`
	LikeCount       int64     `json:"like_count,omitempty"`
	CommentCount    int64     `json:"comment_count,omitempty"`
	SubscriberCount int64     `json:"subscriber_count,omitempty"`
	UploadDate      string    `json:"upload_date,omitempty"`
	Language        string    `json:"language,omitempty"`
	Description     string    `json:"description,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Thumbnail       string    `json:"thumbnail,omitempty"`
	Rating          int       `json:"rating"`
	Transcript      string    `json:"transcript,omitempty"`
	Insights        *Insights `json:"insights,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       string    `json:"created_at,omitempty"`
	UpdatedAt       string    `json:"updated_at,omitempty"`
}

// HasReadyInsights reports whether displayable (non-error) insights exist.
func (j *Job) HasReadyInsights() bool {
	return j != nil && j.Status == StatusCompleted && j.Insights != nil && j.Insights.Error == ""
}

// Clone returns a shallow copy with its own Tags slice and Insights value.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Tags != nil {
		cp.Tags = append([]string(nil), j.Tags...)
	}
	if j.Insights != nil {
		ins := *j.Insights
		cp.Insights = &ins
	}
	return &cp
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// CreatedTime parses CreatedAt. Naive timestamps are read as UTC. A missing
// or unparseable value yields the zero time.
func (j *Job) CreatedTime() time.Time {
	if j == nil {
		return time.Time{}
	}
	t, _ := ParseTimestamp(j.CreatedAt)
	return t
}

// ParseTimestamp parses server timestamps with or without a zone offset.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// Patch is a client-originated partial update. Nil fields are left alone.
type Patch struct {
	Rating   *int
	Status   *Status
	Insights *Insights
}

// RatingPatch builds a patch that only sets the rating.
func RatingPatch(rating int) Patch {
	return Patch{Rating: &rating}
}

func (p Patch) apply(job *Job) *Job {
	next := *job
	if p.Rating != nil {
		next.Rating = *p.Rating
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Insights != nil {
		ins := *p.Insights
		next.Insights = &ins
	}
	return &next
}

// Empty reports whether the patch carries no fields.
func (p Patch) Empty() bool {
	return p.Rating == nil && p.Status == nil && p.Insights == nil
}
