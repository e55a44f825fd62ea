// Package mcptools exposes the transcription client as MCP tools so an
// assistant can list, submit, rate, and generate insights for videos.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"transcribe/internal/errclass"
	"transcribe/internal/jobs"
	"transcribe/internal/logging"
	"transcribe/internal/polling"
)

// API is the subset of the transcription client the tools use.
type API interface {
	polling.API
	ListVideos(ctx context.Context) (jobs.Collection, error)
	AddVideo(ctx context.Context, rawURL string) (*jobs.Job, error)
	SetRating(ctx context.Context, id string, rating int) error
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	API    API
	Poller *polling.Poller
	Logger *slog.Logger
}

// NewServer creates an MCP server with all transcribe tools registered.
func NewServer(deps Deps, version string) *server.MCPServer {
	if deps.Poller == nil {
		deps.Poller = polling.New(deps.API, polling.WithLogger(deps.Logger))
	}
	deps.Logger = logging.NewComponentLogger(deps.Logger, "mcp")

	s := server.NewMCPServer(
		"transcribe",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("transcribe: YouTube transcription jobs, transcripts, ratings and AI insights."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_videos",
			mcp.WithDescription("List transcription jobs in server order, optionally sorted and filtered by status."),
			mcp.WithString("sort", mcp.Description("created_at, rating or duration")),
			mcp.WithString("order", mcp.Description("asc or desc (default desc)")),
			mcp.WithString("status", mcp.Description("Only jobs with this status (queued, pending, processing, completed, failed)")),
		),
		listVideos(deps),
	)

	s.AddTool(
		mcp.NewTool("get_video",
			mcp.WithDescription("Fetch one job with its transcript and insights."),
			mcp.WithString("id", mcp.Description("Video id"), mcp.Required()),
		),
		getVideo(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_video",
			mcp.WithDescription("Submit a YouTube URL for transcription."),
			mcp.WithString("url", mcp.Description("YouTube watch, live or youtu.be URL"), mcp.Required()),
		),
		submitVideo(deps),
	)

	s.AddTool(
		mcp.NewTool("rate_video",
			mcp.WithDescription("Set a 0-5 rating on a video."),
			mcp.WithString("id", mcp.Description("Video id"), mcp.Required()),
			mcp.WithNumber("rating", mcp.Description("Rating from 0 to 5"), mcp.Required()),
		),
		rateVideo(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_insights",
			mcp.WithDescription("Start insight generation for a transcribed video and optionally wait for the result."),
			mcp.WithString("id", mcp.Description("Video id"), mcp.Required()),
			mcp.WithBoolean("regenerate", mcp.Description("Replace existing insights")),
			mcp.WithBoolean("wait", mcp.Description("Block until generation finishes (default true)")),
		),
		generateInsights(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"transcribe://stats",
			"Job Statistics",
			mcp.WithResourceDescription("Job counts by status and total time saved"),
			mcp.WithMIMEType("application/json"),
		),
		statsResource(deps),
	)

	return s
}

type jobSummary struct {
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	URL         string      `json:"url,omitempty"`
	Status      jobs.Status `json:"status"`
	StatusText  string      `json:"status_text"`
	Rating      int         `json:"rating,omitempty"`
	Duration    int         `json:"duration,omitempty"`
	HasInsights bool        `json:"has_insights"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

func summarize(job *jobs.Job) jobSummary {
	return jobSummary{
		ID:          job.ID,
		Title:       job.Title,
		URL:         job.URL,
		Status:      job.Status,
		StatusText:  jobs.StatusText(job),
		Rating:      job.Rating,
		Duration:    job.Duration,
		HasInsights: job.HasReadyInsights(),
		CreatedAt:   job.CreatedAt,
	}
}

func listVideos(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, ok := jobs.ParseSortKey(req.GetString("sort", ""))
		if !ok {
			return toolError("sort must be created_at, rating or duration"), nil
		}
		order, ok := jobs.ParseOrder(req.GetString("order", ""))
		if !ok {
			return toolError("order must be asc or desc"), nil
		}
		var filter jobs.Status
		if raw := strings.TrimSpace(req.GetString("status", "")); raw != "" {
			if filter, ok = jobs.ParseStatus(raw); !ok {
				return toolError(fmt.Sprintf("unknown status %q", raw)), nil
			}
		}

		list, err := deps.API.ListVideos(ctx)
		if err != nil {
			return toolError(errclass.ToUserMessage(err)), nil
		}
		out := make([]jobSummary, 0, len(list))
		for _, job := range jobs.Sort(list, key, order) {
			if filter != "" && job.Status != filter {
				continue
			}
			out = append(out, summarize(job))
		}
		return jsonResult(out)
	}
}

func getVideo(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return toolError("id is required"), nil
		}
		job, err := deps.API.GetVideo(ctx, id)
		if err != nil {
			return toolError(errclass.ToUserMessage(err)), nil
		}
		return jsonResult(job)
	}
}

func submitVideo(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("url")
		if err != nil {
			return toolError("url is required"), nil
		}
		job, err := deps.API.AddVideo(ctx, raw)
		if err != nil {
			return toolError(errclass.ToUserMessage(err)), nil
		}
		deps.Logger.Info("video submitted via mcp", logging.String(logging.FieldVideoID, job.ID))
		return jsonResult(summarize(job))
	}
}

func rateVideo(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return toolError("id is required"), nil
		}
		rating, err := req.RequireInt("rating")
		if err != nil {
			return toolError("rating is required"), nil
		}
		if err := deps.API.SetRating(ctx, id, rating); err != nil {
			return toolError(errclass.ToUserMessage(err)), nil
		}
		return textResult(fmt.Sprintf("Rated %s: %d", id, rating)), nil
	}
}

type insightsResult struct {
	ID       string         `json:"id"`
	State    string         `json:"state"`
	Attempts int            `json:"attempts,omitempty"`
	Message  string         `json:"message,omitempty"`
	Insights *jobs.Insights `json:"insights,omitempty"`
}

func generateInsights(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return toolError("id is required"), nil
		}
		mode := polling.ModeInitial
		if req.GetBool("regenerate", false) {
			mode = polling.ModeRegenerate
		}
		wait := req.GetBool("wait", true)

		job, err := deps.API.GetVideo(ctx, id)
		if err != nil {
			return toolError(errclass.ToUserMessage(err)), nil
		}
		if job.Transcript == "" {
			return toolError("transcript is not available yet"), nil
		}
		var baseline *jobs.Insights
		if job.Insights != nil {
			cp := *job.Insights
			baseline = &cp
		}

		// The session outlives the request when wait is false.
		sessionCtx := context.WithoutCancel(ctx)
		session, err := deps.Poller.Start(sessionCtx, mode, id, baseline, polling.Hooks{})
		if err != nil {
			return toolError(errclass.ToUserMessage(err)), nil
		}
		if !wait {
			return jsonResult(insightsResult{ID: id, State: session.State().String()})
		}

		result, err := session.Wait(ctx)
		if err != nil {
			session.Cancel()
			return toolError("canceled while waiting for insights"), nil
		}
		out := insightsResult{ID: id, State: result.State.String(), Attempts: result.Attempts, Message: result.Message}
		if result.Job != nil {
			out.Insights = result.Job.Insights
		}
		if result.State != polling.StateCompleted {
			if out.Message == "" {
				out.Message = errclass.FallbackMessage
			}
			payload, _ := json.Marshal(out)
			return toolError(string(payload)), nil
		}
		return jsonResult(out)
	}
}

type stats struct {
	Total     int                 `json:"total"`
	ByStatus  map[jobs.Status]int `json:"by_status"`
	TimeSaved int                 `json:"time_saved_seconds"`
	Formatted string              `json:"time_saved"`
}

func statsResource(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := deps.API.ListVideos(ctx)
		if err != nil {
			return nil, fmt.Errorf("list videos: %w", err)
		}
		saved := jobs.TimeSaved(list)
		b, err := json.Marshal(stats{
			Total:     len(list),
			ByStatus:  jobs.CountByStatus(list),
			TimeSaved: saved,
			Formatted: jobs.FormatTimeSaved(saved),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal stats: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return textResult(string(b)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
