package apiclient

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"transcribe/internal/jobs"
	"transcribe/internal/services"
)

// StatusInfo is the lightweight status record.
type StatusInfo struct {
	ID              string      `json:"id"`
	Status          jobs.Status `json:"status"`
	ProcessingStage jobs.Stage  `json:"processing_stage,omitempty"`
	Error           string      `json:"error,omitempty"`
	UpdatedAt       string      `json:"updated_at,omitempty"`
}

type submitRequest struct {
	URL string `json:"url" validate:"required,youtube"`
}

type ratingRequest struct {
	Rating int `json:"rating" validate:"min=0,max=5"`
}

func videoPath(id string, suffix string) string {
	return "/videos/" + url.PathEscape(id) + suffix
}

// ListVideos fetches every job visible to the current session.
func (c *Client) ListVideos(ctx context.Context) (jobs.Collection, error) {
	var out jobs.Collection
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/videos/", route: "GET /videos/"}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = jobs.Collection{}
	}
	return out, nil
}

// AddVideo submits a YouTube URL. Invalid links fail with services.ErrValidation
// before any request is sent.
func (c *Client) AddVideo(ctx context.Context, rawURL string) (*jobs.Job, error) {
	body := submitRequest{URL: rawURL}
	if err := validateStruct(body); err != nil {
		return nil, services.Markf(services.ErrValidation, "%s", jobs.InvalidURLMessage)
	}
	var out jobs.Job
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/videos/", route: "POST /videos/", body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVideo fetches the full job record. An empty or null body is reported as
// services.ErrNotFound.
func (c *Client) GetVideo(ctx context.Context, id string) (*jobs.Job, error) {
	ctx = services.WithVideoID(ctx, id)
	var out *jobs.Job
	body, err := c.do(ctx, request{method: http.MethodGet, path: videoPath(id, ""), route: "GET /videos/{id}"}, &out)
	if err != nil {
		return nil, err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil, services.Markf(services.ErrNotFound, "video %s not found", id)
	}
	return out, nil
}

// GetStatus fetches the lightweight status record.
func (c *Client) GetStatus(ctx context.Context, id string) (*StatusInfo, error) {
	ctx = services.WithVideoID(ctx, id)
	var out StatusInfo
	if _, err := c.do(ctx, request{method: http.MethodGet, path: videoPath(id, "/status"), route: "GET /videos/{id}/status"}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// StatusBatch fetches statuses for several jobs with bounded concurrency.
// The first error cancels the remaining requests.
func (c *Client) StatusBatch(ctx context.Context, ids []string) (map[string]*StatusInfo, error) {
	results := make(map[string]*StatusInfo, len(ids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		g.Go(func() error {
			info, err := c.GetStatus(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			results[id] = info
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SetRating stores a 0..5 rating.
func (c *Client) SetRating(ctx context.Context, id string, rating int) error {
	body := ratingRequest{Rating: rating}
	if err := validateStruct(body); err != nil {
		return services.Markf(services.ErrValidation, "rating must be between 0 and 5, got %d", rating)
	}
	ctx = services.WithVideoID(ctx, id)
	_, err := c.do(ctx, request{method: http.MethodPost, path: videoPath(id, "/rating"), route: "POST /videos/{id}/rating", body: body}, nil)
	return err
}

// GenerateInsights triggers initial insight generation.
func (c *Client) GenerateInsights(ctx context.Context, id string) error {
	ctx = services.WithVideoID(ctx, id)
	_, err := c.do(ctx, request{method: http.MethodPost, path: videoPath(id, "/insights"), route: "POST /videos/{id}/insights"}, nil)
	return err
}

// RegenerateInsights triggers insight regeneration.
func (c *Client) RegenerateInsights(ctx context.Context, id string) error {
	ctx = services.WithVideoID(ctx, id)
	_, err := c.do(ctx, request{method: http.MethodPost, path: videoPath(id, "/insights/regenerate"), route: "POST /videos/{id}/insights/regenerate"}, nil)
	return err
}
