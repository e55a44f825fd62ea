package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"transcribe/internal/config"
	"transcribe/internal/errclass"
	"transcribe/internal/logging"
	"transcribe/internal/metrics"
	"transcribe/internal/services"
)

const errorBodyLimit = 64 << 10

// HTTPDoer describes the HTTP client used by the API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SessionProvider supplies bearer tokens and tears the session down on 401.
// A provider with no session returns an empty token and no error.
type SessionProvider interface {
	Token(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// Client is a thin, stateless wrapper over the REST endpoints.
type Client struct {
	base    *url.URL
	http    HTTPDoer
	session SessionProvider
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithSession attaches a session provider.
func WithSession(provider SessionProvider) Option {
	return func(c *Client) { c.session = provider }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New constructs a client for baseURL, e.g. http://localhost:8002/api.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("api base url is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	c := &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "apiclient")
	return c, nil
}

// NewFromConfig builds a client from the [api] section.
func NewFromConfig(cfg *config.Config, session SessionProvider, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return New(cfg.API.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		WithSession(session),
		WithLogger(logger),
	)
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type request struct {
	method string
	path   string
	route  string
	body   any
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	return u.String()
}

// do executes req and decodes a 2xx JSON body into out when out is non-nil.
// It returns the raw body for callers that need to detect empty responses.
func (c *Client) do(ctx context.Context, req request, out any) ([]byte, error) {
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, c.logger)

	var payload io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.route, err)
		}
		payload = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path), payload)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.route, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		token, err := c.session.Token(ctx)
		if err != nil {
			logging.WarnWithContext(logger, "session token unavailable", "auth_token_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "request sent without authorization"),
			)
		} else if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveRequest(req.route, 0, time.Since(started))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Debug("api transport failure", logging.String("route", req.route), logging.Error(err))
		return nil, services.Mark(services.ErrNetwork, fmt.Errorf("NetworkError: %s: %w", req.route, err))
	}
	defer resp.Body.Close()
	metrics.ObserveRequest(req.route, resp.StatusCode, time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(ctx, logger, req, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Mark(services.ErrNetwork, fmt.Errorf("NetworkError: read %s response: %w", req.route, err))
	}
	logger.Debug("api request complete",
		logging.String("route", req.route),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return body, services.Wrap(services.ErrServer, "apiclient", req.route, "decode response", err)
		}
	}
	return body, nil
}

func (c *Client) statusError(ctx context.Context, logger *slog.Logger, req request, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.session != nil {
			if err := c.session.SignOut(ctx); err != nil {
				logging.WarnWithContext(logger, "sign out after 401 failed", "auth_signout_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "stale session file may remain"),
				)
			}
		}
		logger.Info("session expired", logging.String("route", req.route))
		return services.Markf(services.ErrAuth, "%s", errclass.SessionExpiredMessage)
	case http.StatusForbidden:
		return services.Markf(services.ErrAuth, "%s", errclass.AccessDeniedMessage)
	}

	text := readErrorText(resp)
	if text == "" {
		text = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return services.Markf(services.ErrNotFound, "%s", text)
	}
	return &StatusError{Code: resp.StatusCode, Message: text}
}

// StatusError is a non-2xx response other than 401/403/404.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Is lets errors.Is match services.ErrServer.
func (e *StatusError) Is(target error) bool {
	return target == services.ErrServer
}

// readErrorText returns the response body, preferring a JSON "detail" or
// "message" string when present.
func readErrorText(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return ""
	}
	var envelope struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &envelope) == nil {
		if detail, ok := envelope.Detail.(string); ok && detail != "" {
			return detail
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return text
}
