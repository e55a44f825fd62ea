package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"transcribe/internal/services"
)

const authPath = "/auth/v1"

// HTTPDoer describes the HTTP client used for auth calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// goTrue is a minimal REST client for the auth provider.
type goTrue struct {
	baseURL string
	anonKey string
	http    HTTPDoer
}

func (g *goTrue) post(ctx context.Context, path, bearer string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode auth request: %w", err)
		}
		payload = bytes.NewReader(data)
	}
	return g.do(ctx, http.MethodPost, path, bearer, payload, out)
}

func (g *goTrue) do(ctx context.Context, method, path, bearer string, payload io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+authPath+path, payload)
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", g.anonKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Mark(services.ErrNetwork, fmt.Errorf("NetworkError: auth %s: %w", path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Mark(services.ErrNetwork, fmt.Errorf("NetworkError: read auth response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providerError(resp.StatusCode, data)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return services.Wrap(services.ErrServer, "auth", path, "decode response", err)
		}
	}
	return nil
}

// providerError keeps the provider's message text so it can be translated
// for the user.
func providerError(code int, data []byte) error {
	var envelope struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	text := ""
	if json.Unmarshal(data, &envelope) == nil {
		for _, candidate := range []string{envelope.ErrorDescription, envelope.Msg, envelope.Message, envelope.Error} {
			if strings.TrimSpace(candidate) != "" {
				text = strings.TrimSpace(candidate)
				break
			}
		}
	}
	if text == "" {
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		text = fmt.Sprintf("HTTP %d", code)
	}
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return services.Markf(services.ErrServer, "%s", text)
	case code == http.StatusUnprocessableEntity:
		return services.Markf(services.ErrValidation, "%s", text)
	default:
		return services.Markf(services.ErrAuth, "%s", text)
	}
}

func (g *goTrue) passwordGrant(ctx context.Context, email, password string) (tokenResponse, error) {
	var out tokenResponse
	err := g.post(ctx, "/token?grant_type=password", "", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (g *goTrue) refreshGrant(ctx context.Context, refreshToken string) (tokenResponse, error) {
	var out tokenResponse
	err := g.post(ctx, "/token?grant_type=refresh_token", "", map[string]string{"refresh_token": refreshToken}, &out)
	return out, err
}

// signup returns a token response when the provider auto-confirms, or only
// the user record when email confirmation is pending.
func (g *goTrue) signup(ctx context.Context, email, password string) (tokenResponse, error) {
	var raw json.RawMessage
	if err := g.post(ctx, "/signup", "", map[string]string{"email": email, "password": password}, &raw); err != nil {
		return tokenResponse{}, err
	}
	var out tokenResponse
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, services.Wrap(services.ErrServer, "auth", "signup", "decode response", err)
	}
	if out.AccessToken == "" && out.User == nil {
		var user User
		if json.Unmarshal(raw, &user) == nil && user.ID != "" {
			out.User = &user
		}
	}
	return out, nil
}

func (g *goTrue) logout(ctx context.Context, accessToken string) error {
	return g.post(ctx, "/logout", accessToken, nil, nil)
}

func (g *goTrue) recover(ctx context.Context, email string) error {
	return g.post(ctx, "/recover", "", map[string]string{"email": email}, nil)
}

func (g *goTrue) user(ctx context.Context, accessToken string) (User, error) {
	var out User
	err := g.do(ctx, http.MethodGet, "/user", accessToken, nil, &out)
	return out, err
}
