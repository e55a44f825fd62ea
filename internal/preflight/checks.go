package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"transcribe/internal/auth"
)

const checkTimeout = 5 * time.Second

func fetchStatus(ctx context.Context, method, target string, header http.Header) (int, error) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, method, target, nil)
	if err != nil {
		return 0, err
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	resp, err := (&http.Client{Timeout: checkTimeout}).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// CheckAPI verifies the transcription API answers. Any non-5xx response
// counts as reachable since the list route requires a token.
func CheckAPI(ctx context.Context, baseURL string) Result {
	const name = "Transcription API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing api.base_url"}
	}
	code, err := fetchStatus(ctx, http.MethodGet, base+"/videos/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%v)", base, err)}
	}
	if code >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("%s returned HTTP %d", base, code)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (HTTP %d)", base, code)}
}

// CheckAuth verifies the auth provider health endpoint with the anon key.
func CheckAuth(ctx context.Context, authURL, anonKey string) Result {
	const name = "Auth provider"

	base := strings.TrimRight(strings.TrimSpace(authURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing auth.url"}
	}
	if strings.TrimSpace(anonKey) == "" {
		return Result{Name: name, Detail: "missing auth.anon_key"}
	}
	code, err := fetchStatus(ctx, http.MethodGet, base+"/auth/v1/health", http.Header{"apikey": []string{anonKey}})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	switch {
	case code == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "reachable"}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Result{Name: name, Detail: "anon key rejected"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", code)}
	}
}

// CheckSessionFile reports whether a usable session is stored at path.
func CheckSessionFile(path string, now time.Time) Result {
	const name = "Session"

	session, err := auth.NewFileStore(path).Load()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !session.Valid() {
		return Result{Name: name, Detail: "not signed in (run `transcribe login`)"}
	}
	detail := "signed in as " + session.User.Email
	if !session.ExpiresAt.IsZero() && now.After(session.ExpiresAt) {
		if session.RefreshToken == "" {
			return Result{Name: name, Detail: "session expired (run `transcribe login`)"}
		}
		detail += " (access token expired, will refresh)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckNtfy verifies the ntfy topic URL is well formed and its host answers.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	u, err := url.Parse(strings.TrimSpace(topic))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic URL %q", topic)}
	}
	code, err := fetchStatus(ctx, http.MethodHead, u.Scheme+"://"+u.Host+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%v)", u.Host, err)}
	}
	if code >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("%s returned HTTP %d", u.Host, code)}
	}
	return Result{Name: name, Passed: true, Detail: u.Host + " reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
