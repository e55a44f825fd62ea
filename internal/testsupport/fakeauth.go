package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// FakeAnonKey is the apikey FakeAuth expects on every request.
const FakeAnonKey = "anon-test-key"

// FakeAuth is an in-memory GoTrue-compatible auth server.
type FakeAuth struct {
	t      testing.TB
	server *httptest.Server

	mu          sync.Mutex
	users       map[string]string
	refresh     map[string]string
	ttl         time.Duration
	autoConfirm bool
	seq         int
	logouts     int
	recovered   []string
	refreshes   int
}

// NewFakeAuth starts a fake auth server mounted at /auth/v1.
func NewFakeAuth(t testing.TB) *FakeAuth {
	t.Helper()
	f := &FakeAuth{
		t:           t,
		users:       make(map[string]string),
		refresh:     make(map[string]string),
		ttl:         time.Hour,
		autoConfirm: true,
	}
	r := chi.NewRouter()
	r.Route("/auth/v1", func(r chi.Router) {
		r.Use(f.requireAPIKey)
		r.Post("/token", f.handleToken)
		r.Post("/signup", f.handleSignup)
		r.Post("/logout", f.handleLogout)
		r.Post("/recover", f.handleRecover)
		r.Get("/user", f.handleUser)
	})
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the server root; the client appends /auth/v1.
func (f *FakeAuth) URL() string {
	return f.server.URL
}

// AddUser registers a confirmed account.
func (f *FakeAuth) AddUser(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = password
}

// SetTokenTTL controls the exp claim of issued access tokens.
func (f *FakeAuth) SetTokenTTL(ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttl = ttl
}

// SetAutoConfirm controls whether signup returns a session immediately.
func (f *FakeAuth) SetAutoConfirm(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoConfirm = v
}

// Logouts returns how many logout calls were received.
func (f *FakeAuth) Logouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

// Refreshes returns how many refresh_token grants succeeded.
func (f *FakeAuth) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

// Recovered returns the emails that requested a password reset.
func (f *FakeAuth) Recovered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recovered...)
}

// SignedToken returns an HS256 JWT for sub expiring at exp.
func SignedToken(t testing.TB, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("fake-auth-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *FakeAuth) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != FakeAnonKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// issueLocked mints a session payload for email. Callers hold f.mu.
func (f *FakeAuth) issueLocked(email string) map[string]any {
	f.seq++
	refresh := fmt.Sprintf("refresh-%d", f.seq)
	f.refresh[refresh] = email
	exp := time.Now().Add(f.ttl)
	return map[string]any{
		"access_token":  SignedToken(f.t, email, exp),
		"token_type":    "bearer",
		"expires_in":    int(f.ttl.Seconds()),
		"expires_at":    exp.Unix(),
		"refresh_token": refresh,
		"user":          map[string]any{"id": "user-" + email, "email": email},
	}
}

func (f *FakeAuth) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request", "error_description": "invalid body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Query().Get("grant_type") {
	case "password":
		if pw, ok := f.users[req.Email]; !ok || pw != req.Password {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		writeJSON(w, http.StatusOK, f.issueLocked(req.Email))
	case "refresh_token":
		email, ok := f.refresh[req.RefreshToken]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid Refresh Token: Refresh Token Not Found"})
			return
		}
		delete(f.refresh, req.RefreshToken)
		f.refreshes++
		writeJSON(w, http.StatusOK, f.issueLocked(email))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type", "error_description": "unsupported grant"})
	}
}

func (f *FakeAuth) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "invalid body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[req.Email]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"code": 422, "msg": "User already registered"})
		return
	}
	if len(req.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"code": 422, "msg": "Password should be at least 6 characters"})
		return
	}
	f.users[req.Email] = req.Password
	if !f.autoConfirm {
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-" + req.Email, "email": req.Email})
		return
	}
	writeJSON(w, http.StatusOK, f.issueLocked(req.Email))
}

func (f *FakeAuth) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.logouts++
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAuth) handleRecover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.recovered = append(f.recovered, req.Email)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (f *FakeAuth) handleUser(w http.ResponseWriter, r *http.Request) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Unauthorized"})
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(header[len(prefix):], claims); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Unauthorized"})
		return
	}
	sub, _ := claims.GetSubject()
	writeJSON(w, http.StatusOK, map[string]any{"id": "user-" + sub, "email": sub})
}
