package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"transcribe/internal/auth"
	"transcribe/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckAPI(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	api.RequireToken("secret")
	if result := CheckAPI(context.Background(), api.URL()); !result.Passed {
		t.Fatalf("expected 401 to count as reachable, got: %s", result.Detail)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	if result := CheckAPI(context.Background(), down.URL); result.Passed {
		t.Fatal("expected 502 to fail")
	}

	if result := CheckAPI(context.Background(), ""); result.Passed || result.Detail != "missing api.base_url" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("apikey") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckAuth(context.Background(), srv.URL, "good-key"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckAuth(context.Background(), srv.URL, "bad-key"); result.Passed || result.Detail != "anon key rejected" {
		t.Fatalf("expected rejected key, got %+v", result)
	}
}

func TestCheckSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if result := CheckSessionFile(path, now); result.Passed {
		t.Fatal("expected missing session to fail")
	}

	write := func(s auth.Session) {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	write(auth.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: now.Add(time.Hour), User: auth.User{Email: "me@example.com"}})
	if result := CheckSessionFile(path, now); !result.Passed || result.Detail != "signed in as me@example.com" {
		t.Fatalf("unexpected result %+v", result)
	}

	write(auth.Session{AccessToken: "a", ExpiresAt: now.Add(-time.Hour)})
	if result := CheckSessionFile(path, now); result.Passed {
		t.Fatal("expected expired session without refresh token to fail")
	}
}

func TestRunAllSkipsUnconfiguredFeatures(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIURL(api.URL()), testsupport.WithCacheDisabled())

	results := RunAll(context.Background(), cfg)
	if len(results) != 2 {
		t.Fatalf("expected api + skipped auth, got %+v", results)
	}
	if !results[1].Skipped {
		t.Fatalf("expected auth check skipped, got %+v", results[1])
	}
	if Failed(results) {
		t.Fatalf("expected no failures, got %+v", results)
	}
}
