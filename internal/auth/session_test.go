package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := TokenExpiry(signed(t, jwt.MapClaims{"exp": exp.Unix()}))
	if err != nil {
		t.Fatalf("TokenExpiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("exp = %v, want %v", got, exp)
	}
	if _, err := TokenExpiry(signed(t, jwt.MapClaims{"sub": "x"})); err == nil {
		t.Fatal("expected error when exp is missing")
	}
	if _, err := TokenExpiry("not-a-jwt"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDeriveExpirationFallbacks(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := deriveExpiration("opaque", 0, 3600, now); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires_in fallback = %v", got)
	}
	if got := deriveExpiration("opaque", now.Unix()+60, 3600, now); !got.Equal(now.Add(time.Minute)) {
		t.Fatalf("expires_at fallback = %v", got)
	}
	if got := deriveExpiration("opaque", 0, 0, now); !got.IsZero() {
		t.Fatalf("expected zero expiry, got %v", got)
	}
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := Session{AccessToken: "x", ExpiresAt: now.Add(2 * time.Minute)}
	if s.NeedsRefresh(now, time.Minute) {
		t.Fatal("token outside leeway should not refresh")
	}
	if !s.NeedsRefresh(now, 2*time.Minute) {
		t.Fatal("token at leeway boundary should refresh")
	}
	if (Session{AccessToken: "x"}).NeedsRefresh(now, time.Hour) {
		t.Fatal("unknown expiry should not refresh")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	empty, err := store.Load()
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if empty.Valid() {
		t.Fatalf("expected empty session, got %#v", empty)
	}

	expected := Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Round(time.Second).UTC(),
		User:         User{ID: "u1", Email: "u@example.com"},
	}
	if err := store.Save(expected); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AccessToken != expected.AccessToken || got.RefreshToken != expected.RefreshToken {
		t.Fatalf("token mismatch: got %#v", got)
	}
	if !got.ExpiresAt.Equal(expected.ExpiresAt) || got.User != expected.User {
		t.Fatalf("metadata mismatch: got %#v want %#v", got, expected)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	cleared, _ := store.Load()
	if cleared.Valid() {
		t.Fatal("expected cleared session")
	}
}
