package errclass_test

import (
	"errors"
	"fmt"
	"testing"

	"transcribe/internal/errclass"
	"transcribe/internal/services"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		network bool
		auth    bool
	}{
		{"nil", nil, false, false},
		{"fetch", errors.New("TypeError: Failed to fetch"), true, false},
		{"disconnected", errors.New("net::ERR_INTERNET_DISCONNECTED"), true, false},
		{"expired", errors.New(errclass.SessionExpiredMessage), false, true},
		{"both", errors.New("NetworkError while refreshing Token"), true, true},
		{"case sensitive", errors.New("failed to fetch"), false, false},
		{"marker", services.Mark(services.ErrNetwork, errors.New("dial tcp: connection refused")), true, false},
		{"wrapped auth", fmt.Errorf("rate: %w", services.Markf(services.ErrAuth, errclass.AccessDeniedMessage)), false, true},
		{"neither", errors.New("HTTP 500"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errclass.Classify(tt.err)
			if got.IsNetwork != tt.network || got.IsAuth != tt.auth {
				t.Fatalf("Classify(%v) = %+v, want network=%v auth=%v", tt.err, got, tt.network, tt.auth)
			}
		})
	}
}

func TestToUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, errclass.FallbackMessage},
		{"empty", errors.New(""), errclass.FallbackMessage},
		{"exact", errors.New("Invalid login credentials"), "Неверный email или пароль"},
		{"substring", errors.New("TypeError: Failed to fetch"), "Ошибка сети. Проверьте подключение к интернету"},
		{"first match wins", errors.New("Server error: Timeout"), "Ошибка сервера"},
		{"session", errors.New(errclass.SessionExpiredMessage), errclass.SessionExpiredMessage},
		{"passthrough", errors.New("Видео не найдено"), "Видео не найдено"},
		{"transport text", errors.New(`NetworkError: GET /videos/: Get "http://127.0.0.1:1/api/videos/": dial tcp 127.0.0.1:1: connect: connection refused`), errclass.NetworkMessage},
		{"chromium code", errors.New("net::ERR_NETWORK_CHANGED"), errclass.NetworkMessage},
		{"network marker", services.Mark(services.ErrNetwork, errors.New("read tcp: connection reset by peer")), errclass.NetworkMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errclass.ToUserMessage(tt.err); got != tt.want {
				t.Fatalf("ToUserMessage(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
