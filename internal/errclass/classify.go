package errclass

import (
	"errors"
	"strings"

	"transcribe/internal/services"
)

// Classification reports which retry and session policies apply to an error.
// An error may be both, one, or neither.
type Classification struct {
	IsNetwork bool
	IsAuth    bool
}

var networkMarkers = []string{
	"Failed to fetch",
	"Network request failed",
	"NetworkError",
	"ERR_NETWORK",
	"ERR_INTERNET_DISCONNECTED",
}

var authMarkers = []string{
	"Invalid login credentials",
	"Email not confirmed",
	"User already registered",
	"Сессия истекла",
	"Доступ запрещен",
	"Token",
	"Unauthorized",
}

// Classify inspects err's message and marker chain.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}
	msg := err.Error()
	return Classification{
		IsNetwork: IsNetworkMessage(msg) || errors.Is(err, services.ErrNetwork),
		IsAuth:    IsAuthMessage(msg) || errors.Is(err, services.ErrAuth),
	}
}

// IsNetworkMessage applies the case-sensitive network substring rules.
func IsNetworkMessage(msg string) bool {
	return containsAny(msg, networkMarkers)
}

// IsAuthMessage applies the case-sensitive auth substring rules.
func IsAuthMessage(msg string) bool {
	return containsAny(msg, authMarkers)
}

func containsAny(msg string, markers []string) bool {
	if msg == "" {
		return false
	}
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
