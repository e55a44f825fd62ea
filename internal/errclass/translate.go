package errclass

import (
	"errors"
	"strings"

	"transcribe/internal/services"
)

// FallbackMessage is returned for nil or empty errors.
const FallbackMessage = "Произошла неожиданная ошибка"

type translation struct {
	key   string
	value string
}

// translations is ordered; the first contained key wins.
var translations = []translation{
	{"Invalid login credentials", "Неверный email или пароль"},
	{"Email not confirmed", "Пожалуйста, подтвердите ваш email адрес"},
	{"Password should be at least", "Пароль должен содержать минимум 6 символов"},
	{"User already registered", "Пользователь с таким email уже зарегистрирован"},
	{"Signup requires a valid password", "Требуется валидный пароль для регистрации"},
	{"Unable to validate email address", "Невозможно проверить email адрес"},
	{"Email rate limit exceeded", "Превышен лимит отправки email. Попробуйте позже"},
	{"Invalid email", "Неверный формат email адреса"},
	{"Weak password", "Слишком слабый пароль"},

	{"Failed to fetch", NetworkMessage},
	{"Network request failed", NetworkMessage},
	{"NetworkError", NetworkMessage},
	{"ERR_NETWORK", NetworkMessage},
	{"ERR_INTERNET_DISCONNECTED", NetworkMessage},
	{SessionExpiredMessage, SessionExpiredMessage},
	{AccessDeniedMessage, AccessDeniedMessage},

	{"Something went wrong", "Что-то пошло не так"},
	{"Server error", "Ошибка сервера"},
	{"Timeout", "Превышено время ожидания"},
}

const (
	// SessionExpiredMessage is the error text produced on HTTP 401.
	SessionExpiredMessage = "Сессия истекла. Пожалуйста, войдите в систему снова."
	// AccessDeniedMessage is the error text produced on HTTP 403.
	AccessDeniedMessage = "Доступ запрещен"
	// NetworkMessage replaces transport failure text.
	NetworkMessage = "Ошибка сети. Проверьте подключение к интернету"
)

// ToUserMessage maps err to user-facing text. It never returns an empty
// string. Errors marked services.ErrNetwork never expose transport text.
func ToUserMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}
	if errors.Is(err, services.ErrNetwork) {
		return NetworkMessage
	}
	return Translate(err.Error())
}

// Translate applies the translation table to a raw message: exact match
// first, then the first key contained in msg, else msg unchanged.
func Translate(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return FallbackMessage
	}
	for _, t := range translations {
		if t.key == msg {
			return t.value
		}
	}
	for _, t := range translations {
		if strings.Contains(msg, t.key) {
			return t.value
		}
	}
	return msg
}
