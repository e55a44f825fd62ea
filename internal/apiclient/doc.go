// Package apiclient talks to the transcription REST service.
//
// Every response goes through one contract: 401 signs the local session out
// and fails with the session-expired message, 403 fails with access denied,
// 404 is services.ErrNotFound, other non-2xx statuses carry the response body
// text, and transport failures are tagged services.ErrNetwork with a
// "NetworkError" message so errclass treats them as retryable.
package apiclient
