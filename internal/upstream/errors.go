package upstream

import (
	"encoding/json"
	"errors"
	"strings"
)

const GenericMessage = "Something went wrong"

var (
	// ErrUnauthorized matches any 401 answer; the caller's session is over.
	ErrUnauthorized = errors.New("backend session expired")
	ErrUnavailable  = errors.New("backend unavailable")
)

// Error is a failure reported by the backend. Message is safe to show to
// the user.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == 401
}

// extractMessage reads the "error" field, then "message", and falls back to
// GenericMessage.
func extractMessage(body []byte) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return GenericMessage
	}
	if s, ok := payload.Error.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	if strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	return GenericMessage
}

// Message returns the text to surface for err.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return "Backend is unavailable, please try again"
	}
	return GenericMessage
}
