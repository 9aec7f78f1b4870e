package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// User facing messages used when the gateway gives no usable reason.
const (
	FallbackLogin       = "Unable to log in with those credentials"
	FallbackRegister    = "Unable to create your account right now"
	FallbackCurrentUser = "Unable to load the current user"
	FallbackLogout      = "Unable to sign out right now"
	FallbackPlatforms   = "Unable to load platforms"
)

const maxErrorBody = 64 << 10

// Error is returned for every failed gateway call. Message is safe to show to the user.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0 for transport failures and foreign errors.
func StatusOf(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return 0
}

// MessageOf returns the user facing message of err, or fallback when err is not a gateway error.
func MessageOf(err error, fallback string) string {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	return fallback
}

// buildError prefers the message, error or details field of a JSON payload, in that order.
func buildError(resp *http.Response, fallback string) *Error {
	out := &Error{Status: resp.StatusCode, Message: fallback}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return out
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		out.Err = err
		return out
	}
	for _, field := range []string{"message", "error", "details"} {
		if text, ok := payload[field].(string); ok && strings.TrimSpace(text) != "" {
			out.Message = text
			break
		}
	}
	return out
}

func transportError(err error, fallback string) *Error {
	return &Error{Message: fallback, Err: err}
}
