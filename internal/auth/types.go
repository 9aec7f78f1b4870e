package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LoginPayload carries the credentials submitted by the login form.
type LoginPayload struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
	RememberMe      bool   `json:"rememberMe"`
}

// RegisterPayload carries the details of a new account.
type RegisterPayload struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// UserSnapshot is the abbreviated profile embedded in login and register responses.
type UserSnapshot struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	Roles         []string  `json:"roles"`
	Enabled       bool      `json:"enabled"`
	AccountLocked bool      `json:"accountLocked"`
	LastLogin     Timestamp `json:"lastLogin"`
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	AccessToken      string        `json:"accessToken"`
	RefreshToken     *string       `json:"refreshToken"`
	TokenType        string        `json:"tokenType"`
	ExpiresIn        int64         `json:"expiresIn"`
	RefreshExpiresIn int64         `json:"refreshExpiresIn"`
	User             *UserSnapshot `json:"user,omitempty"`
}

// User is the full profile served by /api/auth/me.
type User struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email,omitempty"`
	Enabled             bool      `json:"enabled"`
	AccountLocked       bool      `json:"accountLocked"`
	FailedLoginAttempts int       `json:"failedLoginAttempts"`
	Roles               []string  `json:"roles"`
	CreatedAt           Timestamp `json:"createdAt"`
	UpdatedAt           Timestamp `json:"updatedAt"`
}

// FromSnapshot builds a full profile from an embedded snapshot. Fields the snapshot lacks are
// synthesized: both timestamps are set to now and the failure counter is zero.
func FromSnapshot(s UserSnapshot, now time.Time) User {
	roles := append([]string{}, s.Roles...)
	return User{
		ID:                  s.ID,
		Username:            s.Username,
		Email:               s.Email,
		Enabled:             s.Enabled,
		AccountLocked:       s.AccountLocked,
		FailedLoginAttempts: 0,
		Roles:               roles,
		CreatedAt:           Timestamp{Time: now},
		UpdatedAt:           Timestamp{Time: now},
	}
}

// Platform is a sales channel record.
type Platform struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlatformType string `json:"platformType"`
}

// localDateTime is the zone-less layout some backends emit for instants.
const localDateTime = "2006-01-02T15:04:05.999999999"

// Timestamp decodes RFC 3339 instants as well as zone-less local date-times (read as UTC).
// A null or empty value leaves it zero, and a zero Timestamp encodes as null.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("auth: timestamp must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(localDateTime, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("auth: unrecognised timestamp %q", raw)
	}
	t.Time = parsed
	return nil
}
