package models

import (
	"testing"
	"time"
)

func TestValidRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
		want  bool
	}{
		{"admin", RoleAdmin, true},
		{"user", RoleUser, true},
		{"api client", RoleAPIClient, true},
		{"unknown", "OWNER", false},
		{"empty", "", false},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidRole(tt.value); got != tt.want {
				t.Fatalf("ValidRole(%q) = %t, want %t", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	t.Parallel()

	if got := NormalizeRole("  admin "); got != RoleAdmin {
		t.Fatalf("NormalizeRole returned %q, want %q", got, RoleAdmin)
	}

	if got := NormalizeRole("  invalid  "); got != "" {
		t.Fatalf("NormalizeRole returned %q, want empty", got)
	}
}

func TestRoleListScan(t *testing.T) {
	t.Parallel()

	var roles RoleList
	if err := roles.Scan([]byte("USER, admin,bogus")); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(roles) != 2 || roles[0] != RoleUser || roles[1] != RoleAdmin {
		t.Fatalf("unexpected roles %v", roles)
	}

	value, err := roles.Value()
	if err != nil {
		t.Fatalf("Value returned error: %v", err)
	}
	if value != "USER,ADMIN" {
		t.Fatalf("Value = %v, want USER,ADMIN", value)
	}

	if err := roles.Scan(42); err == nil {
		t.Fatal("expected error scanning unsupported type")
	}
}

func TestRecordFailedLoginLocksAtThreshold(t *testing.T) {
	t.Parallel()

	user := &User{Enabled: true}
	for i := 0; i < MaxFailedLoginAttempts-1; i++ {
		user.RecordFailedLogin()
	}
	if user.AccountLocked {
		t.Fatal("account locked before reaching threshold")
	}
	user.RecordFailedLogin()
	if !user.AccountLocked {
		t.Fatal("expected account to be locked at threshold")
	}

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	user.RecordSuccessfulLogin(at)
	if user.FailedLoginAttempts != 0 {
		t.Fatalf("expected counter reset, got %d", user.FailedLoginAttempts)
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(at) {
		t.Fatalf("expected last login %v, got %v", at, user.LastLogin)
	}
}
