package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

const (
	RoleAdmin     = "ADMIN"
	RoleUser      = "USER"
	RoleAPIClient = "API_CLIENT"
)

var knownRoles = map[string]struct{}{
	RoleAdmin:     {},
	RoleUser:      {},
	RoleAPIClient: {},
}

// ValidRole reports whether the value names a known role.
func ValidRole(value string) bool {
	_, ok := knownRoles[value]
	return ok
}

// NormalizeRole upper-cases and trims a role name, returning "" for unknown roles.
func NormalizeRole(value string) string {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if !ValidRole(normalized) {
		return ""
	}
	return normalized
}

// RoleList is stored as a comma separated column.
type RoleList []string

// Value implements driver.Valuer.
func (r RoleList) Value() (driver.Value, error) {
	return strings.Join(r, ","), nil
}

// Scan implements sql.Scanner.
func (r *RoleList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("models: cannot scan %T into RoleList", src)
	}

	roles := RoleList{}
	for _, part := range strings.Split(raw, ",") {
		if role := NormalizeRole(part); role != "" {
			roles = append(roles, role)
		}
	}
	*r = roles
	return nil
}

// Strings returns the roles as a plain slice, never nil.
func (r RoleList) Strings() []string {
	if len(r) == 0 {
		return []string{}
	}
	out := make([]string, len(r))
	copy(out, r)
	return out
}
