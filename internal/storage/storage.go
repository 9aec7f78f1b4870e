// Package storage provides the durable key-value medium behind the theme and session
// stores. Accessors never fail: a backend error is logged and the key is treated as absent.
package storage

import (
	"context"
	"strings"
)

const (
	// ThemeKey holds the dark mode flag as the literal "true" or "false".
	ThemeKey = "hopper.theme.isDark"
	// TokenKey holds the opaque access token of the signed-in user.
	TokenKey = "hopper.auth.accessToken"
)

// Accessor reads and writes scalar string values.
//
// Writing an empty value removes the key, so "absent" and "" are the same thing to callers.
type Accessor interface {
	Read(ctx context.Context, key string) (string, bool)
	Write(ctx context.Context, key, value string)
	Delete(ctx context.Context, key string)
}

// Nop is the accessor used when no durable medium is available. Reads report absent and
// writes are discarded.
type Nop struct{}

func (Nop) Read(context.Context, string) (string, bool) { return "", false }
func (Nop) Write(context.Context, string, string)       {}
func (Nop) Delete(context.Context, string)              {}

// Or returns acc, or Nop when acc is nil.
func Or(acc Accessor) Accessor {
	if acc == nil {
		return Nop{}
	}
	return acc
}

type scoped struct {
	next   Accessor
	prefix string
}

// Scoped confines every key to namespace, so independent owners can share one backend.
func Scoped(acc Accessor, namespace string) Accessor {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		return Or(acc)
	}
	return &scoped{next: Or(acc), prefix: namespace + ":"}
}

func (s *scoped) Read(ctx context.Context, key string) (string, bool) {
	return s.next.Read(ctx, s.prefix+key)
}

func (s *scoped) Write(ctx context.Context, key, value string) {
	s.next.Write(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) {
	s.next.Delete(ctx, s.prefix+key)
}
