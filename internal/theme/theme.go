// Package theme owns the dark mode preference of a single visitor.
//
// The preference is seeded from durable storage (or a caller supplied default), persisted on every
// change, and mirrored onto a visual Marker. Views re-render from Preference only.
package theme

import (
	"context"
	"strconv"
	"sync"

	applog "hopper/internal/log"
	"hopper/internal/storage"
)

// Preference is the current theme choice.
type Preference struct {
	IsDark bool `json:"isDark"`
}

// Marker applies the document level visual flag.
type Marker interface {
	Apply(isDark bool)
}

// MarkerFunc adapts a plain function to Marker.
type MarkerFunc func(isDark bool)

func (f MarkerFunc) Apply(isDark bool) { f(isDark) }

// Option customises a Store.
type Option func(*Store)

// WithMarker installs the visual side effect.
func WithMarker(m Marker) Option {
	return func(s *Store) {
		if m != nil {
			s.marker = m
		}
	}
}

// Store holds one visitor's preference.
type Store struct {
	mu      sync.RWMutex
	acc     storage.Accessor
	marker  Marker
	isDark  bool
	nextID  int
	watches map[int]func(Preference)
}

// Parse interprets a stored flag. Only the literals "true" and "false" are accepted.
func Parse(raw string) (value bool, ok bool) {
	switch raw {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// New initializes the store from acc, falling back to defaultDark when nothing usable is stored.
// The resolved value is written back and applied to the marker once.
func New(ctx context.Context, acc storage.Accessor, defaultDark bool, opts ...Option) *Store {
	s := &Store{
		acc:     storage.Or(acc),
		marker:  MarkerFunc(func(bool) {}),
		watches: make(map[int]func(Preference)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.isDark = defaultDark
	if raw, ok := s.acc.Read(ctx, storage.ThemeKey); ok {
		if parsed, valid := Parse(raw); valid {
			s.isDark = parsed
		} else {
			applog.Debug(ctx, "ignoring unparsable theme flag", "value", raw)
		}
	}
	s.acc.Write(ctx, storage.ThemeKey, strconv.FormatBool(s.isDark))
	s.marker.Apply(s.isDark)
	return s
}

// Preference returns the current value.
func (s *Store) Preference() Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Preference{IsDark: s.isDark}
}

// IsDark reports whether dark mode is active.
func (s *Store) IsDark() bool {
	return s.Preference().IsDark
}

// Toggle flips the preference and returns the new value.
func (s *Store) Toggle(ctx context.Context) bool {
	s.mu.Lock()
	s.isDark = !s.isDark
	value := s.isDark
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(value)
	return value
}

// Set stores value. Setting the current value changes nothing.
func (s *Store) Set(ctx context.Context, value bool) {
	s.mu.Lock()
	if s.isDark == value {
		s.mu.Unlock()
		return
	}
	s.isDark = value
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(value)
}

// Subscribe registers fn for every change. The returned func cancels the subscription.
func (s *Store) Subscribe(fn func(Preference)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watches[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watches, id)
		s.mu.Unlock()
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	s.acc.Write(ctx, storage.ThemeKey, strconv.FormatBool(s.isDark))
	s.marker.Apply(s.isDark)
}

func (s *Store) notify(value bool) {
	s.mu.RLock()
	fns := make([]func(Preference), 0, len(s.watches))
	for _, fn := range s.watches {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(Preference{IsDark: value})
	}
}
