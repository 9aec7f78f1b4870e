// Package session owns the signed-in user, their access token and the bootstrap loading flag
// for a single visitor.
//
// A Store is created loading. Bootstrap runs once in the background: a persisted token is
// revalidated against the gateway and discarded when rejected. Login, Register and Logout run
// one at a time; a call made while another is in flight waits for it to finish. After Close
// results of in-flight calls are still persisted but no longer applied or broadcast.
package session

import (
	"context"
	"sync"
	"time"

	"hopper/internal/auth"
	applog "hopper/internal/log"
	"hopper/internal/storage"
)

// Gateway is the subset of the auth client the store depends on.
type Gateway interface {
	Login(ctx context.Context, payload auth.LoginPayload) (auth.AuthResponse, error)
	Register(ctx context.Context, payload auth.RegisterPayload) (auth.AuthResponse, error)
	CurrentUser(ctx context.Context, token string) (auth.User, error)
	Logout(ctx context.Context, token string) error
}

// Snapshot is a point in time copy of the session state. User is non-nil iff Token is not empty.
type Snapshot struct {
	User      *auth.User
	Token     string
	IsLoading bool
}

// Authenticated reports whether a validated user is present.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp synthesized profiles.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store holds one visitor's session.
type Store struct {
	gw   Gateway
	acc  storage.Accessor
	now  func() time.Time
	slot chan struct{}

	ready chan struct{}

	mu       sync.RWMutex
	state    Snapshot
	closed   bool
	nextID   int
	watchers map[int]func(Snapshot)
}

// New creates a loading Store and starts bootstrap in the background. Bootstrap is detached
// from ctx cancellation but keeps its values.
func New(ctx context.Context, gw Gateway, acc storage.Accessor, opts ...Option) *Store {
	s := &Store{
		gw:       gw,
		acc:      storage.Or(acc),
		now:      time.Now,
		slot:     make(chan struct{}, 1),
		ready:    make(chan struct{}),
		state:    Snapshot{IsLoading: true},
		watchers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Hold the slot before returning so no operation can overtake bootstrap.
	s.slot <- struct{}{}
	go s.bootstrap(context.WithoutCancel(ctx))
	return s
}

func (s *Store) bootstrap(ctx context.Context) {
	defer s.release()
	defer close(s.ready)

	token, ok := s.acc.Read(ctx, storage.TokenKey)
	if !ok {
		s.apply(Snapshot{})
		return
	}

	user, err := s.gw.CurrentUser(ctx, token)
	if err != nil {
		applog.Warn(ctx, "failed to restore auth session", "error", err)
		s.acc.Delete(ctx, storage.TokenKey)
		s.apply(Snapshot{})
		return
	}

	applog.Debug(ctx, "auth session restored", "user", user.Username)
	s.apply(Snapshot{User: &user, Token: token})
}

// Ready is closed once bootstrap has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until bootstrap has finished or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.state)
}

// Login authenticates with the gateway. On failure the state is unchanged and the returned
// error carries a message suitable for display.
func (s *Store) Login(ctx context.Context, payload auth.LoginPayload) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	resp, err := s.gw.Login(ctx, payload)
	if err != nil {
		return err
	}
	return s.hydrate(ctx, resp, auth.FallbackLogin)
}

// Register creates an account and signs it in, with the same contract as Login.
func (s *Store) Register(ctx context.Context, payload auth.RegisterPayload) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	resp, err := s.gw.Register(ctx, payload)
	if err != nil {
		return err
	}
	return s.hydrate(ctx, resp, auth.FallbackRegister)
}

// Logout tells the gateway to drop the current token and clears local state. Gateway failures
// are logged and ignored; on return the user and token are always absent.
func (s *Store) Logout(ctx context.Context) {
	// Cleanup must happen even for a cancelled caller, so only the gateway call observes ctx.
	_ = s.acquire(context.WithoutCancel(ctx))
	defer s.release()

	token := s.Snapshot().Token
	if err := s.gw.Logout(ctx, token); err != nil {
		applog.Warn(ctx, "gateway logout failed", "error", err)
	}

	s.acc.Delete(ctx, storage.TokenKey)
	s.apply(Snapshot{})
}

// Subscribe registers fn for every state change. The returned func cancels the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Close detaches the store. Later results are persisted but not applied.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.watchers = make(map[int]func(Snapshot))
	s.mu.Unlock()
}

func (s *Store) hydrate(ctx context.Context, resp auth.AuthResponse, fallback string) error {
	if resp.AccessToken == "" {
		return &auth.Error{Message: fallback}
	}

	var user auth.User
	if resp.User != nil {
		user = auth.FromSnapshot(*resp.User, s.now().UTC())
	} else {
		fetched, err := s.gw.CurrentUser(ctx, resp.AccessToken)
		if err != nil {
			return &auth.Error{Status: auth.StatusOf(err), Message: fallback, Err: err}
		}
		user = fetched
	}

	s.acc.Write(ctx, storage.TokenKey, resp.AccessToken)
	s.apply(Snapshot{User: &user, Token: resp.AccessToken})
	return nil
}

// apply replaces the state unless the store is closed, then notifies outside the lock.
func (s *Store) apply(next Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = next
	fns := make([]func(Snapshot), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(cloneSnapshot(next))
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.slot
}

func cloneSnapshot(in Snapshot) Snapshot {
	if in.User == nil {
		return in
	}
	user := *in.User
	user.Roles = append([]string{}, in.User.Roles...)
	in.User = &user
	return in
}
