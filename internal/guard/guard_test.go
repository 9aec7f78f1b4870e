package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/auth"
	"hopper/internal/session"
)

var routes = Routes{Login: "/login", Home: "/app"}

func TestEvaluate(t *testing.T) {
	user := &auth.User{ID: "1"}
	cases := []struct {
		name string
		snap session.Snapshot
		want State
	}{
		{name: "loading without user", snap: session.Snapshot{IsLoading: true}, want: Loading},
		{name: "loading with user", snap: session.Snapshot{IsLoading: true, User: user, Token: "T"}, want: Loading},
		{name: "anonymous", snap: session.Snapshot{}, want: Anonymous},
		{name: "authenticated", snap: session.Snapshot{User: user, Token: "T"}, want: Authenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.snap))
		})
	}
}

func TestLoadingOnlyEverWaits(t *testing.T) {
	for _, access := range []Access{Protected, Entry, Open} {
		assert.Equal(t, Decision{Outcome: Wait}, routes.Decide(Loading, access))
	}
}

func TestDecide(t *testing.T) {
	cases := []struct {
		state  State
		access Access
		want   Decision
	}{
		{Anonymous, Protected, Decision{Outcome: Redirect, Target: "/login"}},
		{Anonymous, Entry, Decision{Outcome: Render}},
		{Anonymous, Open, Decision{Outcome: Render}},
		{Authenticated, Protected, Decision{Outcome: Render}},
		{Authenticated, Entry, Decision{Outcome: Redirect, Target: "/app"}},
		{Authenticated, Open, Decision{Outcome: Render}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, routes.Decide(tc.state, tc.access), "%s/%d", tc.state, tc.access)
	}
}

type fakeSource struct {
	mu    sync.Mutex
	snap  session.Snapshot
	watch map[int]func(session.Snapshot)
	next  int
}

func (f *fakeSource) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) Subscribe(fn func(session.Snapshot)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watch == nil {
		f.watch = map[int]func(session.Snapshot){}
	}
	id := f.next
	f.next++
	f.watch[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.watch, id)
	}
}

func (f *fakeSource) publish(s session.Snapshot) {
	f.mu.Lock()
	f.snap = s
	fns := make([]func(session.Snapshot), 0, len(f.watch))
	for _, fn := range f.watch {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func TestFollowReportsEveryTransition(t *testing.T) {
	src := &fakeSource{snap: session.Snapshot{IsLoading: true}}
	var got []State
	stop := Follow(src, func(s State) { got = append(got, s) })

	user := &auth.User{ID: "1"}
	src.publish(session.Snapshot{})
	src.publish(session.Snapshot{})
	src.publish(session.Snapshot{User: user, Token: "T"})
	src.publish(session.Snapshot{})
	stop()
	src.publish(session.Snapshot{User: user, Token: "T"})

	assert.Equal(t, []State{Loading, Anonymous, Authenticated, Anonymous}, got)
}

type gateway struct{}

func (gateway) Login(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
	return auth.AuthResponse{AccessToken: "T", User: &auth.UserSnapshot{ID: "1", Username: "a"}}, nil
}

func (gateway) Register(context.Context, auth.RegisterPayload) (auth.AuthResponse, error) {
	return auth.AuthResponse{}, nil
}

func (gateway) CurrentUser(context.Context, string) (auth.User, error) {
	return auth.User{}, nil
}

func (gateway) Logout(context.Context, string) error { return nil }

func TestFollowSessionStore(t *testing.T) {
	store := session.New(context.Background(), gateway{}, nil)
	t.Cleanup(store.Close)
	require.NoError(t, store.Wait(context.Background()))

	var mu sync.Mutex
	var got []State
	stop := Follow(store, func(s State) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
	})
	defer stop()

	require.NoError(t, store.Login(context.Background(), auth.LoginPayload{}))
	assert.Equal(t, Render, routes.Decide(Evaluate(store.Snapshot()), Protected).Outcome)
	store.Logout(context.Background())
	assert.Equal(t, Decision{Outcome: Redirect, Target: "/login"}, routes.Decide(Evaluate(store.Snapshot()), Protected))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Anonymous, Authenticated, Anonymous}, got)
}
