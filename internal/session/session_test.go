package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/auth"
	"hopper/internal/storage"
)

type stubGateway struct {
	login       func(context.Context, auth.LoginPayload) (auth.AuthResponse, error)
	register    func(context.Context, auth.RegisterPayload) (auth.AuthResponse, error)
	currentUser func(context.Context, string) (auth.User, error)
	logout      func(context.Context, string) error
}

func (g *stubGateway) Login(ctx context.Context, p auth.LoginPayload) (auth.AuthResponse, error) {
	if g.login == nil {
		return auth.AuthResponse{}, errors.New("unexpected login")
	}
	return g.login(ctx, p)
}

func (g *stubGateway) Register(ctx context.Context, p auth.RegisterPayload) (auth.AuthResponse, error) {
	if g.register == nil {
		return auth.AuthResponse{}, errors.New("unexpected register")
	}
	return g.register(ctx, p)
}

func (g *stubGateway) CurrentUser(ctx context.Context, token string) (auth.User, error) {
	if g.currentUser == nil {
		return auth.User{}, errors.New("unexpected profile fetch")
	}
	return g.currentUser(ctx, token)
}

func (g *stubGateway) Logout(ctx context.Context, token string) error {
	if g.logout == nil {
		return nil
	}
	return g.logout(ctx, token)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newReadyStore(t *testing.T, gw Gateway, acc storage.Accessor) *Store {
	t.Helper()
	store := New(context.Background(), gw, acc, WithClock(func() time.Time { return fixedNow }))
	t.Cleanup(store.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, store.Wait(ctx))
	return store
}

// gatewayServer serves the auth endpoints from a handler map keyed by path.
func gatewayServer(t *testing.T, routes map[string]http.HandlerFunc) *auth.Client {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := auth.NewClient(auth.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestBootstrapWithoutTokenIsAnonymous(t *testing.T) {
	store := newReadyStore(t, &stubGateway{}, storage.NewMemory(0))

	if diff := cmp.Diff(Snapshot{}, store.Snapshot()); diff != "" {
		t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
	}
}

func TestStoreStartsLoading(t *testing.T) {
	release := make(chan struct{})
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "T")

	store := New(context.Background(), &stubGateway{
		currentUser: func(ctx context.Context, token string) (auth.User, error) {
			<-release
			return auth.User{ID: "1", Username: "a"}, nil
		},
	}, mem)
	t.Cleanup(store.Close)

	snap := store.Snapshot()
	assert.True(t, snap.IsLoading)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)

	close(release)
	require.NoError(t, store.Wait(context.Background()))
	assert.False(t, store.Snapshot().IsLoading)
}

func TestBootstrapWithAcceptedToken(t *testing.T) {
	gw := gatewayServer(t, map[string]http.HandlerFunc{
		"/api/auth/me": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"id": "1", "username": "a", "roles": []string{"USER"}, "enabled": true})
		},
	})
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "T")

	store := newReadyStore(t, gw, mem)

	snap := store.Snapshot()
	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.User)
	assert.Equal(t, "a", snap.User.Username)
	assert.Equal(t, "T", snap.Token)

	persisted, ok := mem.Read(context.Background(), storage.TokenKey)
	require.True(t, ok)
	assert.Equal(t, "T", persisted)
}

func TestBootstrapWithRejectedTokenClearsIt(t *testing.T) {
	gw := gatewayServer(t, map[string]http.HandlerFunc{
		"/api/auth/me": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
		},
	})
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "stale")

	store := newReadyStore(t, gw, mem)

	snap := store.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)

	_, ok := mem.Read(context.Background(), storage.TokenKey)
	assert.False(t, ok, "rejected token must be removed from storage")
}

func TestLoginWithEmbeddedSnapshot(t *testing.T) {
	gw := gatewayServer(t, map[string]http.HandlerFunc{
		"/api/auth/login": func(w http.ResponseWriter, r *http.Request) {
			var payload auth.LoginPayload
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, auth.LoginPayload{UsernameOrEmail: "a@b.com", Password: "x", RememberMe: true}, payload)

			writeJSON(w, http.StatusOK, map[string]any{
				"accessToken": "T",
				"user": map[string]any{
					"id": "1", "username": "a", "email": "a@b.com", "roles": []string{},
					"enabled": true, "accountLocked": false, "lastLogin": "2025-05-31T08:00:00",
				},
			})
		},
	})
	mem := storage.NewMemory(0)
	store := newReadyStore(t, gw, mem)

	err := store.Login(context.Background(), auth.LoginPayload{UsernameOrEmail: "a@b.com", Password: "x", RememberMe: true})
	require.NoError(t, err)

	want := Snapshot{
		Token: "T",
		User: &auth.User{
			ID:        "1",
			Username:  "a",
			Email:     "a@b.com",
			Enabled:   true,
			Roles:     []string{},
			CreatedAt: auth.Timestamp{Time: fixedNow},
			UpdatedAt: auth.Timestamp{Time: fixedNow},
		},
	}
	if diff := cmp.Diff(want, store.Snapshot()); diff != "" {
		t.Fatalf("unexpected snapshot (-want +got):\n%s", diff)
	}

	persisted, ok := mem.Read(context.Background(), storage.TokenKey)
	require.True(t, ok)
	assert.Equal(t, "T", persisted)
}

func TestLoginRejectedLeavesStateUnchanged(t *testing.T) {
	gw := gatewayServer(t, map[string]http.HandlerFunc{
		"/api/auth/login": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		},
		"/api/auth/me": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "1", "username": "prior", "roles": []string{}})
		},
	})
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "prior-token")
	store := newReadyStore(t, gw, mem)
	before := store.Snapshot()
	require.NotNil(t, before.User)

	err := store.Login(context.Background(), auth.LoginPayload{UsernameOrEmail: "a", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "Bad credentials", err.Error())

	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Fatalf("state changed after failed login (-before +after):\n%s", diff)
	}
	persisted, _ := mem.Read(context.Background(), storage.TokenKey)
	assert.Equal(t, "prior-token", persisted)
}

func TestRegisterUsesRegistrationEndpoint(t *testing.T) {
	gw := gatewayServer(t, map[string]http.HandlerFunc{
		"/api/auth/register": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, map[string]any{
				"accessToken": "R",
				"user":        map[string]any{"id": "2", "username": "newbie", "roles": []string{"USER"}, "enabled": true},
			})
		},
	})
	store := newReadyStore(t, gw, storage.NewMemory(0))

	require.NoError(t, store.Register(context.Background(), auth.RegisterPayload{Username: "newbie", Email: "n@b.com", Password: "password1"}))

	snap := store.Snapshot()
	assert.Equal(t, "R", snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "newbie", snap.User.Username)
}

func TestRegisterFailureUsesFallback(t *testing.T) {
	gw := gatewayServer(t, map[string]http.HandlerFunc{
		"/api/auth/register": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	store := newReadyStore(t, gw, storage.NewMemory(0))

	err := store.Register(context.Background(), auth.RegisterPayload{Username: "x"})
	require.Error(t, err)
	assert.Equal(t, auth.FallbackRegister, err.Error())
	assert.Equal(t, Snapshot{}, store.Snapshot())
}

func TestLoginWithoutSnapshotFetchesProfile(t *testing.T) {
	gw := &stubGateway{
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			return auth.AuthResponse{AccessToken: "T"}, nil
		},
		currentUser: func(_ context.Context, token string) (auth.User, error) {
			assert.Equal(t, "T", token)
			return auth.User{ID: "1", Username: "fetched", FailedLoginAttempts: 1}, nil
		},
	}
	store := newReadyStore(t, gw, storage.NewMemory(0))

	require.NoError(t, store.Login(context.Background(), auth.LoginPayload{}))
	snap := store.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "fetched", snap.User.Username)
	assert.Equal(t, 1, snap.User.FailedLoginAttempts)
}

func TestLoginWithoutSnapshotAndFailedFetchKeepsState(t *testing.T) {
	mem := storage.NewMemory(0)
	gw := &stubGateway{
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			return auth.AuthResponse{AccessToken: "T"}, nil
		},
		currentUser: func(context.Context, string) (auth.User, error) {
			return auth.User{}, &auth.Error{Status: http.StatusBadGateway, Message: "down"}
		},
	}
	store := newReadyStore(t, gw, mem)

	err := store.Login(context.Background(), auth.LoginPayload{})
	require.Error(t, err)
	assert.Equal(t, auth.FallbackLogin, err.Error())
	assert.Equal(t, http.StatusBadGateway, auth.StatusOf(err))
	assert.Equal(t, Snapshot{}, store.Snapshot())

	_, ok := mem.Read(context.Background(), storage.TokenKey)
	assert.False(t, ok)
}

func TestLoginWithoutTokenFails(t *testing.T) {
	gw := &stubGateway{
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			return auth.AuthResponse{}, nil
		},
	}
	store := newReadyStore(t, gw, storage.NewMemory(0))

	err := store.Login(context.Background(), auth.LoginPayload{})
	require.Error(t, err)
	assert.Equal(t, auth.FallbackLogin, err.Error())
}

func TestLogoutClearsStateEvenWhenGatewayFails(t *testing.T) {
	seenAuth := make(chan string, 1)
	gw := gatewayServer(t, map[string]http.HandlerFunc{
		"/api/auth/me": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "1", "username": "a", "roles": []string{}})
		},
		"/api/auth/logout": func(w http.ResponseWriter, r *http.Request) {
			seenAuth <- r.Header.Get("Authorization")
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "T")
	store := newReadyStore(t, gw, mem)
	require.True(t, store.Snapshot().Authenticated())

	store.Logout(context.Background())

	assert.Equal(t, "Bearer T", <-seenAuth)
	assert.Equal(t, Snapshot{}, store.Snapshot())
	_, ok := mem.Read(context.Background(), storage.TokenKey)
	assert.False(t, ok)
}

func TestLogoutWithCancelledContextStillClears(t *testing.T) {
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "T")
	store := newReadyStore(t, &stubGateway{
		currentUser: func(context.Context, string) (auth.User, error) { return auth.User{ID: "1"}, nil },
		logout:      func(ctx context.Context, _ string) error { return ctx.Err() },
	}, mem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.Logout(ctx)

	assert.Equal(t, Snapshot{}, store.Snapshot())
}

func TestOperationsAreSerialized(t *testing.T) {
	loginStarted := make(chan struct{})
	releaseLogin := make(chan struct{})
	gw := &stubGateway{
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			close(loginStarted)
			<-releaseLogin
			return auth.AuthResponse{AccessToken: "T", User: &auth.UserSnapshot{ID: "1", Username: "a"}}, nil
		},
	}
	store := newReadyStore(t, gw, storage.NewMemory(0))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, store.Login(context.Background(), auth.LoginPayload{}))
	}()
	<-loginStarted

	logoutDone := make(chan struct{})
	go func() {
		store.Logout(context.Background())
		close(logoutDone)
	}()

	select {
	case <-logoutDone:
		t.Fatal("logout overtook an in-flight login")
	case <-time.After(30 * time.Millisecond):
	}

	close(releaseLogin)
	wg.Wait()
	<-logoutDone

	assert.Equal(t, Snapshot{}, store.Snapshot(), "the later logout must win")
}

func TestLoginWaitsForBootstrap(t *testing.T) {
	release := make(chan struct{})
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "old")
	gw := &stubGateway{
		currentUser: func(context.Context, string) (auth.User, error) {
			<-release
			return auth.User{}, errors.New("expired")
		},
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			return auth.AuthResponse{AccessToken: "new", User: &auth.UserSnapshot{ID: "1", Username: "a"}}, nil
		},
	}
	store := New(context.Background(), gw, mem)
	t.Cleanup(store.Close)

	done := make(chan error, 1)
	go func() { done <- store.Login(context.Background(), auth.LoginPayload{}) }()

	time.Sleep(20 * time.Millisecond)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "new", store.Snapshot().Token)
	persisted, _ := mem.Read(context.Background(), storage.TokenKey)
	assert.Equal(t, "new", persisted)
}

func TestAcquireHonoursContext(t *testing.T) {
	release := make(chan struct{})
	mem := storage.NewMemory(0)
	mem.Write(context.Background(), storage.TokenKey, "T")
	store := New(context.Background(), &stubGateway{
		currentUser: func(context.Context, string) (auth.User, error) {
			<-release
			return auth.User{ID: "1"}, nil
		},
	}, mem)
	t.Cleanup(func() {
		close(release)
		store.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := store.Login(ctx, auth.LoginPayload{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.ErrorIs(t, store.Wait(ctx), context.DeadlineExceeded)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	gw := &stubGateway{
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			return auth.AuthResponse{AccessToken: "T", User: &auth.UserSnapshot{ID: "1", Username: "a"}}, nil
		},
	}
	store := newReadyStore(t, gw, storage.NewMemory(0))

	var mu sync.Mutex
	var seen []bool
	cancel := store.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Authenticated())
	})

	require.NoError(t, store.Login(context.Background(), auth.LoginPayload{}))
	store.Logout(context.Background())
	cancel()
	require.NoError(t, store.Login(context.Background(), auth.LoginPayload{}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, seen)
}

func TestCloseStopsApplyingResults(t *testing.T) {
	mem := storage.NewMemory(0)
	gw := &stubGateway{
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			return auth.AuthResponse{AccessToken: "T", User: &auth.UserSnapshot{ID: "1", Username: "a"}}, nil
		},
	}
	store := newReadyStore(t, gw, mem)

	notified := false
	store.Subscribe(func(Snapshot) { notified = true })
	store.Close()

	require.NoError(t, store.Login(context.Background(), auth.LoginPayload{}))
	assert.False(t, notified)
	assert.Nil(t, store.Snapshot().User)

	persisted, ok := mem.Read(context.Background(), storage.TokenKey)
	require.True(t, ok)
	assert.Equal(t, "T", persisted)
}

func TestSnapshotIsACopy(t *testing.T) {
	gw := &stubGateway{
		login: func(context.Context, auth.LoginPayload) (auth.AuthResponse, error) {
			return auth.AuthResponse{AccessToken: "T", User: &auth.UserSnapshot{ID: "1", Username: "a", Roles: []string{"USER"}}}, nil
		},
	}
	store := newReadyStore(t, gw, storage.NewMemory(0))
	require.NoError(t, store.Login(context.Background(), auth.LoginPayload{}))

	snap := store.Snapshot()
	snap.User.Username = "mutated"
	snap.User.Roles[0] = "ADMIN"

	again := store.Snapshot()
	assert.Equal(t, "a", again.User.Username)
	assert.Equal(t, []string{"USER"}, again.User.Roles)
}
