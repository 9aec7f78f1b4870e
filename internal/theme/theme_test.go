package theme

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/storage"
)

type recordingMarker struct {
	mu    sync.Mutex
	calls []bool
}

func (m *recordingMarker) Apply(isDark bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, isDark)
}

func (m *recordingMarker) snapshot() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.calls...)
}

func TestParse(t *testing.T) {
	cases := []struct {
		raw   string
		value bool
		ok    bool
	}{
		{raw: "true", value: true, ok: true},
		{raw: "false", value: false, ok: true},
		{raw: "TRUE"},
		{raw: "1"},
		{raw: ""},
	}
	for _, tc := range cases {
		value, ok := Parse(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw %q", tc.raw)
		assert.Equal(t, tc.value, value, "raw %q", tc.raw)
	}
}

func TestNewFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	for _, def := range []bool{true, false} {
		store := New(ctx, storage.NewMemory(0), def)
		assert.Equal(t, def, store.IsDark())
	}
}

func TestNewIgnoresUnparsableValue(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory(0)
	mem.Write(ctx, storage.ThemeKey, "dark")

	store := New(ctx, mem, false)
	assert.False(t, store.IsDark())

	raw, ok := mem.Read(ctx, storage.ThemeKey)
	require.True(t, ok)
	assert.Equal(t, "false", raw)
}

func TestSetRoundTripsThroughStorage(t *testing.T) {
	ctx := context.Background()
	for _, v := range []bool{true, false} {
		mem := storage.NewMemory(0)
		New(ctx, mem, v).Set(ctx, v)
		New(ctx, mem, !v).Set(ctx, v)

		fresh := New(ctx, mem, !v)
		assert.Equal(t, v, fresh.IsDark(), "value %v", v)
	}
}

func TestToggleIsAnInvolution(t *testing.T) {
	ctx := context.Background()
	store := New(ctx, storage.NewMemory(0), true)

	assert.False(t, store.Toggle(ctx))
	assert.True(t, store.Toggle(ctx))
	assert.True(t, store.IsDark())
}

func TestWithoutStorageStillWorks(t *testing.T) {
	ctx := context.Background()
	store := New(ctx, nil, false)

	assert.True(t, store.Toggle(ctx))
	assert.True(t, New(ctx, storage.Nop{}, true).IsDark())
}

func TestMarkerFollowsEveryChange(t *testing.T) {
	ctx := context.Background()
	marker := &recordingMarker{}
	store := New(ctx, storage.NewMemory(0), true, WithMarker(marker))

	store.Toggle(ctx)
	store.Set(ctx, false)
	store.Set(ctx, true)

	assert.Equal(t, []bool{true, false, true}, marker.snapshot())
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	store := New(ctx, storage.NewMemory(0), false)

	var got []Preference
	cancel := store.Subscribe(func(p Preference) { got = append(got, p) })

	store.Toggle(ctx)
	store.Set(ctx, true)
	cancel()
	store.Toggle(ctx)

	assert.Equal(t, []Preference{{IsDark: true}}, got)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "dark", Resolve(true).HTMLClass)
	assert.Empty(t, Resolve(false).HTMLClass)
	assert.NotEqual(t, Resolve(true).BodyClass, Resolve(false).BodyClass)
}
