package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spanreview/internal/cache/memory"
	"spanreview/internal/span"
)

type mapStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	closed  bool
	getHits int
	deleted []string
}

func newMapStore() *mapStore { return &mapStore{data: map[string][]byte{}} }

func (m *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	if ok {
		m.getHits++
	}
	return v, ok, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.data, key)
	return nil
}

func (m *mapStore) Close() error { m.closed = true; return nil }

func TestKeyOf(t *testing.T) {
	assert.Equal(t, KeyOf("a", "b"), KeyOf("a", "b"))
	assert.NotEqual(t, KeyOf("ab", "c"), KeyOf("a", "bc"))
	assert.NotEqual(t, KeyOf("a"), KeyOf("a", ""))
	assert.Len(t, KeyOf(), 64)
}

func TestMemo_HitSkipsCompute(t *testing.T) {
	memo := NewMemo(newMapStore())
	ctx := context.Background()
	want := []span.Resolved{{Start: 0, Stop: 5, Reason: "a"}, {Start: 9, Stop: 12, Reason: "b\n...\nc"}}
	calls := 0
	compute := func(context.Context) ([]span.Resolved, error) {
		calls++
		return want, nil
	}

	got, hit, err := memo.Spans(ctx, "k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, want, got)

	got, hit, err = memo.Spans(ctx, "k", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, MetricsSnapshot{Hits: 1, Misses: 1}, memo.Metrics())
}

func TestMemo_EmptyResultIsCached(t *testing.T) {
	memo := NewMemo(newMapStore())
	ctx := context.Background()
	compute := func(context.Context) ([]span.Resolved, error) { return []span.Resolved{}, nil }

	_, _, err := memo.Spans(ctx, "k", compute)
	require.NoError(t, err)
	got, hit, err := memo.Spans(ctx, "k", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Empty(t, got)
}

func TestMemo_ComputeErrorNotCached(t *testing.T) {
	store := newMapStore()
	memo := NewMemo(store)
	boom := errors.New("llm down")

	_, _, err := memo.Spans(context.Background(), "k", func(context.Context) ([]span.Resolved, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.data)
}

func TestMemo_CorruptEntryRecomputed(t *testing.T) {
	store := newMapStore()
	store.data["k"] = []byte("garbage")
	memo := NewMemo(store)

	got, hit, err := memo.Spans(context.Background(), "k", func(context.Context) ([]span.Resolved, error) {
		return []span.Resolved{{Start: 1, Stop: 2}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, got, 1)
	assert.Equal(t, uint64(1), memo.Metrics().DecodeErr)
	assert.Equal(t, []string{"k"}, store.deleted)
	assert.NotEqual(t, []byte("garbage"), store.data["k"])
}

func TestMemo_StoreErrorsDoNotFailTheCall(t *testing.T) {
	store := newMapStore()
	store.getErr = errors.New("network")
	store.setErr = errors.New("network")
	memo := NewMemo(store)

	got, _, err := memo.Spans(context.Background(), "k", func(context.Context) ([]span.Resolved, error) {
		return []span.Resolved{{Start: 1, Stop: 2}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	m := memo.Metrics()
	assert.Equal(t, uint64(1), m.ReadErr)
	assert.Equal(t, uint64(1), m.WriteErr)
}

func TestMemo_NilStoreComputes(t *testing.T) {
	var memo *Memo
	got, hit, err := memo.Spans(context.Background(), "k", func(context.Context) ([]span.Resolved, error) {
		return []span.Resolved{{Start: 1, Stop: 2}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, got, 1)
}

func TestTiered_FillsFrontFromOrigin(t *testing.T) {
	front := memory.New(10, time.Minute)
	origin := newMapStore()
	origin.data["k"] = []byte("v")
	tiered := NewTiered(front, origin)
	ctx := context.Background()

	raw, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(raw))

	_, ok, err = front.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "front should be filled on origin hit")

	_, _, err = tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, origin.getHits, "second read served by front")

	require.NoError(t, tiered.Set(ctx, "k2", []byte("w")))
	assert.Equal(t, []byte("w"), origin.data["k2"])

	require.NoError(t, tiered.Close())
	assert.True(t, origin.closed)
}

func TestTiered_MissAndOriginWriteError(t *testing.T) {
	front := memory.New(10, time.Minute)
	origin := newMapStore()
	origin.setErr = errors.New("read only")
	tiered := NewTiered(front, origin)
	ctx := context.Background()

	_, ok, err := tiered.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, tiered.Set(ctx, "k", []byte("v")))
	_, ok, _ = front.Get(ctx, "k")
	assert.False(t, ok, "front must not get values the origin rejected")
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, Clear(ctx, newMapStore()), ErrClearUnsupported)

	front, origin := memory.New(10, time.Minute), memory.New(10, time.Minute)
	tiered := NewTiered(front, origin)
	require.NoError(t, tiered.Set(ctx, "k", []byte("v")))
	require.NoError(t, Clear(ctx, tiered))
	assert.Zero(t, front.Len())
	assert.Zero(t, origin.Len())

	mixed := NewTiered(memory.New(10, time.Minute), newMapStore())
	assert.ErrorIs(t, Clear(ctx, mixed), ErrClearUnsupported)
}

func TestTiered_DeleteHitsBothTiers(t *testing.T) {
	front := memory.New(10, time.Minute)
	origin := newMapStore()
	tiered := NewTiered(front, origin)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, "k", []byte("v")))
	require.NoError(t, tiered.Delete(ctx, "k"))
	_, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"k"}, origin.deleted)
}
