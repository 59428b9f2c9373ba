// Package cache memoizes review results. Stores are scoped resources: whoever
// opens one closes it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"spanreview/internal/span"
)

// Store is a byte-oriented key/value cache backend. Deleting a missing key
// is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by stores that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

var ErrClearUnsupported = errors.New("cache: store cannot be cleared")

// Clear empties s if it supports it.
func Clear(ctx context.Context, s Store) error {
	c, ok := s.(Clearer)
	if !ok {
		return ErrClearUnsupported
	}
	return c.Clear(ctx)
}

// KeyOf hashes parts into a stable key. Each part is length-prefixed so
// ("ab","c") and ("a","bc") differ.
func KeyOf(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type MetricsSnapshot struct {
	Hits      uint64
	Misses    uint64
	ReadErr   uint64
	DecodeErr uint64
	WriteErr  uint64
}

// Memo caches span lists computed by an expensive function.
type Memo struct {
	store Store

	hits      atomic.Uint64
	misses    atomic.Uint64
	readErr   atomic.Uint64
	decodeErr atomic.Uint64
	writeErr  atomic.Uint64
}

func NewMemo(store Store) *Memo { return &Memo{store: store} }

type entry struct {
	Version int             `msgpack:"v"`
	Spans   []span.Resolved `msgpack:"spans"`
}

const entryVersion = 1

// Spans returns the cached spans for key, or calls compute and stores its
// result. Read errors and undecodable entries count as misses, and an
// undecodable entry is deleted. A failed write is counted but does not fail
// the call.
func (m *Memo) Spans(ctx context.Context, key string, compute func(context.Context) ([]span.Resolved, error)) ([]span.Resolved, bool, error) {
	if m == nil || m.store == nil {
		out, err := compute(ctx)
		return out, false, err
	}
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.readErr.Add(1)
		ok = false
	}
	if ok {
		var e entry
		if err := msgpack.Unmarshal(raw, &e); err == nil && e.Version == entryVersion {
			m.hits.Add(1)
			if e.Spans == nil {
				e.Spans = []span.Resolved{}
			}
			return e.Spans, true, nil
		}
		m.decodeErr.Add(1)
		_ = m.store.Delete(ctx, key)
	}
	m.misses.Add(1)

	out, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	enc, err := msgpack.Marshal(entry{Version: entryVersion, Spans: out})
	if err != nil {
		return nil, false, fmt.Errorf("cache: encode: %w", err)
	}
	if err := m.store.Set(ctx, key, enc); err != nil {
		m.writeErr.Add(1)
	}
	return out, false, nil
}

func (m *Memo) Metrics() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		ReadErr:   m.readErr.Load(),
		DecodeErr: m.decodeErr.Load(),
		WriteErr:  m.writeErr.Load(),
	}
}
