package cache

import (
	"context"
	"errors"
)

// Tiered serves reads from front and falls back to origin, filling front on
// an origin hit. Writes go to origin first.
type Tiered struct {
	front  Store
	origin Store
}

func NewTiered(front, origin Store) *Tiered {
	return &Tiered{front: front, origin: origin}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if raw, ok, err := t.front.Get(ctx, key); err == nil && ok {
		return raw, true, nil
	}
	raw, ok, err := t.origin.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.front.Set(ctx, key, raw)
	return raw, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	if err := t.origin.Set(ctx, key, value); err != nil {
		return err
	}
	return t.front.Set(ctx, key, value)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.origin.Delete(ctx, key), t.front.Delete(ctx, key))
}

// Clear empties both tiers. Either tier may refuse.
func (t *Tiered) Clear(ctx context.Context) error {
	return errors.Join(Clear(ctx, t.origin), Clear(ctx, t.front))
}

// Close closes both tiers.
func (t *Tiered) Close() error {
	return errors.Join(t.front.Close(), t.origin.Close())
}
