package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

type mapStore map[string][]byte

func (m mapStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m[key] = value
	return nil
}

func (m mapStore) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

type entry struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := mapStore{}

	require.NoError(t, SetJSON(ctx, store, "invoices:1", entry{ID: "1", Amount: "10.00"}, time.Minute))

	var got entry
	require.NoError(t, GetJSON(ctx, store, "invoices:1", &got))
	assert.Equal(t, entry{ID: "1", Amount: "10.00"}, got)
}

func TestGetJSONDropsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store := mapStore{"invoices:1": []byte("{not json")}

	var got entry
	assert.ErrorIs(t, GetJSON(ctx, store, "invoices:1", &got), ErrCacheMiss)
	assert.NotContains(t, store, "invoices:1")
}

func TestNoopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	store := Noop()
	require.NoError(t, SetJSON(ctx, store, "k", entry{ID: "1"}, 0))

	var got entry
	assert.ErrorIs(t, GetJSON(ctx, store, "k", &got), ErrCacheMiss)
}

func TestNewStoreSelectsDriver(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	store, err := NewStore(lc, config.Config{Cache: config.Cache{Driver: "noop"}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, noopStore{}, store)

	_, err = NewStore(lc, config.Config{Cache: config.Cache{Driver: "memcached"}}, zap.NewNop())
	assert.Error(t, err)
}
