package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute, time.Minute)

	var got entry
	assert.ErrorIs(t, store.Get(ctx, "k", &got), ErrMiss)

	require.NoError(t, store.Set(ctx, "k", entry{Name: "eva", Roles: []string{"a"}}, 0))
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, entry{Name: "eva", Roles: []string{"a"}}, got)

	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "k", "missing"))
	ok, _ = store.Exists(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute, time.Minute)

	require.NoError(t, store.Set(ctx, "k", 1, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var v int
	assert.ErrorIs(t, store.Get(ctx, "k", &v), ErrMiss)
}

func TestInstrumentCountsHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lookups"}, []string{"cache", "result"})
	store := Instrument(NewMemoryStore(time.Minute, time.Minute), "access", lookups)

	var v int
	_ = store.Get(ctx, "k", &v)
	require.NoError(t, store.Set(ctx, "k", 3, 0))
	require.NoError(t, store.Get(ctx, "k", &v))

	assert.Equal(t, 3, v)
	assert.Equal(t, float64(1), counterValue(t, lookups.WithLabelValues("access", "miss")))
	assert.Equal(t, float64(1), counterValue(t, lookups.WithLabelValues("access", "hit")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
