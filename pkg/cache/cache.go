package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a JSON value cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type instrumented struct {
	Store
	name    string
	lookups *prometheus.CounterVec
}

// Instrument counts Get hits, misses and errors on lookups, labelled
// with name. A nil counter returns store unchanged.
func Instrument(store Store, name string, lookups *prometheus.CounterVec) Store {
	if lookups == nil {
		return store
	}
	return &instrumented{Store: store, name: name, lookups: lookups}
}

func (s *instrumented) Get(ctx context.Context, key string, dest interface{}) error {
	err := s.Store.Get(ctx, key, dest)
	switch {
	case err == nil:
		s.lookups.WithLabelValues(s.name, "hit").Inc()
	case errors.Is(err, ErrMiss):
		s.lookups.WithLabelValues(s.name, "miss").Inc()
	default:
		s.lookups.WithLabelValues(s.name, "error").Inc()
	}
	return err
}
