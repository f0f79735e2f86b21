package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/rakeform/core/history"
)

type opener func(ctx context.Context, cfg history.Config) (history.Store, error)

var backends = map[string]opener{
	"memory": func(context.Context, history.Config) (history.Store, error) { return nil, nil },
	"jsonl": func(_ context.Context, c history.Config) (history.Store, error) {
		s, err := NewJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"sqlite": func(_ context.Context, c history.Config) (history.Store, error) {
		s, err := NewSQLiteStore(c.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"postgres": func(_ context.Context, c history.Config) (history.Store, error) {
		s, err := NewPostgresStore(c.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"redis": func(ctx context.Context, c history.Config) (history.Store, error) {
		s, err := NewRedisStore(ctx, c.URL, c.Key)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
}

// Backends lists the supported backend names.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New opens the store selected by cfg. The memory backend has no store and
// yields nil.
func New(ctx context.Context, cfg history.Config) (history.Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	open, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("history: unknown backend %s", cfg.Backend)
	}
	st, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s history store: %w", cfg.Backend, err)
	}
	return st, nil
}
