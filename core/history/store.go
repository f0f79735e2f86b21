package history

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/rakeform/core/model"
)

// Query filters stored results. Zero values match everything.
type Query struct {
	Algorithm string
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Match reports whether a result passes the filter (Limit aside).
func (q Query) Match(r model.FormationResult) bool {
	if q.Algorithm != "" && r.Plan.Algorithm != q.Algorithm {
		return false
	}
	if !q.Since.IsZero() && r.Plan.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.Plan.CreatedAt.After(q.Until) {
		return false
	}
	return true
}

// Apply filters results in order and keeps the most recent Limit entries.
func (q Query) Apply(in []model.FormationResult) []model.FormationResult {
	out := make([]model.FormationResult, 0, len(in))
	for _, r := range in {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Store persists formation results so a history survives restarts.
type Store interface {
	Append(ctx context.Context, res model.FormationResult) error
	List(ctx context.Context, q Query) ([]model.FormationResult, error)
	Clear(ctx context.Context) error
	Close() error
}

// Config selects and tunes the history store.
type Config struct {
	// Backend is one of memory, jsonl, sqlite, postgres or redis.
	Backend string `json:"backend"`
	// Path is the file location of the jsonl and sqlite stores.
	Path string `json:"path"`
	// DSN is the postgres connection string.
	DSN string `json:"dsn"`
	// URL is the redis connection URL.
	URL string `json:"url"`
	// Key is the redis list holding the results.
	Key string `json:"key"`
	// MaxSizeMB triggers jsonl rotation when the file exceeds this size.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "formations.jsonl"
		case "sqlite":
			c.Path = "formations.db"
		}
	}
	if c.Key == "" {
		c.Key = "rakeform:formations"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 50
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory":
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("history: path is required for %s", c.Backend)
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("history: dsn is required for postgres")
		}
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("history: url is required for redis")
		}
	default:
		return fmt.Errorf("history: unknown backend %s", c.Backend)
	}
	return nil
}
