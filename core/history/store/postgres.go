package store

import (
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists results to PostgreSQL through the pgx driver.
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore connects to dsn and ensures schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	schema := `CREATE TABLE IF NOT EXISTS ` + table + ` (
        id BIGSERIAL PRIMARY KEY,
        plan_id TEXT NOT NULL,
        algorithm TEXT NOT NULL,
        created_at BIGINT NOT NULL,
        record JSONB NOT NULL
    );`
	db, err := openSQL("pgx", dsn, schema, true)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{sqlStore{
		db:     db,
		record: "record::text",
		bind:   func(n int) string { return "$" + strconv.Itoa(n) },
	}}, nil
}
