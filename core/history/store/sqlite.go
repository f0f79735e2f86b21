package store

import (
	_ "modernc.org/sqlite"
)

// SQLiteStore persists results to a SQLite database.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	schema := `CREATE TABLE IF NOT EXISTS ` + table + ` (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        plan_id TEXT,
        algorithm TEXT,
        created_at INTEGER,
        record TEXT
    );`
	db, err := openSQL("sqlite", path, schema, false)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore{db: db, record: "record", bind: func(int) string { return "?" }}}, nil
}
