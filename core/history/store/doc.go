// Package store provides the persistence backends of the plan history:
// rotating JSONL files, SQLite, PostgreSQL and Redis.
package store
