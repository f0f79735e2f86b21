package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/rakeform/core/history"
	"github.com/kilianp07/rakeform/core/model"
)

const table = "formation_plans"

// sqlStore keeps one JSON record per result in a relational table. The
// SQLite and PostgreSQL stores differ only in schema and placeholders.
type sqlStore struct {
	db     *sql.DB
	record string // column expression selecting the record as text
	bind   func(n int) string
}

func openSQL(driver, dsn, schema string, ping bool) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if ping {
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping %s: %w", driver, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return db, nil
}

// Append inserts the result.
func (s *sqlStore) Append(ctx context.Context, res model.FormationResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (plan_id, algorithm, created_at, record) VALUES (%s, %s, %s, %s)`,
			table, s.bind(1), s.bind(2), s.bind(3), s.bind(4)),
		res.Plan.ID, res.Plan.Algorithm, res.Plan.CreatedAt.UnixNano(), string(b))
	return err
}

// List returns results matching q in insertion order.
func (s *sqlStore) List(ctx context.Context, q history.Query) ([]model.FormationResult, error) {
	var (
		where []string
		args  []any
	)
	if q.Algorithm != "" {
		args = append(args, q.Algorithm)
		where = append(where, "algorithm = "+s.bind(len(args)))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since.UnixNano())
		where = append(where, "created_at >= "+s.bind(len(args)))
	}
	if !q.Until.IsZero() {
		args = append(args, q.Until.UnixNano())
		where = append(where, "created_at <= "+s.bind(len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, s.record, table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.FormationResult
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r model.FormationResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history.Query{Limit: q.Limit}.Apply(res), nil
}

// Clear deletes every row.
func (s *sqlStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}

// Close closes the underlying database.
func (s *sqlStore) Close() error { return s.db.Close() }
