// Package store provides typed read operations over the synced record
// tables. Record timestamps are TEXT columns containing the ISO-8601
// strings delivered by the upstream API; window predicates compare them
// lexicographically, which is sound for same-offset ISO strings.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB defines the database operations used by the store.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads synced records, preferences and report templates.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// columnsWithPrefix qualifies every column in a comma-separated list with a
// table alias, for use in joined queries.
func columnsWithPrefix(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// decodeRaw unmarshals a raw_json column value into a map. A null column or
// malformed payload yields nil; raw passthrough is best effort.
func decodeRaw(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
