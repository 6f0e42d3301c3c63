package repository

import (
	"context"
	"database/sql"
	"strings"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs statements against either the pool or an open transaction.
type Queries struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

var _ Tx = (*Queries)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE substring pattern that matches query
// literally. Callers pair it with ESCAPE '\'.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}
