// Package storage opens the token store named by a DATABASE_URL.
package storage

import (
	"context"
	"fmt"
	"strings"

	pgxadapter "github.com/lborres/playlistify/adapters/pgx"
	sqliteadapter "github.com/lborres/playlistify/adapters/sqlite"
	"github.com/lborres/playlistify/core"
)

// Store is a token store the CLI can migrate, health-check and close.
type Store interface {
	core.StorageProvider
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open picks the adapter from the DSN scheme: postgres:// or postgresql://
// for Postgres, sqlite:<path> or sqlite://<path> for a local file.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := pgxadapter.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return pgxadapter.New(pool), nil

	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		path = strings.TrimPrefix(path, "//")
		return sqliteadapter.Open(ctx, path)

	default:
		return nil, fmt.Errorf("unsupported database url %q: want postgres:// or sqlite:", redact(dsn))
	}
}

// redact keeps the scheme of dsn and drops anything that may hold credentials.
func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "..."
	}
	return "..."
}
