// Package migrations embeds the schema migrations applied by cmd/migrate.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
)

// FS holds the numbered up/down SQL files.
//
//go:embed *.sql
var FS embed.FS

// State is the applied schema version as recorded by golang-migrate.
type State struct {
	Version uint
	Dirty   bool
	Applied bool
}

// Status reads schema_migrations. A database without applied migrations reports Applied false.
func Status(ctx context.Context, db *sql.DB) (State, error) {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("migrations: status: %w", err)
	}
	return State{Version: uint(version), Dirty: dirty, Applied: true}, nil
}

func (s State) String() string {
	if !s.Applied {
		return "no migrations applied"
	}
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty)", s.Version)
	}
	return fmt.Sprintf("version %d", s.Version)
}
