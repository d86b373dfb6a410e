package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate executes a migration script statement by statement. Scripts are
// plain SQL with statements separated by semicolons; empty fragments are
// skipped.
func Migrate(ctx context.Context, pool *pgxpool.Pool, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration statement: %w", err)
		}
	}
	return nil
}
