package storage

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationTimeout = 30 * time.Second

//go:embed schema.sql
var schema string

// Migrate creates the tables the API needs. The statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, migrationTimeout)
	defer cancel()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
