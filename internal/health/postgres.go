package health

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresChecker verifies PostgreSQL connectivity over a small dedicated
// database/sql pool, independent of the repository's pgx pool.
type PostgresChecker struct {
	BaseChecker
	db *sql.DB
}

// NewPostgresChecker opens a lib/pq handle for dsn. The connection is
// established lazily by the first check.
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &PostgresChecker{
		BaseChecker: BaseChecker{checkerType: "postgres"},
		db:          db,
	}, nil
}

// HealthCheck pings the database and runs a trivial query
func (c *PostgresChecker) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("failed to query postgres: %w", err)
	}
	return nil
}

// Close closes the database handle
func (c *PostgresChecker) Close() error {
	return c.db.Close()
}
