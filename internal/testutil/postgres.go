// Package testutil starts a disposable PostgreSQL for integration and E2E suites.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/catalog/internal/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SkipIntegrationTests and SkipE2ETests name the environment variables that skip
// the container-backed suites when set to "1".
const (
	SkipIntegrationTests = "CATALOG_SKIP_INTEGRATION_TESTS"
	SkipE2ETests         = "CATALOG_SKIP_E2E_TESTS"
)

// Postgres is a migrated database running in a container.
type Postgres struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// StartPostgres runs a PostgreSQL container, waits until it accepts connections and
// applies the embedded migrations.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run PostgreSQL container: %w", err)
	}
	pg := &Postgres{Container: container}

	pg.ConnStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pg.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pg.Pool, err = pgxpool.New(ctx, pg.ConnStr)
	if err != nil {
		pg.Terminate(ctx)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	for range 10 {
		if err = pg.Pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		pg.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	if err := Migrate(pg.ConnStr); err != nil {
		pg.Terminate(ctx)
		return nil, err
	}
	return pg, nil
}

// Migrate applies all embedded migrations to the database at connStr.
func Migrate(connStr string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, connStr)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Truncate empties the products table.
func (p *Postgres) Truncate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, "TRUNCATE TABLE products")
	return err
}

// Terminate closes the pool and removes the container.
func (p *Postgres) Terminate(ctx context.Context) {
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.Container != nil {
		_ = p.Container.Terminate(ctx)
	}
}

// ProductRow is the column set used to seed the products table.
type ProductRow struct {
	ID           string
	Name         string
	Description  string
	UnitPrice    string
	Category     string
	Manufacturer string
	Condition    string
	UnitsInStock int64
	UnitsInOrder int64
	Discounted   bool
}

// InsertProducts seeds rows directly with SQL; the catalog itself never inserts.
func (p *Postgres) InsertProducts(ctx context.Context, rows ...ProductRow) error {
	const insert = `INSERT INTO products
		(id, name, description, unit_price, category, manufacturer, condition, units_in_stock, units_in_order, discounted)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)`
	for _, r := range rows {
		_, err := p.Pool.Exec(ctx, insert,
			r.ID, r.Name, r.Description, r.UnitPrice, r.Category, r.Manufacturer, r.Condition,
			r.UnitsInStock, r.UnitsInOrder, r.Discounted)
		if err != nil {
			return fmt.Errorf("failed to insert product %s: %w", r.ID, err)
		}
	}
	return nil
}
