package repositories

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/vanbook/backend/internal/tenant"
)

// DB is the subset of pgxpool.Pool the repositories use. Keeping it an
// interface lets the tenant router and test fakes stand in for a real pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// RoutedDB resolves the tenant code from the request context and forwards
// every call to that tenant's pool. Repositories hold a single RoutedDB, so
// no connection state is ever swapped at process scope.
type RoutedDB struct {
	registry *tenant.Registry[DB]
}

func NewRoutedDB(registry *tenant.Registry[DB]) *RoutedDB {
	return &RoutedDB{registry: registry}
}

func (r *RoutedDB) pool(ctx context.Context) (DB, error) {
	return r.registry.Pool(tenant.FromContext(ctx))
}

func (r *RoutedDB) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	pool, err := r.pool(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Exec(ctx, sql, arguments...)
}

func (r *RoutedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	pool, err := r.pool(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Query(ctx, sql, args...)
}

func (r *RoutedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	pool, err := r.pool(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return pool.QueryRow(ctx, sql, args...)
}

// errRow defers a pool-resolution failure until Scan, matching pgx.Row.
type errRow struct {
	err error
}

func (r errRow) Scan(dest ...interface{}) error {
	return r.err
}
