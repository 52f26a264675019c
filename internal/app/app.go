package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/tenant"
	"github.com/vanbook/backend/internal/utils"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

// App owns the per-tenant connection pools. Pools are created once at
// startup and resolved per request through the registry; nothing re-assigns
// connection state afterwards.
type App struct {
	Config   *config.Config
	Registry *tenant.Registry[repositories.DB]

	pools []*pgxpool.Pool
}

func NewApp(cfg *config.Config) (*App, error) {
	a := &App{
		Config:   cfg,
		Registry: tenant.NewRegistry[repositories.DB](),
	}

	for code, url := range cfg.DBUrls {
		pool, err := connectWithRetry(url)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("tenant %q: %w", code, err)
		}
		a.pools = append(a.pools, pool)
		a.Registry.Register(code, pool)
		utils.Logger.Infof("Registered database pool for tenant %q", code)
	}

	return a, nil
}

// Ping checks every tenant pool, returning the first failure.
func (a *App) Ping(ctx context.Context) error {
	for _, pool := range a.pools {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Close() {
	for _, pool := range a.pools {
		pool.Close()
	}
	if len(a.pools) > 0 {
		utils.Logger.Info("Database connections closed.")
	}
}

func connectWithRetry(databaseURL string) (*pgxpool.Pool, error) {
	backoff := initialBackoff
	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		pool, err := newDBPool(ctx, databaseURL)
		cancel()
		if err == nil {
			utils.Logger.Infof("Successfully connected to database on attempt %d", i)
			return pool, nil
		}

		utils.Logger.WithError(err).Warnf(
			"Failed to connect to database on attempt %d/%d. Retrying in %v...",
			i, maxRetries, backoff,
		)
		if i == maxRetries {
			return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return nil, nil
}

// newDBPool constructs the pgx pool with production-safe settings.
func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	// Retire idle sockets before the edge proxy kills them, and keep the
	// rest warm with background health checks.
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	return pgxpool.ConnectConfig(ctx, cfg)
}
