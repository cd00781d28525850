// Package database
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dlt194/ipn-webmanager/internal/config"
)

var (
	instance *pgxpool.Pool
	once     sync.Once
)

func GetDB() *pgxpool.Pool {
	return instance
}

func InitDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	var err error
	once.Do(func() {
		conStr := cfg.Database.GetDSN()
		instance, err = pgxpool.New(ctx, conStr)
		if err != nil {
			return
		}

		if err = instance.Ping(ctx); err != nil {
			return
		}
	})

	return instance, err
}

// RunMigrations runs all pending database migrations using embedded SQL files.
// The migrations are compiled into the binary and don't require external files.
func RunMigrations(cfg *config.Config) error {
	// goose works on database/sql, so migrations go through the pgx stdlib
	// driver while application queries use the pool.
	db, err := sql.Open("pgx", cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(EmbeddedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}

	return nil
}

func Close() {
	if instance != nil {
		instance.Close()
	}
}
