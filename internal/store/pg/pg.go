// Package pg arma el pool de conexiones a Postgres y corre las migraciones
// embebidas. Los repositorios de dominio (directory, membership) reciben el
// pool ya listo; acá sólo vive la infraestructura.
package pg

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/memberhub/internal/observability/logger"
	migrations "github.com/dropDatabas3/memberhub/migrations/postgres"
)

// Options ajusta el pool.
type Options struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// Connect abre el pool. El ping inicial es informativo, no fatal: la app
// puede arrancar con la base caída y recuperarse sola.
func Connect(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: dsn inválido: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = opts.MinConns
	}
	if opts.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = opts.ConnMaxLifetime
		pcfg.MaxConnIdleTime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("ping inicial a postgres falló", logger.Err(err))
	} else {
		logger.L().Info("pool de postgres listo", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return pool, nil
}

// migrationLockID es el ID del advisory lock que serializa migraciones
// entre procesos que deployan a la vez.
func migrationLockID() int64 {
	h := sha256.Sum256([]byte("memberhub_migration"))
	return int64(binary.BigEndian.Uint64(h[:8]))
}

// Migrate aplica los *_up.sql embebidos, en orden lexicográfico, bajo un
// advisory lock. Cada script ya aplicado se saltea vía schema_migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	lockID := migrationLockID()

	lockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := pool.Exec(lockCtx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return 0, fmt.Errorf("pg: advisory lock de migración: %w", err)
	}
	defer func() {
		if _, err := pool.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID); err != nil {
			logger.L().Warn("no se pudo liberar el lock de migración", logger.Err(err))
		}
	}()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return 0, err
	}

	names, err := migrationFiles()
	if err != nil {
		return 0, err
	}

	var applied int
	for _, name := range names {
		var exists bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&exists); err != nil {
			return applied, err
		}
		if exists {
			continue
		}

		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return applied, err
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return applied, fmt.Errorf("pg: exec %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			return applied, err
		}
		applied++
		logger.L().Info("migración aplicada", logger.String("name", name))
	}
	return applied, nil
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), "_up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
