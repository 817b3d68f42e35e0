package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate aplica en orden los scripts embebidos. Todos son idempotentes
// (IF NOT EXISTS / CREATE OR REPLACE), por lo que se pueden reejecutar en cada arranque.
func (p *PostgresDB) Migrate(ctx context.Context) error {
	db, err := p.DB(ctx)
	if err != nil {
		return err
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		p.logger.Info("Migration applied", zap.String("file", name))
	}
	return nil
}
