// Package migraterunner applies database migrations and exits.
package migraterunner

import (
	"context"

	"github.com/jarvisapp/jarvis-sync/postgres"
	"github.com/jarvisapp/jarvis-sync/runner"
)

type migrateRunner struct {
	migrations *postgres.MigrationRunner
}

func New(cfg *runner.Config) (runner.Runner, error) {
	return &migrateRunner{
		migrations: postgres.NewMigrationRunner(cfg.Dsn),
	}, nil
}

func (r *migrateRunner) Run(context.Context) error {
	return r.migrations.Run()
}

func (r *migrateRunner) Close(context.Context) error {
	return nil
}
