package migration

import (
	"context"

	"gosip/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the result store schema. The DDL sticks to types
// understood by both PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create runs table")
	}

	if err := r.createShiftResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create bdshift_results table")
	}

	if err := r.createAtomExcessResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create atom_excess_results table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(36) PRIMARY KEY,
			kind VARCHAR(20) NOT NULL,
			isotope VARCHAR(8),
			params TEXT NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createShiftResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bdshift_results (
			run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			treatment_sample_id TEXT NOT NULL,
			bd_min DOUBLE PRECISION NOT NULL,
			wmean_dist DOUBLE PRECISION NOT NULL,
			n_overlap_fractions INTEGER NOT NULL,
			null_ci_low DOUBLE PRECISION,
			null_ci_high DOUBLE PRECISION,
			PRIMARY KEY (run_id, treatment_sample_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createAtomExcessResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS atom_excess_results (
			run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			taxon_id TEXT NOT NULL,
			wlight DOUBLE PRECISION,
			wlab DOUBLE PRECISION,
			z DOUBLE PRECISION,
			gi DOUBLE PRECISION,
			mlight DOUBLE PRECISION,
			mheavymax DOUBLE PRECISION,
			mlab DOUBLE PRECISION,
			a DOUBLE PRECISION,
			a_ci_low DOUBLE PRECISION,
			a_ci_high DOUBLE PRECISION,
			PRIMARY KEY (run_id, taxon_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`)
	return err
}
