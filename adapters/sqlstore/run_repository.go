package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/errors"
)

// RunRepository stores analysis runs in PostgreSQL or SQLite
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

type runRow struct {
	ID        string         `db:"id"`
	Kind      string         `db:"kind"`
	Isotope   sql.NullString `db:"isotope"`
	Params    string         `db:"params"`
	RowCount  int            `db:"row_count"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r runRow) toRun() *sip.Run {
	return &sip.Run{
		ID:        core.RunID(r.ID),
		Kind:      sip.RunKind(r.Kind),
		Isotope:   sip.Isotope(r.Isotope.String),
		Params:    json.RawMessage(r.Params),
		RowCount:  r.RowCount,
		CreatedAt: r.CreatedAt,
	}
}

type shiftRow struct {
	TreatmentSampleID string   `db:"treatment_sample_id"`
	BDMin             float64  `db:"bd_min"`
	WMeanDist         float64  `db:"wmean_dist"`
	NOverlap          int      `db:"n_overlap_fractions"`
	NullCILow         *float64 `db:"null_ci_low"`
	NullCIHigh        *float64 `db:"null_ci_high"`
}

type atomRow struct {
	TaxonID   string   `db:"taxon_id"`
	Wlight    *float64 `db:"wlight"`
	Wlab      *float64 `db:"wlab"`
	Z         *float64 `db:"z"`
	Gi        *float64 `db:"gi"`
	Mlight    *float64 `db:"mlight"`
	Mheavymax *float64 `db:"mheavymax"`
	Mlab      *float64 `db:"mlab"`
	A         *float64 `db:"a"`
	ACILow    *float64 `db:"a_ci_low"`
	ACIHigh   *float64 `db:"a_ci_high"`
}

// SaveShiftRun stores a BD_shift run with its weighted shift table
func (r *RunRepository) SaveShiftRun(ctx context.Context, run *sip.Run, shifts []sip.WeightedShiftRecord) error {
	run.RowCount = len(shifts)
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.insertRun(ctx, tx, run); err != nil {
			return err
		}
		query := tx.Rebind(`
			INSERT INTO bdshift_results (
				run_id, treatment_sample_id, bd_min, wmean_dist,
				n_overlap_fractions, null_ci_low, null_ci_high
			) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		for _, s := range shifts {
			if _, err := tx.ExecContext(ctx, query,
				run.ID.String(),
				s.TreatmentSampleID.String(),
				s.BDMin,
				s.WeightedMeanDistance,
				s.NOverlappingFractions,
				s.NullCILow,
				s.NullCIHigh,
			); err != nil {
				return errors.DatabaseError("failed to insert shift result", err)
			}
		}
		return nil
	})
}

// SaveAtomExcessRun stores a qSIP run with its atom excess table
func (r *RunRepository) SaveAtomExcessRun(ctx context.Context, run *sip.Run, atoms []sip.AtomExcessInterval) error {
	run.RowCount = len(atoms)
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.insertRun(ctx, tx, run); err != nil {
			return err
		}
		query := tx.Rebind(`
			INSERT INTO atom_excess_results (
				run_id, taxon_id, wlight, wlab, z, gi, mlight,
				mheavymax, mlab, a, a_ci_low, a_ci_high
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		for _, a := range atoms {
			if _, err := tx.ExecContext(ctx, query,
				run.ID.String(),
				a.TaxonID.String(),
				a.Wlight, a.Wlab, a.Z, a.Gi, a.Mlight,
				a.Mheavymax, a.Mlab, a.A, a.ACILow, a.ACIHigh,
			); err != nil {
				return errors.DatabaseError("failed to insert atom excess result", err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run header
func (r *RunRepository) GetRun(ctx context.Context, id core.RunID) (*sip.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, kind, isotope, params, row_count, created_at
		FROM runs
		WHERE id = ?`), id.String())
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, errors.DatabaseError("failed to get run", err)
	}
	return row.toRun(), nil
}

// ListRuns returns run headers, newest first
func (r *RunRepository) ListRuns(ctx context.Context, limit, offset int) ([]*sip.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, kind, isotope, params, row_count, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}

	runs := make([]*sip.Run, len(rows))
	for i, row := range rows {
		runs[i] = row.toRun()
	}
	return runs, nil
}

// ShiftResults returns the shift table of a BD_shift run
func (r *RunRepository) ShiftResults(ctx context.Context, id core.RunID) ([]sip.WeightedShiftRecord, error) {
	if _, err := r.GetRun(ctx, id); err != nil {
		return nil, err
	}

	var rows []shiftRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT treatment_sample_id, bd_min, wmean_dist, n_overlap_fractions, null_ci_low, null_ci_high
		FROM bdshift_results
		WHERE run_id = ?
		ORDER BY bd_min, treatment_sample_id`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to load shift results", err)
	}

	shifts := make([]sip.WeightedShiftRecord, len(rows))
	for i, row := range rows {
		shifts[i] = sip.WeightedShiftRecord{
			TreatmentSampleID:     core.SampleID(row.TreatmentSampleID),
			BDMin:                 row.BDMin,
			WeightedMeanDistance:  row.WMeanDist,
			NOverlappingFractions: row.NOverlap,
			NullCILow:             row.NullCILow,
			NullCIHigh:            row.NullCIHigh,
		}
	}
	return shifts, nil
}

// AtomExcessResults returns the atom excess table of a qSIP run
func (r *RunRepository) AtomExcessResults(ctx context.Context, id core.RunID) ([]sip.AtomExcessInterval, error) {
	if _, err := r.GetRun(ctx, id); err != nil {
		return nil, err
	}

	var rows []atomRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT taxon_id, wlight, wlab, z, gi, mlight, mheavymax, mlab, a, a_ci_low, a_ci_high
		FROM atom_excess_results
		WHERE run_id = ?
		ORDER BY taxon_id`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to load atom excess results", err)
	}

	atoms := make([]sip.AtomExcessInterval, len(rows))
	for i, row := range rows {
		atoms[i] = sip.AtomExcessInterval{
			AtomExcessRecord: sip.AtomExcessRecord{
				TaxonID:   core.TaxonID(row.TaxonID),
				Wlight:    row.Wlight,
				Wlab:      row.Wlab,
				Z:         row.Z,
				Gi:        row.Gi,
				Mlight:    row.Mlight,
				Mheavymax: row.Mheavymax,
				Mlab:      row.Mlab,
				A:         row.A,
			},
			ACILow:  row.ACILow,
			ACIHigh: row.ACIHigh,
		}
	}
	return atoms, nil
}

func (r *RunRepository) insertRun(ctx context.Context, tx *sqlx.Tx, run *sip.Run) error {
	if run.ID.String() == "" {
		run.ID = core.NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	params := string(run.Params)
	if params == "" {
		params = "{}"
	}
	var isotope sql.NullString
	if run.Isotope != "" {
		isotope = sql.NullString{String: run.Isotope.String(), Valid: true}
	}

	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO runs (id, kind, isotope, params, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		run.ID.String(), string(run.Kind), isotope, params, run.RowCount, run.CreatedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to insert run", err)
	}
	return nil
}

func (r *RunRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit transaction", err)
	}
	return nil
}
