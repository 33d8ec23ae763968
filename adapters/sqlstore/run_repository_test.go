package sqlstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/errors"
)

func newTestRepository(t *testing.T) *RunRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(context.Background(), "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(db)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestRunRepository_ShiftRunRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := &sip.Run{
		Kind:   sip.RunKindBDShift,
		Params: json.RawMessage(`{"nperm":0}`),
	}
	shifts := []sip.WeightedShiftRecord{
		{TreatmentSampleID: "t2", BDMin: 1.71, WeightedMeanDistance: 0.3, NOverlappingFractions: 2},
		{TreatmentSampleID: "t1", BDMin: 1.70, WeightedMeanDistance: 0.1625, NOverlappingFractions: 2,
			NullCILow: sip.Value(0.1), NullCIHigh: sip.Value(0.4)},
	}

	require.NoError(t, repo.SaveShiftRun(ctx, run, shifts))
	assert.False(t, run.ID.String() == "")
	assert.Equal(t, 2, run.RowCount)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sip.RunKindBDShift, got.Kind)
	assert.Equal(t, sip.Isotope(""), got.Isotope)
	assert.JSONEq(t, `{"nperm":0}`, string(got.Params))
	assert.Equal(t, 2, got.RowCount)

	stored, err := repo.ShiftResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, core.SampleID("t1"), stored[0].TreatmentSampleID)
	assert.InDelta(t, 0.1625, stored[0].WeightedMeanDistance, 1e-12)
	require.NotNil(t, stored[0].NullCILow)
	assert.InDelta(t, 0.4, *stored[0].NullCIHigh, 1e-12)
	assert.Nil(t, stored[1].NullCILow)
}

func TestRunRepository_AtomExcessRunKeepsMissingValues(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := &sip.Run{Kind: sip.RunKindQSIP, Isotope: sip.Carbon13, Params: json.RawMessage(`{}`)}
	atoms := []sip.AtomExcessInterval{
		{
			AtomExcessRecord: sip.AtomExcessRecord{
				TaxonID: "otu2", Wlight: sip.Value(1.70), Gi: sip.Value(0.5),
			},
		},
		{
			AtomExcessRecord: sip.AtomExcessRecord{
				TaxonID: "otu1", Wlight: sip.Value(1.70), Wlab: sip.Value(1.72),
				Z: sip.Value(0.02), A: sip.Value(0.25),
			},
			ACILow:  sip.Value(0.2),
			ACIHigh: sip.Value(0.3),
		},
	}
	require.NoError(t, repo.SaveAtomExcessRun(ctx, run, atoms))

	stored, err := repo.AtomExcessResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.Equal(t, core.TaxonID("otu1"), stored[0].TaxonID)
	require.NotNil(t, stored[0].A)
	assert.InDelta(t, 0.25, *stored[0].A, 1e-12)
	assert.InDelta(t, 0.3, *stored[0].ACIHigh, 1e-12)

	assert.Equal(t, core.TaxonID("otu2"), stored[1].TaxonID)
	assert.Nil(t, stored[1].Wlab)
	assert.Nil(t, stored[1].A)
	assert.Nil(t, stored[1].ACILow)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, sip.Carbon13, got.Isotope)
}

func TestRunRepository_ListRunsNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []core.RunID
	for i := 0; i < 3; i++ {
		run := &sip.Run{Kind: sip.RunKindBDShift, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.SaveShiftRun(ctx, run, nil))
		ids = append(ids, run.ID)
	}

	runs, err := repo.ListRuns(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	runs, err = repo.ListRuns(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ids[0], runs[0].ID)
}

func TestRunRepository_MissingRun(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	id := core.NewRunID()

	_, err := repo.GetRun(ctx, id)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))

	_, err = repo.ShiftResults(ctx, id)
	assert.ErrorIs(t, err, core.ErrRunNotFound)

	_, err = repo.AtomExcessResults(ctx, id)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestRunRepository_DuplicateRowsRollBack(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := &sip.Run{Kind: sip.RunKindBDShift}
	shifts := []sip.WeightedShiftRecord{
		{TreatmentSampleID: "t1", BDMin: 1.7},
		{TreatmentSampleID: "t1", BDMin: 1.7},
	}
	err := repo.SaveShiftRun(ctx, run, shifts)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))

	_, err = repo.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}
