package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal"
	"gosip/internal/bdshift"
	"gosip/internal/errors"
	"gosip/internal/qsip"
	"gosip/internal/report"
	"gosip/ports"
)

// SIPService runs BD_shift and qSIP analyses and records them
type SIPService struct {
	runs   ports.RunRepository
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewSIPService creates a SIP service. runs may be nil, in which case
// results are returned but not stored; rng may be nil to use the default
// seeded streams.
func NewSIPService(runs ports.RunRepository, rng ports.RNGPort) *SIPService {
	return &SIPService{
		runs:   runs,
		rng:    rng,
		logger: internal.NewDefaultLogger(),
	}
}

// BDShiftRequest defines the inputs of a BD_shift analysis
type BDShiftRequest struct {
	Samples   *sip.SampleTable
	Distances *sip.DistanceMatrix
	Options   bdshift.Options
}

// BDShiftResponse carries the run id (empty when not stored) and all tables
type BDShiftResponse struct {
	RunID core.RunID `json:"run_id,omitempty"`
	*bdshift.Result
}

// QSIPRequest defines the inputs of a qSIP analysis. Bootstrap.Replicates
// of zero skips the confidence intervals.
type QSIPRequest struct {
	Abundance *sip.AbundanceTable
	Isotope   sip.Isotope
	Columns   qsip.Columns
	Bootstrap qsip.BootstrapOptions
}

// QSIPResponse carries the W-table and the atom excess table with intervals
type QSIPResponse struct {
	RunID core.RunID               `json:"run_id,omitempty"`
	W     []sip.TaxonWindowRecord  `json:"w"`
	Atoms []sip.AtomExcessInterval `json:"atoms"`
}

type qsipParams struct {
	Isotope   sip.Isotope           `json:"isotope"`
	Columns   qsip.Columns          `json:"columns"`
	Bootstrap qsip.BootstrapOptions `json:"bootstrap"`
}

// RunBDShift computes the overlap-weighted community shift of every
// treatment fraction
func (s *SIPService) RunBDShift(ctx context.Context, req BDShiftRequest) (*BDShiftResponse, error) {
	if req.Samples == nil || req.Distances == nil {
		return nil, errors.InvalidInput("samples and distances are required")
	}
	start := time.Now()
	control, treatment := req.Samples.Counts()
	s.logger.Info("[SIPService] BD_shift over %d control and %d treatment fractions", control, treatment)

	result, err := bdshift.Run(ctx, req.Samples, req.Distances, req.Options)
	if err != nil {
		s.logger.Warn("[SIPService] BD_shift failed: %v", err)
		return nil, errors.Wrap(err, "BD_shift analysis failed")
	}
	s.logger.Debug("[SIPService] %d windows, %d overlapping pairs", len(result.Windows), len(result.Overlaps))

	resp := &BDShiftResponse{Result: result}
	logger := s.logger
	if s.runs != nil {
		run, err := newRun(sip.RunKindBDShift, "", req.Options)
		if err != nil {
			return nil, err
		}
		if err := s.runs.SaveShiftRun(ctx, run, result.Shifts); err != nil {
			return nil, errors.Wrap(err, "failed to store BD_shift run")
		}
		resp.RunID = run.ID
		logger = s.logger.ForRun(run.ID)
	}

	logger.Info("[SIPService] BD_shift done: %d treatment fractions in %.2fms",
		len(result.Shifts), float64(time.Since(start).Nanoseconds())/1e6)
	return resp, nil
}

// RunQSIP estimates atom fraction excess per taxon and, when requested,
// its bootstrap confidence interval
func (s *SIPService) RunQSIP(ctx context.Context, req QSIPRequest) (*QSIPResponse, error) {
	if req.Abundance == nil {
		return nil, errors.InvalidInput("abundance table is required")
	}
	start := time.Now()

	est, err := qsip.NewEstimator(req.Isotope, req.Columns)
	if err != nil {
		return nil, errors.Wrap(err, "qSIP analysis failed")
	}
	fresh, err := est.Estimate(req.Abundance)
	if err != nil {
		s.logger.Warn("[SIPService] qSIP estimate failed: %v", err)
		return nil, errors.Wrap(err, "qSIP analysis failed")
	}
	s.logger.Info("[SIPService] qSIP %s: %d taxa from %d replicate windows", req.Isotope, len(fresh.A), len(fresh.W))

	var atoms []sip.AtomExcessInterval
	if req.Bootstrap.Replicates > 0 {
		opts := req.Bootstrap
		if opts.RNG == nil {
			opts.RNG = s.rng
		}
		bootStart := time.Now()
		atoms, err = est.Bootstrap(ctx, fresh, opts)
		if err != nil {
			s.logger.Warn("[SIPService] bootstrap failed: %v", err)
			return nil, errors.Wrap(err, "qSIP bootstrap failed")
		}
		s.logger.Debug("[SIPService] %d bootstrap replicates with %d workers in %.2fms",
			opts.Replicates, opts.Workers, float64(time.Since(bootStart).Nanoseconds())/1e6)
	} else {
		atoms = withoutIntervals(fresh.A)
	}

	resp := &QSIPResponse{W: fresh.W, Atoms: atoms}
	logger := s.logger
	if s.runs != nil {
		run, err := newRun(sip.RunKindQSIP, req.Isotope, qsipParams{
			Isotope:   req.Isotope,
			Columns:   req.Columns,
			Bootstrap: req.Bootstrap,
		})
		if err != nil {
			return nil, err
		}
		if err := s.runs.SaveAtomExcessRun(ctx, run, atoms); err != nil {
			return nil, errors.Wrap(err, "failed to store qSIP run")
		}
		resp.RunID = run.ID
		logger = s.logger.ForRun(run.ID)
	}

	logger.Info("[SIPService] qSIP done: %d taxa in %.2fms", len(atoms), float64(time.Since(start).Nanoseconds())/1e6)
	return resp, nil
}

// GetRun returns a stored run header
func (s *SIPService) GetRun(ctx context.Context, id core.RunID) (*sip.Run, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get run %s", id)
	}
	return run, nil
}

// ListRuns returns stored run headers, newest first
func (s *SIPService) ListRuns(ctx context.Context, limit, offset int) ([]*sip.Run, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	runs, err := s.runs.ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return runs, nil
}

// Report loads a stored run with its result table
func (s *SIPService) Report(ctx context.Context, id core.RunID) (*report.Report, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	rep := &report.Report{Run: run}
	switch run.Kind {
	case sip.RunKindBDShift:
		rep.Shifts, err = s.runs.ShiftResults(ctx, id)
	case sip.RunKindQSIP:
		rep.Atoms, err = s.runs.AtomExcessResults(ctx, id)
	default:
		err = fmt.Errorf("unknown run kind %q", run.Kind)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load results of run %s", id)
	}
	return rep, nil
}

func (s *SIPService) requireStore() error {
	if s.runs == nil {
		return errors.New(errors.CodeConfigInvalid, "run storage is not configured")
	}
	return nil
}

func newRun(kind sip.RunKind, iso sip.Isotope, params interface{}) (*sip.Run, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode run parameters")
	}
	return &sip.Run{
		ID:        core.NewRunID(),
		Kind:      kind,
		Isotope:   iso,
		Params:    raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func withoutIntervals(atoms []sip.AtomExcessRecord) []sip.AtomExcessInterval {
	out := make([]sip.AtomExcessInterval, len(atoms))
	for i, a := range atoms {
		out[i] = sip.AtomExcessInterval{AtomExcessRecord: a}
	}
	return out
}
