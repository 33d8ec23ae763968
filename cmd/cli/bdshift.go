package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gosip/adapters/distance"
	"gosip/adapters/excel"
	"gosip/app"
	"gosip/domain/sip"
	"gosip/internal/bdshift"
	"gosip/internal/errors"
	"gosip/internal/report"
	"gosip/ports"
)

type bdshiftFlags struct {
	input      inputFlags
	layout     abundanceFlags
	metadata   string
	distances  string
	abundance  string
	method     string
	weighted   bool
	normalized bool
	density    string
	fraction   string
	nperm      int
	alpha      float64
	seed       int64
	out        string
	report     string
}

func newBDShiftCmd(c *cli) *cobra.Command {
	var f bdshiftFlags

	cmd := &cobra.Command{
		Use:   "bdshift",
		Short: "Compute the overlap-weighted community shift of each treatment fraction",
		Long: `Compute BD_shift: the mean beta-diversity distance between each treatment
fraction and the control fractions whose density windows overlap it.

Distances come either from a precomputed square matrix (--distances) or are
computed from an abundance table (--abundance, --method).

Example: gosip bdshift --metadata samples.xlsx --distances bray.csv --control Treatment=12C-Con --out shift.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.distances == "" && f.abundance == "" {
				return errors.InvalidInput("one of --distances or --abundance is required")
			}
			if f.distances != "" && f.abundance != "" {
				return errors.InvalidInput("--distances and --abundance are mutually exclusive")
			}
			return runBDShift(cmd, c, f)
		},
	}

	f.input.register(cmd)
	f.layout.register(cmd)
	cmd.Flags().StringVar(&f.metadata, "metadata", "", "Sample metadata file (.csv, .tsv or .xlsx)")
	cmd.Flags().StringVar(&f.distances, "distances", "", "Precomputed square distance matrix")
	cmd.Flags().StringVar(&f.abundance, "abundance", "", "Taxon x sample count table to compute distances from")
	cmd.Flags().StringVar(&f.method, "method", distance.MethodBray, "Distance method when computing from --abundance")
	cmd.Flags().BoolVar(&f.weighted, "weighted", false, "Use abundance weighted Jaccard")
	cmd.Flags().BoolVar(&f.normalized, "normalized", true, "Convert counts to relative abundance before computing distances")
	cmd.Flags().StringVar(&f.density, "density-column", "", "Buoyant density column (default from SIP_DENSITY_COLUMN)")
	cmd.Flags().StringVar(&f.fraction, "fraction-column", "", "Fraction number column (default from SIP_FRACTION_COLUMN)")
	cmd.Flags().IntVar(&f.nperm, "nperm", -1, "Permutations for the null interval, 0 disables (default from SIP_BDSHIFT_NPERM)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0, "Null interval significance level (default from SIP_BDSHIFT_ALPHA)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed for the permutation null (default from SIP_SEED)")
	cmd.Flags().StringVar(&f.out, "out", "", "Write the BD_shift table to this .csv, .tsv or .xlsx file")
	cmd.Flags().StringVar(&f.report, "report", "", "Write an HTML (or .md) report to this file")
	cmd.MarkFlagRequired("metadata")

	return cmd
}

func (f bdshiftFlags) options(c *cli, cmd *cobra.Command) bdshift.Options {
	opts := c.cfg.Analysis.BDShiftOptions()
	if f.density != "" {
		opts.Columns.Density = f.density
	}
	if f.fraction != "" {
		opts.Columns.Fraction = f.fraction
	}
	if cmd.Flags().Changed("nperm") {
		opts.NPerm = f.nperm
	}
	if cmd.Flags().Changed("alpha") {
		opts.Alpha = f.alpha
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = f.seed
	}
	return opts
}

func runBDShift(cmd *cobra.Command, c *cli, f bdshiftFlags) error {
	ctx := cmd.Context()
	opts := f.options(c, cmd)
	if err := c.cfg.Analysis.CheckBDShift(opts); err != nil {
		return err
	}
	cfg, err := f.input.config()
	if err != nil {
		return err
	}

	metadata := excel.NewMetadataProvider(f.metadata, cfg)
	samples, err := metadata.SampleMetadata(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to read metadata %s", f.metadata)
	}

	dist, err := loadDistances(ctx, f, cfg, metadata)
	if err != nil {
		return err
	}

	svc, closeStore, err := c.service(ctx, false)
	if err != nil {
		return err
	}
	defer closeStore()

	resp, err := svc.RunBDShift(ctx, app.BDShiftRequest{
		Samples:   samples,
		Distances: dist,
		Options:   opts,
	})
	if err != nil {
		return err
	}

	rep := report.Report{
		Run:    &sip.Run{ID: resp.RunID, Kind: sip.RunKindBDShift, CreatedAt: time.Now().UTC()},
		Shifts: resp.Shifts,
	}
	if resp.RunID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "stored run %s\n", resp.RunID)
	}
	if f.report != "" {
		if err := writeReport(f.report, rep); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
	}
	if f.out != "" {
		return excel.WriteShifts(f.out, resp.Shifts)
	}
	_, err = cmd.OutOrStdout().Write(rep.Markdown())
	return err
}

func loadDistances(ctx context.Context, f bdshiftFlags, cfg excel.Config, metadata ports.SampleMetadataProvider) (*sip.DistanceMatrix, error) {
	if f.distances != "" {
		m, err := excel.NewDistanceFile(f.distances, cfg).Matrix(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read distances %s", f.distances)
		}
		return m, nil
	}

	f.layout.apply(&cfg)
	table, err := excel.NewAbundanceProvider(f.abundance, cfg, metadata).TaxonAbundance(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read abundance %s", f.abundance)
	}
	var provider ports.DistanceProvider = distance.NewProvider()
	return provider.Distance(ctx, table, f.method, ports.DistanceOptions{
		Weighted:   f.weighted,
		Normalized: f.normalized,
	})
}
