package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gosip/adapters/excel"
	"gosip/app"
	"gosip/domain/sip"
	"gosip/internal/errors"
	"gosip/internal/report"
)

type qsipFlags struct {
	input           inputFlags
	metadata        string
	abundance       string
	layout          abundanceFlags
	isotope         string
	density         string
	replicate       string
	boot            int
	alpha           float64
	seed            int64
	workers         int
	sampleControl   int
	sampleTreatment int
	out             string
	wTable          string
	report          string
}

func newQSIPCmd(c *cli) *cobra.Command {
	var f qsipFlags

	cmd := &cobra.Command{
		Use:   "qsip",
		Short: "Estimate per-taxon atom fraction excess with bootstrap confidence intervals",
		Long: `Estimate the atom fraction excess (A) of every taxon from the shift of its
abundance-weighted mean buoyant density between control and labeled gradients.

--boot 0 skips the bootstrap and reports point estimates only.

Example: gosip qsip --metadata samples.csv --abundance otu.csv --isotope 13C --boot 1000 --alpha 0.1 --seed 42 --out atoms.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQSIP(cmd, c, f)
		},
	}

	f.input.register(cmd)
	cmd.Flags().StringVar(&f.metadata, "metadata", "", "Sample metadata file (.csv, .tsv or .xlsx)")
	cmd.Flags().StringVar(&f.abundance, "abundance", "", "Taxon count table, wide (taxon x sample) or long with --count-column")
	f.layout.register(cmd)
	cmd.Flags().StringVar(&f.isotope, "isotope", "", "Labeling isotope: 13C or 18O (default from SIP_ISOTOPE)")
	cmd.Flags().StringVar(&f.density, "density-column", "", "Buoyant density column (default from SIP_DENSITY_COLUMN)")
	cmd.Flags().StringVar(&f.replicate, "replicate-column", "", "Replicate gradient column (default from SIP_REPLICATE_COLUMN)")
	cmd.Flags().IntVar(&f.boot, "boot", 0, "Bootstrap replicates, 0 skips intervals (default from SIP_BOOT_N)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0, "Confidence interval significance level (default from SIP_ALPHA)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Bootstrap seed (default from SIP_SEED)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel bootstrap workers, 1 runs sequentially (default from SIP_WORKERS)")
	cmd.Flags().IntVar(&f.sampleControl, "sample-control", 0, "Control W values drawn per replicate (default from SIP_SAMPLE_CONTROL)")
	cmd.Flags().IntVar(&f.sampleTreatment, "sample-treatment", 0, "Treatment W values drawn per replicate (default from SIP_SAMPLE_TREATMENT)")
	cmd.Flags().StringVar(&f.out, "out", "", "Write the atom excess table to this .csv, .tsv or .xlsx file")
	cmd.Flags().StringVar(&f.wTable, "w-out", "", "Write the per-replicate weighted mean density table to this file")
	cmd.Flags().StringVar(&f.report, "report", "", "Write an HTML (or .md) report to this file")
	cmd.MarkFlagRequired("metadata")
	cmd.MarkFlagRequired("abundance")

	return cmd
}

func (f qsipFlags) request(c *cli, cmd *cobra.Command) app.QSIPRequest {
	a := c.cfg.Analysis
	req := app.QSIPRequest{
		Isotope:   a.Isotope,
		Columns:   a.QSIPColumns(),
		Bootstrap: a.BootstrapOptions(),
	}
	if f.isotope != "" {
		req.Isotope = sip.Isotope(f.isotope)
	}
	if f.density != "" {
		req.Columns.Density = f.density
	}
	if f.replicate != "" {
		req.Columns.Replicate = f.replicate
	}

	changed := cmd.Flags().Changed
	if changed("boot") {
		req.Bootstrap.Replicates = f.boot
	}
	if changed("alpha") {
		req.Bootstrap.Alpha = f.alpha
	}
	if changed("seed") {
		req.Bootstrap.Seed = f.seed
	}
	if changed("workers") {
		req.Bootstrap.Workers = f.workers
	}
	if changed("sample-control") {
		req.Bootstrap.SampleSize.Control = f.sampleControl
	}
	if changed("sample-treatment") {
		req.Bootstrap.SampleSize.Treatment = f.sampleTreatment
	}
	return req
}

func runQSIP(cmd *cobra.Command, c *cli, f qsipFlags) error {
	ctx := cmd.Context()
	req := f.request(c, cmd)
	if err := c.cfg.Analysis.CheckBootstrap(req.Bootstrap); err != nil {
		return err
	}
	cfg, err := f.input.config()
	if err != nil {
		return err
	}
	f.layout.apply(&cfg)

	metadata := excel.NewMetadataProvider(f.metadata, cfg)
	abundance, err := excel.NewAbundanceProvider(f.abundance, cfg, metadata).TaxonAbundance(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to read abundance %s", f.abundance)
	}

	svc, closeStore, err := c.service(ctx, false)
	if err != nil {
		return err
	}
	defer closeStore()

	req.Abundance = abundance
	resp, err := svc.RunQSIP(ctx, req)
	if err != nil {
		return err
	}

	rep := report.Report{
		Run:   &sip.Run{ID: resp.RunID, Kind: sip.RunKindQSIP, Isotope: req.Isotope, CreatedAt: time.Now().UTC()},
		Atoms: resp.Atoms,
	}
	if resp.RunID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "stored run %s\n", resp.RunID)
	}
	if f.wTable != "" {
		if err := excel.WriteWindows(f.wTable, resp.W); err != nil {
			return errors.Wrap(err, "failed to write W table")
		}
	}
	if f.report != "" {
		if err := writeReport(f.report, rep); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
	}
	if f.out != "" {
		return excel.WriteAtomExcess(f.out, resp.Atoms)
	}
	_, err = cmd.OutOrStdout().Write(rep.Markdown())
	return err
}
