package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"runtime"

	"github.com/spf13/cobra"

	"gosip/app"
	"gosip/domain/sip"
	"gosip/internal/bdshift"
	"gosip/internal/qsip"
	"gosip/internal/testkit"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gosip-dev",
		Short: "gosip development tools",
	}

	rootCmd.AddCommand(
		newSmokeTestCmd(),
		newDeterminismTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSmokeTestCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run both analyses on a synthetic gradient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context(), seed)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 42, "Gradient and bootstrap seed")
	return cmd
}

func newDeterminismTestCmd() *cobra.Command {
	var seed int64
	var boot, workers int

	cmd := &cobra.Command{
		Use:   "determinism",
		Short: "Check that the bootstrap gives identical intervals sequentially and in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return testDeterminism(cmd.Context(), seed, boot, workers)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 42, "Bootstrap seed")
	cmd.Flags().IntVar(&boot, "boot", 500, "Bootstrap replicates")
	cmd.Flags().IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "Parallel workers to compare against one")
	return cmd
}

func runSmokeTests(ctx context.Context, seed int64) error {
	fmt.Println("Running smoke tests...")

	kit := testkit.NewTestKit()
	cfg := testkit.DefaultGradientConfig()
	cfg.Seed = seed
	gradient, dist, err := kit.Gradient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to generate gradient: %w", err)
	}
	svc := app.NewSIPService(nil, kit.RNGAdapter())

	opts := bdshift.DefaultOptions()
	opts.NPerm = 99
	opts.Seed = seed
	shift, err := svc.RunBDShift(ctx, app.BDShiftRequest{Samples: gradient.Metadata, Distances: dist, Options: opts})
	if err != nil {
		return fmt.Errorf("BD_shift failed: %w", err)
	}
	fmt.Printf("✅ BD_shift: %d treatment fractions\n", len(shift.Shifts))

	boot := qsip.DefaultBootstrapOptions()
	boot.Replicates = 200
	boot.Seed = seed
	resp, err := svc.RunQSIP(ctx, app.QSIPRequest{
		Abundance: gradient.Abundance,
		Isotope:   sip.Carbon13,
		Columns:   qsip.DefaultColumns(),
		Bootstrap: boot,
	})
	if err != nil {
		return fmt.Errorf("qSIP failed: %w", err)
	}
	for _, a := range resp.Atoms {
		fmt.Printf("   %s A=%s CI=[%s, %s]\n", a.TaxonID, show(a.A), show(a.ACILow), show(a.ACIHigh))
	}
	fmt.Printf("✅ qSIP: %d taxa\n", len(resp.Atoms))
	return nil
}

func testDeterminism(ctx context.Context, seed int64, boot, workers int) error {
	fmt.Printf("Testing bootstrap determinism with %d replicates...\n", boot)

	kit := testkit.NewTestKit()
	gradient, _, err := kit.Gradient(ctx, testkit.DefaultGradientConfig())
	if err != nil {
		return fmt.Errorf("failed to generate gradient: %w", err)
	}
	svc := app.NewSIPService(nil, nil)

	run := func(workers int) ([]sip.AtomExcessInterval, error) {
		opts := qsip.DefaultBootstrapOptions()
		opts.Replicates = boot
		opts.Seed = seed
		opts.Workers = workers
		resp, err := svc.RunQSIP(ctx, app.QSIPRequest{
			Abundance: gradient.Abundance,
			Isotope:   sip.Carbon13,
			Columns:   qsip.DefaultColumns(),
			Bootstrap: opts,
		})
		if err != nil {
			return nil, err
		}
		return resp.Atoms, nil
	}

	sequential, err := run(1)
	if err != nil {
		return fmt.Errorf("sequential bootstrap failed: %w", err)
	}
	parallel, err := run(workers)
	if err != nil {
		return fmt.Errorf("parallel bootstrap failed: %w", err)
	}

	if !reflect.DeepEqual(sequential, parallel) {
		return fmt.Errorf("intervals differ between 1 and %d workers", workers)
	}
	fmt.Printf("✅ identical intervals with 1 and %d workers\n", workers)
	return nil
}

func show(v *float64) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf("%.4f", *v)
}
