package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gosip/adapters/excel"
	"gosip/adapters/sqlstore"
	"gosip/app"
	"gosip/internal"
	"gosip/internal/config"
	"gosip/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand
type cli struct {
	cfg    *config.Config
	logger *internal.Logger
	save   bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "gosip",
		Short:         "Stable isotope probing analyses: BD_shift and qSIP atom fraction excess",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVar(&c.save, "save", false, "Store the run in the configured database (DATABASE_DRIVER, DATABASE_URL)")

	rootCmd.AddCommand(
		newBDShiftCmd(c),
		newQSIPCmd(c),
		newDistanceCmd(c),
		newRunsCmd(c),
		newGenerateCmd(c),
	)
	return rootCmd
}

// service builds a SIPService, backed by the run store when --save is set
// or store is true. The returned close function must always be called.
func (c *cli) service(ctx context.Context, store bool) (*app.SIPService, func(), error) {
	if !c.save && !store {
		return app.NewSIPService(nil, nil), func() {}, nil
	}
	db, err := sqlstore.Open(ctx, c.cfg.Database.Driver, c.cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debug("[CLI] using %s run store", c.cfg.Database.Driver)
	return app.NewSIPService(sqlstore.NewRunRepository(db), nil), func() { db.Close() }, nil
}

// inputFlags are the file layout flags shared by the analysis commands
type inputFlags struct {
	sampleColumn string
	control      string
	sheet        string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sampleColumn, "sample-column", "", "Metadata column holding sample ids (default: first column)")
	cmd.Flags().StringVar(&f.control, "control", excel.DefaultConfig().Control.String(), "Control selector: column=value, or a boolean column name")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Worksheet to read from .xlsx inputs (default: first sheet)")
}

func (f *inputFlags) config() (excel.Config, error) {
	control, err := excel.ParseControlSelector(f.control)
	if err != nil {
		return excel.Config{}, err
	}
	return excel.Config{
		SampleColumn: f.sampleColumn,
		Sheet:        f.sheet,
		Control:      control,
	}, nil
}

// abundanceFlags describe the layout of the abundance table
type abundanceFlags struct {
	countColumn  string
	taxonColumn  string
	sampleColumn string
}

func (f *abundanceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.countColumn, "count-column", "", "Read the abundance table as a long table with counts in this column")
	cmd.Flags().StringVar(&f.taxonColumn, "taxon-column", "", "Abundance column holding taxon ids")
	cmd.Flags().StringVar(&f.sampleColumn, "abundance-sample-column", "", "Sample id column of a long abundance table (default: Sample)")
}

func (f abundanceFlags) apply(cfg *excel.Config) {
	cfg.CountColumn = f.countColumn
	cfg.TaxonColumn = f.taxonColumn
	cfg.AbundanceSampleColumn = f.sampleColumn
}

// writeReport renders rep to path as HTML, or markdown for .md files
func writeReport(path string, rep report.Report) error {
	body := rep.HTML()
	if strings.EqualFold(filepath.Ext(path), ".md") {
		body = rep.Markdown()
	}
	return os.WriteFile(path, body, 0o644)
}
