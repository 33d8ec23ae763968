package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gosip/adapters/distance"
	"gosip/adapters/excel"
	"gosip/internal/errors"
	"gosip/ports"
)

func newDistanceCmd(c *cli) *cobra.Command {
	var input inputFlags
	var layout abundanceFlags
	var metadata, abundance, method, out string
	var weighted, normalized bool

	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Compute a pairwise beta-diversity matrix from an abundance table",
		Long: fmt.Sprintf(`Compute a square distance matrix over the samples listed in the metadata
file. The output can be passed to "gosip bdshift --distances".

Methods: %s

Example: gosip distance --metadata samples.csv --abundance otu.csv --method bray --out bray.csv`,
			strings.Join(distance.Methods(), ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := input.config()
			if err != nil {
				return err
			}
			layout.apply(&cfg)

			table, err := excel.NewAbundanceProvider(abundance, cfg, excel.NewMetadataProvider(metadata, cfg)).TaxonAbundance(ctx)
			if err != nil {
				return errors.Wrapf(err, "failed to read abundance %s", abundance)
			}

			var provider ports.DistanceProvider = distance.NewProvider()
			m, err := provider.Distance(ctx, table, method, ports.DistanceOptions{Weighted: weighted, Normalized: normalized})
			if err != nil {
				return err
			}
			c.logger.Info("[CLI] %s distances over %d samples", method, m.Len())
			return excel.WriteDistanceMatrix(out, m)
		},
	}

	input.register(cmd)
	layout.register(cmd)
	cmd.Flags().StringVar(&metadata, "metadata", "", "Sample metadata file (.csv, .tsv or .xlsx)")
	cmd.Flags().StringVar(&abundance, "abundance", "", "Taxon x sample count table")
	cmd.Flags().StringVar(&method, "method", distance.MethodBray, "Distance method")
	cmd.Flags().BoolVar(&weighted, "weighted", false, "Use abundance weighted Jaccard")
	cmd.Flags().BoolVar(&normalized, "normalized", true, "Convert counts to relative abundance first")
	cmd.Flags().StringVar(&out, "out", "", "Output .csv, .tsv or .xlsx file")
	cmd.MarkFlagRequired("metadata")
	cmd.MarkFlagRequired("abundance")
	cmd.MarkFlagRequired("out")

	return cmd
}
