package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gosip/adapters/excel"
	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/errors"
)

func newRunsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect analysis runs stored with --save",
	}
	cmd.AddCommand(newRunsListCmd(c), newRunsShowCmd(c))
	return cmd
}

func newRunsListCmd(c *cli) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeStore, err := c.service(ctx, true)
			if err != nil {
				return err
			}
			defer closeStore()

			runs, err := svc.ListRuns(ctx, limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tISOTOPE\tROWS\tCREATED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					run.ID, run.Kind, run.Isotope, run.RowCount, run.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Runs to skip")
	return cmd
}

func newRunsShowCmd(c *cli) *cobra.Command {
	var out, reportPath string

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a stored run as markdown, or export its table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeStore, err := c.service(ctx, true)
			if err != nil {
				return err
			}
			defer closeStore()

			rep, err := svc.Report(ctx, core.RunID(args[0]))
			if err != nil {
				return err
			}

			if reportPath != "" {
				if err := writeReport(reportPath, *rep); err != nil {
					return errors.Wrap(err, "failed to write report")
				}
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(rep.Markdown())
				return err
			}
			if rep.Run.Kind == sip.RunKindBDShift {
				return excel.WriteShifts(out, rep.Shifts)
			}
			return excel.WriteAtomExcess(out, rep.Atoms)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Export the result table to this .csv, .tsv or .xlsx file")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write an HTML (or .md) report to this file")
	return cmd
}
