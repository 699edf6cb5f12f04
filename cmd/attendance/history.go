package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"attendance/internal/pipeline"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			runs, err := a.db.ListRuns(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tSCANNED\tPARTICIPANTS\tELIGIBLE\tOUTPUT")
			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.CreatedAt, r.Status, r.ScannedRows, r.Participants, r.Eligible, r.OutputPath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var runID int
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored result of a run to a csv or xlsx file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID == 0 || strings.TrimSpace(out) == "" {
				return fmt.Errorf("--run and --out are required")
			}
			if err := a.setup(); err != nil {
				return err
			}
			run, err := a.db.GetRun(runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %d not found", runID)
			}
			records, err := a.db.GetRunParticipants(runID)
			if err != nil {
				return err
			}
			if err := pipeline.Export(records, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&runID, "run", 0, "run id (see history)")
	cmd.Flags().StringVar(&out, "out", "", "output path (.csv or .xlsx)")
	return cmd
}
