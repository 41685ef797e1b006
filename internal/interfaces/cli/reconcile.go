package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutisyag/ozone-sub000/internal/application/reconciliation"
)

// newReconcileCommand diffs stored baselines/limits against recomputed
// values, optionally repairing the stored rows.
func newReconcileCommand(opts *RootOptions) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored baselines and limits with recomputed values",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if a.cfg.Calculation.BatchTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.Calculation.BatchTimeout)
				defer cancel()
			}

			report, err := a.reconciliation.Run(ctx, apply)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "write corrections instead of only reporting them")
	return cmd
}

func printReport(cmd *cobra.Command, report *reconciliation.Report) {
	out := cmd.OutOrStdout()
	if report.Empty() {
		fmt.Fprintln(out, "stored values match computed values")
		return
	}
	for _, d := range report.Baselines {
		fmt.Fprintf(out, "baseline %-9s party=%d group=%-4s type=%-12s stored=%s computed=%s\n",
			d.Category, d.PartyID, d.GroupID, d.BaselineType,
			formatNullable(d.Stored), formatNullable(d.Computed))
	}
	for _, d := range report.Limits {
		fmt.Fprintf(out, "limit    %-9s party=%d period=%d group=%-4s type=%-11s stored=%s computed=%s\n",
			d.Category, d.PartyID, d.PeriodID, d.GroupID, d.LimitType,
			formatNullable(d.Stored), formatNullable(d.Computed))
	}
	verb := "found"
	if report.Applied {
		verb = "applied"
	}
	fmt.Fprintf(out, "%s %d difference(s)\n", verb, len(report.Baselines)+len(report.Limits))
}
