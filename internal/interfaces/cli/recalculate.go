package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// newRecalculateCommand recomputes and persists baselines or limits.
func newRecalculateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute and persist derived values",
	}

	baselines := &cobra.Command{
		Use:   "baselines",
		Short: "Recompute every applicable baseline and persist the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			computed, err := a.calcBaselines.ComputeAll(ctx)
			if err != nil {
				return err
			}
			for _, b := range computed {
				if err := a.baselines.Upsert(ctx, b); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "persisted %d baselines\n", len(computed))
			return nil
		},
	}

	var periodName string
	limits := &cobra.Command{
		Use:   "limits",
		Short: "Recompute the limits of one reporting period and persist them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			per, err := a.periods.FindByName(ctx, periodName)
			if err != nil {
				return err
			}
			computed, err := a.calcLimits.ComputeForPeriod(ctx, per)
			if err != nil {
				return err
			}
			for _, l := range computed {
				if err := a.limits.Upsert(ctx, l); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "persisted %d limits for %s\n", len(computed), periodName)
			return nil
		},
	}
	limits.Flags().StringVar(&periodName, "period", "", "reporting period name (required)")
	limits.MarkFlagRequired("period")

	cmd.AddCommand(baselines, limits)
	return cmd
}

func formatNullable(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
