package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// newAggregateCommand recomputes aggregate rows for one party and period.
func newAggregateCommand(opts *RootOptions) *cobra.Command {
	var (
		partyAbbr  string
		periodName string
		groupID    string
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recompute aggregate totals for a party and period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			p, err := a.parties.FindByAbbr(ctx, partyAbbr)
			if err != nil {
				return err
			}
			per, err := a.periods.FindByName(ctx, periodName)
			if err != nil {
				return err
			}

			groups := treaty.AllGroups
			if groupID != "" {
				groups = []treaty.GroupID{treaty.GroupID(groupID)}
			}

			da := a.lifecycle.DataAccess()
			for _, g := range groups {
				row, err := a.engine.Recompute(ctx, da, p.ID, per.ID, g)
				if err != nil {
					return err
				}
				if row == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/%s/%s: no data\n", partyAbbr, periodName, g)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s/%s: production=%s consumption=%s\n",
					partyAbbr, periodName, g,
					formatNullable(row.CalcProduction), formatNullable(row.CalcConsumption))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&partyAbbr, "party", "", "party abbreviation (required)")
	cmd.Flags().StringVar(&periodName, "period", "", "reporting period name (required)")
	cmd.Flags().StringVar(&groupID, "group", "", "annex group (default: all groups)")
	cmd.MarkFlagRequired("party")
	cmd.MarkFlagRequired("period")
	return cmd
}
