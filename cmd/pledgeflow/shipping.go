package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow/schema"
)

func newShippingCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shipping <project.json|->",
		Short: "List every location a project's rewards ship to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := readProject(cmd, args)
			if err != nil {
				return err
			}
			app, cfg, err := openApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			ctx, cancel := screenContext(cmd.Context(), cfg)
			defer cancel()

			flow := app.ShippingRules(project)
			if len(flow.RewardsToQuery()) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no shippable rewards")
				return err
			}
			if err := flow.Run(ctx); err != nil {
				return err
			}
			state, _ := latest(flow.State())
			printShippingRules(cmd.OutOrStdout(), state.Rules)
			return nil
		},
	}
}

func printShippingRules(w io.Writer, rules []schema.ShippingRule) {
	for _, rule := range rules {
		name := rule.Location.DisplayableName
		if name == "" {
			name = rule.Location.Name
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.2f\n", rule.Location.ID, name, rule.Cost)
	}
}
