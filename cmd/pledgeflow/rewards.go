package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pledgeflow/usecase"
	"pkt.systems/pledgeflow/viewmodel"
)

func readProject(cmd *cobra.Command, args []string) (schema.Project, error) {
	data, err := readInput(cmd, args)
	if err != nil {
		return schema.Project{}, err
	}
	var project schema.Project
	if err := json.Unmarshal(data, &project); err != nil {
		return schema.Project{}, fmt.Errorf("parse project: %w", err)
	}
	return project, nil
}

func newRewardsCmd(cfgPath *string) *cobra.Command {
	var selectID int64
	var refTag string
	cmd := &cobra.Command{
		Use:   "rewards <project.json|->",
		Short: "List a project's rewards and optionally start a pledge",
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
			traceSignals(ctx, app.Bus(), viewmodel.ScreenRewards)

			vm := viewmodel.NewRewards(app.Environment())
			if err := vm.Create(ctx); err != nil {
				return err
			}
			defer vm.Destroy()
			in, out := vm.Inputs(), vm.Outputs()
			in.ConfigureWith(schema.ProjectData{Project: project, RefTag: refTag})
			vm.Sync()

			w := cmd.OutOrStdout()
			count, _ := latest(out.RewardsCount())
			_, _ = fmt.Fprintf(w, "%d rewards\n", count)
			backed, isBacked := latest(out.BackedRewardPosition())
			for i, reward := range project.Rewards {
				marker := " "
				if isBacked && i == backed {
					marker = "*"
				}
				_, _ = fmt.Fprintf(w, "%s %d\t%s\t%.2f\n", marker, reward.ID, reward.Title, reward.Minimum)
			}
			if selectID == 0 {
				return nil
			}

			reward, ok := findReward(project, schema.RewardID(selectID))
			if !ok {
				return fmt.Errorf("reward %d not found", selectID)
			}
			in.RewardClicked(schema.ScreenLocation{}, reward)
			vm.Sync()
			req, ok := latest(out.ShowPledgeFragment())
			if !ok {
				return fmt.Errorf("reward %d not selectable", selectID)
			}
			_, _ = fmt.Fprintf(w, "pledge %s (%s) for reward %d\n", req.Reason, req.Data.FlowContext, req.Data.Reward.ID)
			return sendAddToCart(ctx, cmd, app, project, req)
		},
	}
	cmd.Flags().Int64Var(&selectID, "select", 0, "reward id to pledge for")
	cmd.Flags().StringVar(&refTag, "ref-tag", "", "ref tag the project was opened with")
	return cmd
}

func findReward(project schema.Project, id schema.RewardID) (schema.Reward, bool) {
	for _, reward := range project.Rewards {
		if reward.ID == id {
			return reward, true
		}
	}
	return schema.Reward{}, false
}

// sendAddToCart forwards the selection to third-party analytics when allowed.
func sendAddToCart(ctx context.Context, cmd *cobra.Command, app *pledgeflow.App, project schema.Project, req viewmodel.PledgeRequest) error {
	events := app.ThirdPartyEvents()
	w := cmd.OutOrStdout()
	if !events.CanSend() || !project.SendThirdPartyEvents {
		_, err := fmt.Fprintln(w, "third-party events disabled")
		return err
	}
	pledge := req.Data
	results, sub := first(events.Send(
		ctx,
		rx.Immediate,
		app.Environment().API,
		rx.Just(project),
		app.CurrentUser().Observable(),
		rx.Just(usecase.CheckoutAndPledge{Pledge: &pledge}),
		schema.ThirdPartyEventAddToCart,
		usecase.Screens{Current: viewmodel.ScreenRewards},
		nil,
	))
	defer sub.Dispose()
	select {
	case res := <-results:
		return printEventResult(w, res)
	case <-ctx.Done():
		return waitErr(ctx, "third-party event")
	}
}

func printEventResult(w io.Writer, res usecase.EventResult) error {
	_, err := fmt.Fprintf(w, "third-party event sent: success=%t %s\n", res.Success, res.Message)
	return err
}
