// Package usecase holds flows shared by several view-models.
package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/internal/logx"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

// ShippingRulesState is the latest view of a project's shipping rules.
type ShippingRulesState struct {
	Rules   []schema.ShippingRule
	Loading bool
	Err     error
}

// ErrorMessage returns the failure text, or "" when the state is not an error.
func (s ShippingRulesState) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return graphql.DisplayMessage(s.Err)
}

// GetShippingRules loads every location a project's rewards ship to.
type GetShippingRules struct {
	api     graphql.Client
	project schema.Project
	rewards []schema.Reward
	state   *rx.Behavior[ShippingRulesState]
	log     pslog.Logger
}

// NewGetShippingRules selects the rewards to query for project.
func NewGetShippingRules(api graphql.Client, project schema.Project, logger pslog.Logger) *GetShippingRules {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &GetShippingRules{
		api:     api,
		project: project,
		rewards: schema.RewardsToQueryForShipping(project.Rewards),
		state:   rx.NewBehaviorWith(ShippingRulesState{}),
		log:     logx.WithProject(logger, project),
	}
}

// RewardsToQuery returns the rewards whose rules Run fetches.
func (g *GetShippingRules) RewardsToQuery() []schema.Reward {
	return append([]schema.Reward(nil), g.rewards...)
}

// State replays the latest state to each subscriber.
func (g *GetShippingRules) State() rx.Observable[ShippingRulesState] {
	return g.state
}

// Run queries every selected reward concurrently and publishes the merged
// rules. Rule sets are merged in reward order, so a later reward's rule for a
// location replaces an earlier one. With nothing to query Run publishes nothing.
func (g *GetShippingRules) Run(ctx context.Context) error {
	if g.api == nil {
		return fmt.Errorf("shipping rules: %w: api client", schema.ErrMissingDependency)
	}
	if len(g.rewards) == 0 {
		g.log.Debug("shipping rules skipped", "reason", "no shippable rewards")
		return nil
	}
	g.state.Next(ShippingRulesState{Loading: true})

	sets := make([][]schema.ShippingRule, len(g.rewards))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, reward := range g.rewards {
		group.Go(func() error {
			rules, err := g.api.ShippingRules(groupCtx, reward)
			if err != nil {
				return fmt.Errorf("reward %d: %w", reward.ID, err)
			}
			sets[i] = rules
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		g.log.Warn("shipping rules failed", "err", err)
		g.state.Next(ShippingRulesState{Err: err})
		return err
	}
	merged := schema.MergeShippingRules(sets...)
	g.log.Info("shipping rules loaded", "rewards", len(g.rewards), "rules", len(merged))
	g.state.Next(ShippingRulesState{Rules: merged})
	return nil
}
