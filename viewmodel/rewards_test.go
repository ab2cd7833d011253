package viewmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/pledgeflow/schema"
)

func rewardsProject(backing bool) schema.ProjectData {
	project := schema.Project{
		ID:   1,
		Slug: "tiny-press",
		Rewards: []schema.Reward{
			{ID: 10, Title: "Zine"},
			{ID: 11, Title: "Print"},
			{ID: 12, Title: "Press"},
		},
	}
	if backing {
		project.IsBacking = true
		project.Backing = &schema.Backing{RewardID: 11}
	}
	return schema.ProjectData{Project: project, RefTag: "discovery"}
}

func TestRewardsProjectAndCount(t *testing.T) {
	vm := NewRewards(Environment{})
	create(t, vm)
	count := record(t, vm.Outputs().RewardsCount())
	position := record(t, vm.Outputs().BackedRewardPosition())

	vm.Inputs().ConfigureWith(rewardsProject(false))
	vm.Sync()

	assert.Equal(t, []int{3}, count.Values())
	assert.Zero(t, position.Len(), "no position without a backing")
	data, ok := vm.project.Value()
	require.True(t, ok)
	assert.Equal(t, "tiny-press", data.Project.Slug)
}

func TestRewardsBackedPositionDistinct(t *testing.T) {
	vm := NewRewards(Environment{})
	create(t, vm)
	position := record(t, vm.Outputs().BackedRewardPosition())

	vm.Inputs().ConfigureWith(rewardsProject(true))
	vm.Inputs().ConfigureWith(rewardsProject(true))
	vm.Sync()

	assert.Equal(t, []int{1}, position.Values())
}

func TestRewardsClickOpensPledge(t *testing.T) {
	tests := []struct {
		name    string
		backing bool
		flow    schema.PledgeFlowContext
		reason  schema.PledgeReason
	}{
		{"new pledge", false, schema.PledgeFlowNewPledge, schema.PledgeReasonPledge},
		{"change reward", true, schema.PledgeFlowChangeReward, schema.PledgeReasonUpdateReward},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := NewRewards(Environment{})
			create(t, vm)
			pledges := record(t, vm.Outputs().ShowPledgeFragment())
			data := rewardsProject(tt.backing)
			location := schema.ScreenLocation{X: 1, Y: 2, Width: 3, Height: 4}

			vm.Inputs().RewardClicked(location, data.Project.Rewards[2])
			vm.Inputs().ConfigureWith(data)
			vm.Inputs().RewardClicked(location, data.Project.Rewards[2])
			vm.Sync()

			require.Equal(t, 1, pledges.Len(), "clicks before configure are dropped")
			req, _ := pledges.Last()
			assert.Equal(t, tt.reason, req.Reason)
			assert.Equal(t, tt.flow, req.Data.FlowContext)
			assert.Equal(t, schema.RewardID(12), req.Data.Reward.ID)
			require.NotNil(t, req.Data.ScreenLocation)
			assert.Equal(t, location, *req.Data.ScreenLocation)
		})
	}
}
