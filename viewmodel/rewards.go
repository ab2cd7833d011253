package viewmodel

import (
	"context"

	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
)

// ScreenRewards names the rewards carousel of a project.
const ScreenRewards = "rewards"

// PledgeRequest asks the pledge screen to open.
type PledgeRequest struct {
	Data   schema.PledgeData
	Reason schema.PledgeReason
}

// RewardSelection is a tapped reward and where it was on screen.
type RewardSelection struct {
	Location schema.ScreenLocation
	Reward   schema.Reward
}

// RewardsInputs are the user actions of the rewards screen.
type RewardsInputs interface {
	ConfigureWith(data schema.ProjectData)
	RewardClicked(location schema.ScreenLocation, reward schema.Reward)
}

// RewardsOutputs are the values the rewards screen renders.
type RewardsOutputs interface {
	// BackedRewardPosition emits the index of the backed reward.
	BackedRewardPosition() rx.Observable[int]
	Project() rx.Observable[schema.ProjectData]
	RewardsCount() rx.Observable[int]
	ShowPledgeFragment() rx.Observable[PledgeRequest]
}

// Rewards lists a project's rewards and opens the pledge flow.
type Rewards struct {
	*Lifecycle

	projectData   *rx.Subject[schema.ProjectData]
	rewardClicked *rx.Subject[RewardSelection]

	backedPosition *rx.Behavior[int]
	project        *rx.Behavior[schema.ProjectData]
	rewardsCount   *rx.Behavior[int]
	showPledge     *rx.Behavior[PledgeRequest]
}

// NewRewards builds the screen.
func NewRewards(env Environment) *Rewards {
	vm := &Rewards{
		projectData:    rx.NewSubject[schema.ProjectData](),
		rewardClicked:  rx.NewSubject[RewardSelection](),
		backedPosition: rx.NewBehavior[int](),
		project:        rx.NewBehavior[schema.ProjectData](),
		rewardsCount:   rx.NewBehavior[int](),
		showPledge:     rx.NewBehavior[PledgeRequest](),
	}
	vm.Lifecycle = newLifecycle(ScreenRewards, env, vm.bind)
	return vm
}

// Inputs returns the input side of the screen.
func (vm *Rewards) Inputs() RewardsInputs { return vm }

// Outputs returns the output side of the screen.
func (vm *Rewards) Outputs() RewardsOutputs { return vm }

func (vm *Rewards) bind(context.Context) {
	l := vm.Lifecycle
	subscribe(l, rx.Observable[schema.ProjectData](vm.projectData),
		output(l, "project", eventbus.SignalOutput, vm.project))

	projects := rx.Map[schema.ProjectData](vm.projectData, func(d schema.ProjectData) schema.Project { return d.Project })
	backed := rx.Map(rx.Filter(projects, func(p schema.Project) bool { return p.IsBacking }), indexOfBackedReward)
	subscribe(l, rx.DistinctUntilChanged(backed),
		output(l, "backed_reward_position", eventbus.SignalOutput, vm.backedPosition))

	subscribe(l, rx.Map(projects, func(p schema.Project) int { return len(p.Rewards) }),
		output(l, "rewards_count", eventbus.SignalOutput, vm.rewardsCount))

	clicks := rx.TakePairWhen[schema.ProjectData, RewardSelection](vm.projectData, vm.rewardClicked)
	subscribe(l, rx.Map(clicks, func(p rx.Pair[schema.ProjectData, RewardSelection]) PledgeRequest {
		return pledgeRequest(p.First, p.Second)
	}), output(l, "show_pledge_fragment", eventbus.SignalOutput, vm.showPledge))
}

func pledgeRequest(data schema.ProjectData, selection RewardSelection) PledgeRequest {
	flow, reason := schema.PledgeFlowNewPledge, schema.PledgeReasonPledge
	if data.Project.IsBacking {
		flow, reason = schema.PledgeFlowChangeReward, schema.PledgeReasonUpdateReward
	}
	location := selection.Location
	return PledgeRequest{
		Data: schema.PledgeData{
			FlowContext:    flow,
			ProjectData:    data,
			Reward:         selection.Reward,
			ScreenLocation: &location,
		},
		Reason: reason,
	}
}

// indexOfBackedReward falls back to the first position when the backed
// reward is not listed.
func indexOfBackedReward(project schema.Project) int {
	for i, reward := range project.Rewards {
		if project.IsBacked(reward) {
			return i
		}
	}
	return 0
}

// Inputs.

func (vm *Rewards) ConfigureWith(data schema.ProjectData) {
	vm.post(func() { vm.projectData.Next(data) })
}

func (vm *Rewards) RewardClicked(location schema.ScreenLocation, reward schema.Reward) {
	vm.post(func() { vm.rewardClicked.Next(RewardSelection{Location: location, Reward: reward}) })
}

// Outputs.

func (vm *Rewards) BackedRewardPosition() rx.Observable[int] { return vm.backedPosition }

func (vm *Rewards) Project() rx.Observable[schema.ProjectData] { return vm.project }

func (vm *Rewards) RewardsCount() rx.Observable[int] { return vm.rewardsCount }

func (vm *Rewards) ShowPledgeFragment() rx.Observable[PledgeRequest] { return vm.showPledge }
