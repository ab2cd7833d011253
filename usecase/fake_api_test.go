package usecase

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pledgeflow/schema"
)

var errNotScripted = errors.New("not scripted")

type fakeAPI struct {
	mu       sync.Mutex
	rules    map[schema.RewardID][]schema.ShippingRule
	failFor  map[schema.RewardID]error
	queried  []schema.RewardID
	events   []schema.TriggerThirdPartyEventInput
	eventErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		rules:   make(map[schema.RewardID][]schema.ShippingRule),
		failFor: make(map[schema.RewardID]error),
	}
}

func (f *fakeAPI) StoredCards(context.Context) ([]schema.StoredCard, error) {
	return nil, errNotScripted
}

func (f *fakeAPI) DeletePaymentSource(context.Context, string) (schema.DeletePaymentSourceResult, error) {
	return schema.DeletePaymentSourceResult{}, errNotScripted
}

func (f *fakeAPI) CreateSetupIntent(context.Context) (schema.SetupIntent, error) {
	return schema.SetupIntent{}, errNotScripted
}

func (f *fakeAPI) SavePaymentMethod(context.Context, schema.SavePaymentMethodRequest) (schema.StoredCard, error) {
	return schema.StoredCard{}, errNotScripted
}

func (f *fakeAPI) UpdateUserPassword(context.Context, schema.UpdatePasswordRequest) (schema.UpdatePasswordResult, error) {
	return schema.UpdatePasswordResult{}, errNotScripted
}

func (f *fakeAPI) ShippingRules(_ context.Context, reward schema.Reward) ([]schema.ShippingRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, reward.ID)
	if err := f.failFor[reward.ID]; err != nil {
		return nil, err
	}
	return f.rules[reward.ID], nil
}

func (f *fakeAPI) TriggerThirdPartyEvent(_ context.Context, input schema.TriggerThirdPartyEventInput) (schema.TriggerThirdPartyEventResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return schema.TriggerThirdPartyEventResult{}, f.eventErr
	}
	f.events = append(f.events, input)
	return schema.TriggerThirdPartyEventResult{Success: true, Message: "ok"}, nil
}

func (f *fakeAPI) queriedRewards() map[schema.RewardID]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[schema.RewardID]bool, len(f.queried))
	for _, id := range f.queried {
		out[id] = true
	}
	return out
}

func (f *fakeAPI) sentEvents() []schema.TriggerThirdPartyEventInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]schema.TriggerThirdPartyEventInput(nil), f.events...)
}
