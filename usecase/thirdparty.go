package usecase

import (
	"context"
	"strconv"

	"pkt.systems/pledgeflow/internal/featureflag"
	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/internal/prefs"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

// extinfoVersion is the first element of the conversions API extinfo array.
const extinfoVersion = "a2"

// EventResult is the API's answer to a third-party event.
type EventResult struct {
	Success bool
	Message string
}

// CheckoutAndPledge pairs a completed checkout with the selection it paid for.
// Either side may be nil before checkout.
type CheckoutAndPledge struct {
	Checkout *schema.CheckoutData
	Pledge   *schema.PledgeData
}

// Screens names the analytics screens an event was sent from.
type Screens struct {
	Current  string
	Previous string
}

// EventRequest is everything BuildInput needs.
type EventRequest struct {
	EventName   schema.ThirdPartyEventName
	Project     schema.Project
	User        *schema.User
	Data        CheckoutAndPledge
	Screens     Screens
	DraftPledge *schema.DraftPledge
}

// SendThirdPartyEvent forwards analytics events to third parties when the user
// consented and the integration is switched on.
type SendThirdPartyEvent struct {
	store   *prefs.Store
	canSend bool
	log     pslog.Logger
}

// NewSendThirdPartyEvent reads consent and flags once.
func NewSendThirdPartyEvent(store *prefs.Store, flags featureflag.Client, logger pslog.Logger) *SendThirdPartyEvent {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	canSend := false
	if store != nil && flags != nil {
		canSend = flags.GetBoolean(featureflag.ConsentManagement) &&
			store.GetBool(prefs.KeyConsentManagement, false) &&
			(flags.GetBoolean(featureflag.CAPIIntegration) || flags.GetBoolean(featureflag.GoogleAnalytics))
	}
	return &SendThirdPartyEvent{store: store, canSend: canSend, log: logger}
}

// CanSend reports whether events leave the device at all.
func (u *SendThirdPartyEvent) CanSend() bool {
	return u.canSend
}

// Send emits one EventResult per accepted event. Projects that opted out, or
// a missing consent, filter the event before any request. Request failures are
// logged and dropped; the returned source never carries an error.
func (u *SendThirdPartyEvent) Send(
	ctx context.Context,
	sched rx.Scheduler,
	api graphql.Client,
	project rx.Observable[schema.Project],
	user rx.Observable[*schema.User],
	data rx.Observable[CheckoutAndPledge],
	eventName schema.ThirdPartyEventName,
	screens Screens,
	draft *schema.DraftPledge,
) rx.Observable[EventResult] {
	if data == nil {
		data = rx.Just(CheckoutAndPledge{})
	}
	if user == nil {
		user = rx.Just[*schema.User](nil)
	}
	eligible := rx.Filter(project, func(p schema.Project) bool {
		return p.SendThirdPartyEvents && u.canSend
	})
	withUser := rx.CombineLatestPair(eligible, user)
	inputs := rx.CombineLatest2(withUser, data, func(pu rx.Pair[schema.Project, *schema.User], d CheckoutAndPledge) schema.TriggerThirdPartyEventInput {
		return u.BuildInput(EventRequest{
			EventName:   eventName,
			Project:     pu.First,
			User:        pu.Second,
			Data:        d,
			Screens:     screens,
			DraftPledge: draft,
		})
	})
	results := rx.SwitchMap(inputs, func(input schema.TriggerThirdPartyEventInput) rx.Observable[EventResult] {
		outcome := rx.Call(ctx, sched, func(ctx context.Context) (schema.TriggerThirdPartyEventResult, error) {
			if api == nil {
				return schema.TriggerThirdPartyEventResult{}, schema.ErrMissingDependency
			}
			return api.TriggerThirdPartyEvent(ctx, input)
		})
		return rx.Map(rx.Filter(outcome, func(n rx.Notification[schema.TriggerThirdPartyEventResult]) bool {
			if n.IsError() {
				u.log.Warn("third party event failed", "event", string(input.EventName), "err", n.Err)
			}
			return n.IsValue()
		}), func(n rx.Notification[schema.TriggerThirdPartyEventResult]) EventResult {
			return EventResult{Success: n.Value.Success, Message: n.Value.Message}
		})
	})
	return rx.Share(results)
}

// BuildInput assembles the mutation input. Amounts come from the checkout when
// present, else from the draft pledge.
func (u *SendThirdPartyEvent) BuildInput(req EventRequest) schema.TriggerThirdPartyEventInput {
	input := schema.TriggerThirdPartyEventInput{
		EventName:              req.EventName,
		ProjectID:              schema.EncodeRelayID("Project", int64(req.Project.ID)),
		FirebaseScreen:         req.Screens.Current,
		FirebasePreviousScreen: req.Screens.Previous,
		AppData:                schema.AppData{Extinfo: []string{extinfoVersion}},
	}
	if u.store != nil {
		input.DeviceID = u.store.DeviceID()
	}
	if req.User != nil && req.User.ID != 0 {
		input.UserID = strconv.FormatInt(int64(req.User.ID), 10)
	}
	switch {
	case req.Data.Checkout != nil:
		checkout := req.Data.Checkout
		amount, shipping := checkout.Amount, checkout.ShippingAmount
		input.PledgeAmount = &amount
		input.Shipping = &shipping
		input.TransactionID = strconv.FormatInt(checkout.ID, 10)
	case req.DraftPledge != nil:
		amount, shipping := req.DraftPledge.PledgeAmount, req.DraftPledge.ShippingAmount
		input.PledgeAmount = &amount
		input.Shipping = &shipping
	}
	if pledge := req.Data.Pledge; pledge != nil {
		input.Items = append(input.Items, eventItem(pledge.Reward))
		for _, addOn := range pledge.AddOns {
			input.Items = append(input.Items, eventItem(addOn))
		}
	}
	return input
}

func eventItem(reward schema.Reward) schema.ThirdPartyEventItem {
	return schema.ThirdPartyEventItem{
		ItemID:   strconv.FormatInt(int64(reward.ID), 10),
		ItemName: reward.Title,
		Price:    reward.Minimum,
		Quantity: reward.Quantity,
	}
}
