package schema

// Payment methods.

// DeletePaymentSourceResult reports a deleted payment source.
type DeletePaymentSourceResult struct {
	ClientMutationID string `json:"client_mutation_id"`
}

// SavePaymentMethodRequest stores a payment method confirmed through a setup intent.
type SavePaymentMethodRequest struct {
	Reusable           bool   `json:"reusable"`
	IntentClientSecret string `json:"intent_client_secret"`
}

// SetupIntent is a pending card setup on the payment processor.
type SetupIntent struct {
	ClientSecret string `json:"client_secret"`
}

// Account.

// UpdatePasswordRequest changes or sets the account password.
type UpdatePasswordRequest struct {
	CurrentPassword      string `json:"current_password"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// UpdatePasswordResult reports the account after a password change.
type UpdatePasswordResult struct {
	User User `json:"user"`
}

// Pledge flow.

// PledgeReason tells the pledge screen why it was opened.
type PledgeReason string

const (
	// PledgeReasonPledge opens a new pledge.
	PledgeReasonPledge PledgeReason = "pledge"
	// PledgeReasonUpdateReward changes the reward of an existing pledge.
	PledgeReasonUpdateReward PledgeReason = "update_reward"
	// PledgeReasonUpdatePayment changes the payment method of an existing pledge.
	PledgeReasonUpdatePayment PledgeReason = "update_payment"
)

// PledgeFlowContext is the analytics context of a pledge flow.
type PledgeFlowContext string

const (
	// PledgeFlowNewPledge is a first-time pledge.
	PledgeFlowNewPledge PledgeFlowContext = "new_pledge"
	// PledgeFlowChangeReward is a reward change on an existing pledge.
	PledgeFlowChangeReward PledgeFlowContext = "change_reward"
	// PledgeFlowManageReward is pledge management.
	PledgeFlowManageReward PledgeFlowContext = "manage_reward"
)

// ScreenLocation is the on-screen frame a reward card was tapped at.
type ScreenLocation struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// PledgeData carries the user's reward selection through the pledge flow.
type PledgeData struct {
	FlowContext    PledgeFlowContext
	ProjectData    ProjectData
	Reward         Reward
	AddOns         []Reward
	ShippingRule   *ShippingRule
	ScreenLocation *ScreenLocation
}

// CheckoutData is the completed checkout of a pledge.
type CheckoutData struct {
	ID             int64
	Amount         float64
	ShippingAmount float64
	BonusAmount    float64
}

// DraftPledge holds pledge and shipping amounts before checkout.
type DraftPledge struct {
	PledgeAmount   float64
	ShippingAmount float64
}
