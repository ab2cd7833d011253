package schema

// ThirdPartyEventName names an analytics event forwarded to third parties.
type ThirdPartyEventName string

const (
	// ThirdPartyEventAddPaymentInfo fires when a payment method is chosen before checkout.
	ThirdPartyEventAddPaymentInfo ThirdPartyEventName = "add_payment_info"
	// ThirdPartyEventPurchase fires when checkout completes.
	ThirdPartyEventPurchase ThirdPartyEventName = "purchase"
	// ThirdPartyEventScreenView fires when a project screen is shown.
	ThirdPartyEventScreenView ThirdPartyEventName = "screen_view"
	// ThirdPartyEventAddToCart fires when a reward is selected.
	ThirdPartyEventAddToCart ThirdPartyEventName = "add_to_cart"
)

// ThirdPartyEventItem describes one reward or add-on in a pledge.
type ThirdPartyEventItem struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity,omitempty"`
}

// AppData carries device details the conversions API requires.
type AppData struct {
	Extinfo []string `json:"extinfo"`
}

// TriggerThirdPartyEventInput is the mutation input for third-party analytics events.
type TriggerThirdPartyEventInput struct {
	EventName              ThirdPartyEventName   `json:"event_name"`
	DeviceID               string                `json:"device_id"`
	ProjectID              string                `json:"project_id"`
	UserID                 string                `json:"user_id,omitempty"`
	PledgeAmount           *float64              `json:"pledge_amount,omitempty"`
	Shipping               *float64              `json:"shipping,omitempty"`
	TransactionID          string                `json:"transaction_id,omitempty"`
	Items                  []ThirdPartyEventItem `json:"items,omitempty"`
	FirebaseScreen         string                `json:"firebase_screen,omitempty"`
	FirebasePreviousScreen string                `json:"firebase_previous_screen,omitempty"`
	AppData                AppData               `json:"app_data"`
}

// TriggerThirdPartyEventResult reports whether the event was accepted.
type TriggerThirdPartyEventResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
