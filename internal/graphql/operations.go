package graphql

import (
	"encoding/json"

	"pkt.systems/pledgeflow/schema"
)

// Operation names sent in Request.OperationName.
const (
	OpStoredCards            = "UserPaymentSources"
	OpDeletePaymentSource    = "DeletePaymentSource"
	OpCreateSetupIntent      = "CreateSetupIntent"
	OpSavePaymentMethod      = "SavePaymentMethod"
	OpUpdateUserPassword     = "CreatePassword"
	OpShippingRules          = "ShippingRulesForReward"
	OpTriggerThirdPartyEvent = "TriggerThirdPartyEvent"
)

var queries = map[string]string{
	OpStoredCards: `query UserPaymentSources {
  me { storedCards { nodes { id lastFour expirationDate type } } }
}`,
	OpDeletePaymentSource: `mutation DeletePaymentSource($paymentSourceId: String!) {
  paymentSourceDelete(input: {paymentSourceId: $paymentSourceId}) { clientMutationId }
}`,
	OpCreateSetupIntent: `mutation CreateSetupIntent {
  createSetupIntent(input: {}) { clientSecret }
}`,
	OpSavePaymentMethod: `mutation SavePaymentMethod($reusable: Boolean!, $intentClientSecret: String!) {
  createPaymentSource(input: {reusable: $reusable, intentClientSecret: $intentClientSecret}) {
    paymentSource { id lastFour expirationDate type }
  }
}`,
	OpUpdateUserPassword: `mutation CreatePassword($password: String!, $passwordConfirmation: String!) {
  updateUserAccount(input: {password: $password, passwordConfirmation: $passwordConfirmation}) {
    user { id name email hasPassword needsPassword }
  }
}`,
	OpShippingRules: `query ShippingRulesForReward($rewardId: ID!) {
  node(id: $rewardId) { ... on Reward { shippingRules { id cost location { id name displayableName country } } } }
}`,
	OpTriggerThirdPartyEvent: `mutation TriggerThirdPartyEvent($input: TriggerThirdPartyEventInput!) {
  triggerThirdPartyEvent(input: $input) { success message }
}`,
}

// Query returns the document sent for op.
func Query(op string) string {
	return queries[op]
}

// Request is the JSON body posted to the API.
type Request struct {
	OperationName string          `json:"operationName"`
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables,omitempty"`
}

// Response is the JSON body returned by the API.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []Error         `json:"errors,omitempty"`
}

// Error is one GraphQL error entry.
type Error struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// Variables and data payloads, per operation.

type DeletePaymentSourceVars struct {
	PaymentSourceID string `json:"paymentSourceId"`
}

type SavePaymentMethodVars struct {
	Reusable           bool   `json:"reusable"`
	IntentClientSecret string `json:"intentClientSecret"`
}

type UpdatePasswordVars struct {
	CurrentPassword      string `json:"currentPassword,omitempty"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type ShippingRulesVars struct {
	RewardID string `json:"rewardId"`
}

type TriggerThirdPartyEventVars struct {
	Input schema.TriggerThirdPartyEventInput `json:"input"`
}

type StoredCardsData struct {
	Me struct {
		StoredCards struct {
			Nodes []schema.StoredCard `json:"nodes"`
		} `json:"storedCards"`
	} `json:"me"`
}

type DeletePaymentSourceData struct {
	PaymentSourceDelete schema.DeletePaymentSourceResult `json:"paymentSourceDelete"`
}

type CreateSetupIntentData struct {
	CreateSetupIntent schema.SetupIntent `json:"createSetupIntent"`
}

type SavePaymentMethodData struct {
	CreatePaymentSource struct {
		PaymentSource schema.StoredCard `json:"paymentSource"`
	} `json:"createPaymentSource"`
}

type UpdatePasswordData struct {
	UpdateUserAccount schema.UpdatePasswordResult `json:"updateUserAccount"`
}

type ShippingRulesData struct {
	Node struct {
		ShippingRules []schema.ShippingRule `json:"shippingRules"`
	} `json:"node"`
}

type TriggerThirdPartyEventData struct {
	TriggerThirdPartyEvent schema.TriggerThirdPartyEventResult `json:"triggerThirdPartyEvent"`
}
