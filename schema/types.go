package schema

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// UserID identifies a user account.
type UserID int64

// ProjectID identifies a project.
type ProjectID int64

// RewardID identifies a reward or add-on.
type RewardID int64

// LocationID identifies a shipping location.
type LocationID int64

// User is the logged-in account as seen by the client.
type User struct {
	ID            UserID `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	HasPassword   bool   `json:"has_password"`
	NeedsPassword bool   `json:"needs_password"`
}

// Location is a place a reward can ship to.
type Location struct {
	ID              LocationID `json:"id"`
	Name            string     `json:"name"`
	DisplayableName string     `json:"displayable_name"`
	Country         string     `json:"country"`
}

// ShippingRule prices shipping of a reward to one location.
type ShippingRule struct {
	ID       int64    `json:"id"`
	Cost     float64  `json:"cost"`
	Location Location `json:"location"`
}

// ShippingPreference describes where a reward ships.
type ShippingPreference string

const (
	// ShippingNone marks digital rewards.
	ShippingNone ShippingPreference = "none"
	// ShippingRestricted ships to an explicit list of locations.
	ShippingRestricted ShippingPreference = "restricted"
	// ShippingUnrestricted ships anywhere in the world.
	ShippingUnrestricted ShippingPreference = "unrestricted"
	// ShippingLocal is local pickup only.
	ShippingLocal ShippingPreference = "local"
)

// Reward is a pledge tier or add-on of a project.
type Reward struct {
	ID                 RewardID           `json:"id"`
	Title              string             `json:"title"`
	Minimum            float64            `json:"minimum"`
	ShippingPreference ShippingPreference `json:"shipping_preference"`
	IsAddOn            bool               `json:"is_add_on"`
	Quantity           int                `json:"quantity,omitempty"`
}

// ShipsWorldwide reports whether the reward ships to every location.
func (r Reward) ShipsWorldwide() bool {
	return r.ShippingPreference == ShippingUnrestricted
}

// ShipsToRestrictedLocations reports whether the reward ships to a bounded set of locations.
func (r Reward) ShipsToRestrictedLocations() bool {
	return r.ShippingPreference == ShippingRestricted || r.ShippingPreference == ShippingLocal
}

// Backing is the current user's pledge on a project.
type Backing struct {
	RewardID       RewardID `json:"reward_id"`
	Amount         float64  `json:"amount"`
	ShippingAmount float64  `json:"shipping_amount"`
	AddOns         []Reward `json:"add_ons,omitempty"`
}

// Project is a crowdfunding campaign.
type Project struct {
	ID                   ProjectID `json:"id"`
	Slug                 string    `json:"slug"`
	Name                 string    `json:"name"`
	Category             string    `json:"category,omitempty"`
	Currency             string    `json:"currency,omitempty"`
	APIURL               string    `json:"api_url,omitempty"`
	Rewards              []Reward  `json:"rewards,omitempty"`
	IsBacking            bool      `json:"is_backing"`
	Backing              *Backing  `json:"backing,omitempty"`
	SendThirdPartyEvents bool      `json:"send_third_party_events"`
}

// IsBacked reports whether reward is the reward the user backed.
func (p Project) IsBacked(reward Reward) bool {
	if !p.IsBacking || p.Backing == nil {
		return false
	}
	return p.Backing.RewardID == reward.ID
}

// ProjectData wraps a project with the context it was opened from.
type ProjectData struct {
	Project Project
	RefTag  string
}

// StoredCard is a saved payment method.
type StoredCard struct {
	ID             string `json:"id"`
	LastFourDigits string `json:"last_four_digits"`
	ExpirationDate string `json:"expiration_date"`
	Type           string `json:"type"`
}

// String renders the card the way the payment settings list shows it.
func (c StoredCard) String() string {
	kind := strings.TrimSpace(c.Type)
	if kind == "" {
		kind = "card"
	}
	return fmt.Sprintf("%s •••• %s (exp %s)", kind, c.LastFourDigits, c.ExpirationDate)
}

// EncodeRelayID renders the opaque GraphQL node id for a model id.
func EncodeRelayID(kind string, id int64) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s-%d", kind, id)))
}

// DecodeRelayID reverses EncodeRelayID.
func DecodeRelayID(relayID string) (kind string, id int64, err error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(relayID))
	if err != nil {
		return "", 0, fmt.Errorf("%w: relay id: %v", ErrInvalidRequest, err)
	}
	idx := strings.LastIndexByte(string(raw), '-')
	if idx <= 0 {
		return "", 0, fmt.Errorf("%w: relay id %q", ErrInvalidRequest, relayID)
	}
	id, err = strconv.ParseInt(string(raw[idx+1:]), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: relay id %q", ErrInvalidRequest, relayID)
	}
	return string(raw[:idx]), id, nil
}
