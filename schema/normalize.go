package schema

import (
	"strings"
	"unicode"
)

// NormalizePaymentSourceID validates a payment source identifier.
// Allowed characters: A-Z, a-z, 0-9, '_', '-', '='.
func NormalizePaymentSourceID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", ErrInvalidRequest
	}
	for _, r := range trimmed {
		if r == '_' || r == '-' || r == '=' {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return "", ErrInvalidRequest
	}
	return trimmed, nil
}

// NormalizeEventName lowercases an analytics event name and replaces spaces with underscores.
func NormalizeEventName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidRequest
	}
	trimmed = strings.ToLower(trimmed)
	return strings.Join(strings.Fields(trimmed), "_"), nil
}

// RewardsToQueryForShipping picks the rewards whose shipping rules describe every
// location the project ships to. The first worldwide reward wins; otherwise every
// restricted or local reward is returned, deduplicated by id in project order.
func RewardsToQueryForShipping(rewards []Reward) []Reward {
	for _, reward := range rewards {
		if reward.ShipsWorldwide() {
			return []Reward{reward}
		}
	}
	seen := make(map[RewardID]int)
	out := make([]Reward, 0, len(rewards))
	for _, reward := range rewards {
		if !reward.ShipsToRestrictedLocations() {
			continue
		}
		if idx, ok := seen[reward.ID]; ok {
			out[idx] = reward
			continue
		}
		seen[reward.ID] = len(out)
		out = append(out, reward)
	}
	return out
}

// MergeShippingRules merges rule sets by location id. Later sets overwrite earlier
// rules for the same location while the first-seen position is kept.
func MergeShippingRules(sets ...[]ShippingRule) []ShippingRule {
	index := make(map[LocationID]int)
	var out []ShippingRule
	for _, set := range sets {
		for _, rule := range set {
			if idx, ok := index[rule.Location.ID]; ok {
				out[idx] = rule
				continue
			}
			index[rule.Location.ID] = len(out)
			out = append(out, rule)
		}
	}
	return out
}
