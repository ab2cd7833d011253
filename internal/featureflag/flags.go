// Package featureflag answers boolean feature-flag lookups.
package featureflag

import (
	"sort"
	"strings"
	"sync"

	"pkt.systems/pledgeflow/internal/appconfig"
)

// FlagKey names a remote-config flag.
type FlagKey string

const (
	ConsentManagement FlagKey = appconfig.FlagConsentManagement
	CAPIIntegration   FlagKey = appconfig.FlagCAPIIntegration
	GoogleAnalytics   FlagKey = appconfig.FlagGoogleAnalytics
)

// Client resolves feature flags.
type Client interface {
	GetBoolean(key FlagKey) bool
}

// Static is an in-memory Client. Unknown flags are off.
type Static struct {
	mu    sync.RWMutex
	flags map[FlagKey]bool
}

// NewStatic returns a Static client seeded with flags.
func NewStatic(flags map[FlagKey]bool) *Static {
	s := &Static{flags: make(map[FlagKey]bool, len(flags))}
	for k, v := range flags {
		s.flags[normalize(k)] = v
	}
	return s
}

// FromConfig builds a Static client from the feature_flags config section.
func FromConfig(cfg appconfig.Config) *Static {
	flags := make(map[FlagKey]bool, len(cfg.FeatureFlags))
	for k, v := range cfg.FeatureFlags {
		flags[FlagKey(k)] = v
	}
	return NewStatic(flags)
}

// GetBoolean implements Client.
func (s *Static) GetBoolean(key FlagKey) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[normalize(key)]
}

// Set overrides a flag at runtime.
func (s *Static) Set(key FlagKey, value bool) {
	s.mu.Lock()
	s.flags[normalize(key)] = value
	s.mu.Unlock()
}

// Enabled lists the flags that are on, sorted.
func (s *Static) Enabled() []FlagKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FlagKey, 0, len(s.flags))
	for k, v := range s.flags {
		if v {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalize(key FlagKey) FlagKey {
	return FlagKey(strings.ToLower(strings.TrimSpace(string(key))))
}
