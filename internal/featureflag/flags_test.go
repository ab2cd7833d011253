package featureflag

import (
	"reflect"
	"testing"

	"pkt.systems/pledgeflow/internal/appconfig"
)

func TestStaticLookup(t *testing.T) {
	flags := NewStatic(map[FlagKey]bool{ConsentManagement: true, "Android_CAPI_Integration ": true})
	if !flags.GetBoolean(ConsentManagement) {
		t.Fatalf("expected consent flag on")
	}
	if !flags.GetBoolean(CAPIIntegration) {
		t.Fatalf("expected keys to be normalized")
	}
	if flags.GetBoolean(GoogleAnalytics) {
		t.Fatalf("expected unknown flag off")
	}
	flags.Set(GoogleAnalytics, true)
	want := []FlagKey{CAPIIntegration, ConsentManagement, GoogleAnalytics}
	if got := flags.Enabled(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected enabled flags: %v", got)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := appconfig.Config{FeatureFlags: map[string]bool{appconfig.FlagGoogleAnalytics: true}}
	flags := FromConfig(cfg)
	if !flags.GetBoolean(GoogleAnalytics) {
		t.Fatalf("expected flag from config")
	}
	var nilFlags *Static
	if nilFlags.GetBoolean(GoogleAnalytics) {
		t.Fatalf("expected nil client to report off")
	}
}
