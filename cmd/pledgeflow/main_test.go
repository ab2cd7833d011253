package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pkt.systems/pledgeflow/internal/apimock"
	"pkt.systems/pledgeflow/internal/appconfig"
	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/schema"
)

const testToken = "cli-token"

func newMockServer(t *testing.T) (*apimock.State, string) {
	t.Helper()
	state := apimock.NewState()
	srv := httptest.NewServer(apimock.NewServer(state, nil).Handler())
	t.Cleanup(srv.Close)
	return state, srv.URL
}

func writeConfig(t *testing.T, baseURL string, edits ...func(*appconfig.Config)) string {
	t.Helper()
	dir := t.TempDir()
	cfg := appconfig.Config{
		ConfigVersion: appconfig.CurrentConfigVersion,
		StateDir:      filepath.Join(dir, "state"),
		API: appconfig.APIConfig{
			Endpoint:       baseURL + "/graphql",
			ClientID:       "cli-test",
			TimeoutSeconds: 5,
			AccessToken:    testToken,
		},
		Tracking: appconfig.TrackingConfig{
			Endpoint:         baseURL + "/track",
			MaxAttempts:      3,
			InitialBackoffMS: 1,
			MaxBackoffMS:     5,
			QueueDepth:       8,
			Workers:          1,
		},
	}
	for _, edit := range edits {
		edit(&cfg)
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseProps(t *testing.T) {
	props, err := parseProps([]string{"page=rewards", "count=3", "ratio=0.5", "logged_in=true"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"page":      "rewards",
		"count":     int64(3),
		"ratio":     0.5,
		"logged_in": true,
	}, props)

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseProps([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSplitPasswordInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		newPass string
		confirm string
		wantErr bool
	}{
		{name: "single", input: "secret1\n", newPass: "secret1", confirm: "secret1"},
		{name: "pair", input: "secret1\nsecret2\n", newPass: "secret1", confirm: "secret2"},
		{name: "crlf", input: "secret1\r\nsecret1\r\n", newPass: "secret1", confirm: "secret1"},
		{name: "empty", input: "\n", wantErr: true},
	}
	for _, tc := range tests {
		newPass, confirm, err := splitPasswordInput(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if newPass != tc.newPass || confirm != tc.confirm {
			t.Fatalf("%s: got (%q, %q), want (%q, %q)", tc.name, newPass, confirm, tc.newPass, tc.confirm)
		}
	}
}

func TestRenderPlain(t *testing.T) {
	out, err := run(t, strings.NewReader("<ul><li>A</li><li><strong>B</strong></li></ul>"), "render", "--plain", "-")
	require.NoError(t, err)
	require.Equal(t, "• A\n• B\n", out)
}

func TestRenderANSIBold(t *testing.T) {
	out, err := run(t, strings.NewReader("<strong>B</strong>"), "render")
	require.NoError(t, err)
	require.Contains(t, out, "\x1b[1mB")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pledgeflow.yaml")
	out, err := run(t, nil, "config", "init", "-c", path)
	require.NoError(t, err)
	require.Contains(t, out, path)

	_, err = run(t, nil, "config", "init", "-c", path)
	require.Error(t, err)
	_, err = run(t, nil, "config", "init", "-c", path, "--force")
	require.NoError(t, err)

	cfg, err := appconfig.Load(path)
	require.NoError(t, err)
	require.Equal(t, appconfig.CurrentConfigVersion, cfg.ConfigVersion)
}

func TestCardsList(t *testing.T) {
	state, url := newMockServer(t)
	user := schema.User{ID: 3, Email: "backer@example.com"}
	require.NoError(t, state.AddUser(testToken, user, "secret1"))
	state.SetCards(user.ID, schema.StoredCard{ID: "card-1", LastFourDigits: "4242", ExpirationDate: "2030-12-01", Type: "visa"})

	out, err := run(t, nil, "cards", "list", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Contains(t, out, "card-1\tvisa •••• 4242 (exp 2030-12-01)")
}

func TestCardsDelete(t *testing.T) {
	state, url := newMockServer(t)
	user := schema.User{ID: 3, Email: "backer@example.com"}
	require.NoError(t, state.AddUser(testToken, user, "secret1"))
	state.SetCards(user.ID,
		schema.StoredCard{ID: "card-1", LastFourDigits: "4242", Type: "visa"},
		schema.StoredCard{ID: "card-2", LastFourDigits: "1111", Type: "visa"},
	)

	out, err := run(t, nil, "cards", "delete", "card-1", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Contains(t, out, "deleted card-1")
	require.Len(t, state.Cards(user.ID), 1)
	require.Equal(t, "card-2", state.Cards(user.ID)[0].ID)
}

func TestPasswordFromStdin(t *testing.T) {
	state, url := newMockServer(t)
	require.NoError(t, state.AddUser(testToken, schema.User{ID: 9, Email: "backer@example.com"}, ""))

	out, err := run(t, strings.NewReader("secret1\nsecret1\n"),
		"password", "--password-from-stdin", "--email", "backer@example.com", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Contains(t, out, "password set for")
	require.True(t, state.CheckPassword(testToken, "secret1"))
}

func TestPasswordMismatchNeverCallsAPI(t *testing.T) {
	state, url := newMockServer(t)
	require.NoError(t, state.AddUser(testToken, schema.User{ID: 9, Email: "backer@example.com"}, ""))

	_, err := run(t, strings.NewReader("secret1\nsecret2\n"),
		"password", "--password-from-stdin", "-c", writeConfig(t, url))
	require.EqualError(t, err, schema.PasswordWarningMismatch.String())
	require.Zero(t, state.Calls(graphql.OpUpdateUserPassword))
}

func TestShippingWorldwideRewardWins(t *testing.T) {
	state, url := newMockServer(t)
	state.SetShippingRules(2, schema.ShippingRule{ID: 1, Cost: 5, Location: schema.Location{ID: 10, Name: "Everywhere"}})
	state.SetShippingRules(1, schema.ShippingRule{ID: 2, Cost: 1, Location: schema.Location{ID: 11, Name: "Sweden"}})
	project := schema.Project{ID: 1, Rewards: []schema.Reward{
		{ID: 1, ShippingPreference: schema.ShippingRestricted},
		{ID: 2, ShippingPreference: schema.ShippingUnrestricted},
	}}
	data, err := json.Marshal(project)
	require.NoError(t, err)

	out, err := run(t, bytes.NewReader(data), "shipping", "-", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Equal(t, "10\tEverywhere\t5.00\n", out)
}

func TestShippingMergesRestrictedRewards(t *testing.T) {
	state, url := newMockServer(t)
	state.SetShippingRules(1,
		schema.ShippingRule{ID: 1, Cost: 1, Location: schema.Location{ID: 10, Name: "Sweden"}},
		schema.ShippingRule{ID: 2, Cost: 2, Location: schema.Location{ID: 11, Name: "Norway"}},
	)
	state.SetShippingRules(3, schema.ShippingRule{ID: 3, Cost: 3, Location: schema.Location{ID: 10, Name: "Sweden"}})
	project := schema.Project{ID: 1, Rewards: []schema.Reward{
		{ID: 1, ShippingPreference: schema.ShippingRestricted},
		{ID: 3, ShippingPreference: schema.ShippingLocal},
	}}
	data, err := json.Marshal(project)
	require.NoError(t, err)

	out, err := run(t, bytes.NewReader(data), "shipping", "-", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Equal(t, "10\tSweden\t3.00\n11\tNorway\t2.00\n", out)
}

func TestTrackRetriesUntilDelivered(t *testing.T) {
	state, url := newMockServer(t)
	state.ScriptTrack(503, 200)

	out, err := run(t, nil, "track", "Page Viewed", "context_page=rewards", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Contains(t, out, "page_viewed delivered")
	require.Contains(t, out, "after 2 attempts")
	require.Len(t, state.Tracked(), 2)
}

func TestTrackGoneIsPermanent(t *testing.T) {
	state, url := newMockServer(t)
	state.ScriptTrack(410)

	_, err := run(t, nil, "track", "Page Viewed", "-c", writeConfig(t, url))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failure after 1 attempts")
	require.Len(t, state.Tracked(), 1)
}

func projectJSON(t *testing.T, project schema.Project) io.Reader {
	t.Helper()
	data, err := json.Marshal(project)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestRewardsMarksBackedReward(t *testing.T) {
	_, url := newMockServer(t)
	project := schema.Project{
		ID:        5,
		IsBacking: true,
		Backing:   &schema.Backing{RewardID: 2},
		Rewards: []schema.Reward{
			{ID: 1, Title: "Sticker", Minimum: 5},
			{ID: 2, Title: "Book", Minimum: 25},
		},
	}

	out, err := run(t, projectJSON(t, project), "rewards", "-", "--select", "1", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Contains(t, out, "2 rewards\n")
	require.Contains(t, out, "  1\tSticker\t5.00\n")
	require.Contains(t, out, "* 2\tBook\t25.00\n")
	require.Contains(t, out, "pledge update_reward (change_reward) for reward 1")
	require.Contains(t, out, "third-party events disabled")
}

func TestRewardsSendsAddToCartWithConsent(t *testing.T) {
	state, url := newMockServer(t)
	cfgPath := writeConfig(t, url, func(cfg *appconfig.Config) {
		cfg.FeatureFlags = map[string]bool{
			appconfig.FlagConsentManagement: true,
			appconfig.FlagCAPIIntegration:   true,
		}
	})
	out, err := run(t, nil, "consent", "on", "-c", cfgPath)
	require.NoError(t, err)
	require.Equal(t, "consent on, third-party events enabled\n", out)

	project := schema.Project{
		ID:                   5,
		SendThirdPartyEvents: true,
		Rewards:              []schema.Reward{{ID: 1, Title: "Sticker", Minimum: 5}},
	}
	out, err = run(t, projectJSON(t, project), "rewards", "-", "--select", "1", "-c", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "pledge pledge (new_pledge) for reward 1")
	require.Contains(t, out, "third-party event sent: success=true")

	events := state.Events()
	require.Len(t, events, 1)
	require.Equal(t, schema.ThirdPartyEventAddToCart, events[0].EventName)
	require.Equal(t, schema.EncodeRelayID("Project", 5), events[0].ProjectID)
}

func TestReportUsesDefaultEmail(t *testing.T) {
	_, url := newMockServer(t)
	project := schema.Project{ID: 5, APIURL: "https://api.example.com/v1/projects/5"}

	out, err := run(t, projectJSON(t, project), "report", "-", "-c", writeConfig(t, url))
	require.NoError(t, err)
	require.Equal(t, "email@email.com\thttps://api.example.com/v1/projects/5\n", out)
}

func TestLogoutForgetsSession(t *testing.T) {
	state, url := newMockServer(t)
	user := schema.User{ID: 3, Email: "backer@example.com"}
	require.NoError(t, state.AddUser(testToken, user, "secret1"))
	cfgPath := writeConfig(t, url)

	_, err := run(t, nil, "cards", "list", "-c", cfgPath)
	require.NoError(t, err)
	out, err := run(t, nil, "logout", "-c", cfgPath)
	require.NoError(t, err)
	require.Equal(t, "logged out\n", out)
	out, err = run(t, nil, "logout", "-c", cfgPath)
	require.NoError(t, err)
	require.Equal(t, "not logged in\n", out)
}
