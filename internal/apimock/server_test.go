package apimock

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/schema"
)

type token string

func (t token) AccessToken() string { return string(t) }

func newClient(t *testing.T, tok string) (*State, *graphql.HTTPClient, string) {
	t.Helper()
	state := NewState()
	srv := httptest.NewServer(NewServer(state, nil).Handler())
	t.Cleanup(srv.Close)
	client, err := graphql.NewHTTPClient(graphql.Options{
		Endpoint: srv.URL + "/graphql",
		ClientID: "test",
		Tokens:   token(tok),
	})
	require.NoError(t, err)
	return state, client, srv.URL
}

func TestCardsLifecycle(t *testing.T) {
	state, client, _ := newClient(t, "tok")
	require.NoError(t, state.AddUser("tok", schema.User{ID: 1, Email: "a@example.com"}, "secret1"))
	state.SetCards(1, schema.StoredCard{ID: "card-1", LastFourDigits: "1111"}, schema.StoredCard{ID: "card-2", LastFourDigits: "2222"})
	ctx := context.Background()

	cards, err := client.StoredCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	res, err := client.DeletePaymentSource(ctx, "card-1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClientMutationID)
	assert.Len(t, state.Cards(1), 1)

	_, err = client.DeletePaymentSource(ctx, "card-1")
	require.Error(t, err)
	assert.Equal(t, "Payment source not found", graphql.DisplayMessage(err))

	intent, err := client.CreateSetupIntent(ctx)
	require.NoError(t, err)
	card, err := client.SavePaymentMethod(ctx, schema.SavePaymentMethodRequest{Reusable: true, IntentClientSecret: intent.ClientSecret})
	require.NoError(t, err)
	assert.Equal(t, "4242", card.LastFourDigits)
	assert.Len(t, state.Cards(1), 2)

	_, err = client.SavePaymentMethod(ctx, schema.SavePaymentMethodRequest{Reusable: true, IntentClientSecret: intent.ClientSecret})
	assert.Error(t, err, "setup intents are single use")
}

func TestLoggedOutIsUnauthorized(t *testing.T) {
	_, client, _ := newClient(t, "")
	_, err := client.StoredCards(context.Background())
	var apiErr *graphql.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, graphql.ErrorClient, apiErr.Kind)
}

func TestUpdatePassword(t *testing.T) {
	state, client, _ := newClient(t, "tok")
	require.NoError(t, state.AddUser("tok", schema.User{ID: 2, Email: "b@example.com"}, ""))
	user, _ := state.User("tok")
	assert.True(t, user.NeedsPassword)

	_, err := client.UpdateUserPassword(context.Background(), schema.UpdatePasswordRequest{Password: "abc", PasswordConfirmation: "abc"})
	require.Error(t, err)
	assert.Contains(t, graphql.DisplayMessage(err), "too short")

	res, err := client.UpdateUserPassword(context.Background(), schema.UpdatePasswordRequest{Password: "secret1", PasswordConfirmation: "secret1"})
	require.NoError(t, err)
	assert.True(t, res.User.HasPassword)
	assert.False(t, res.User.NeedsPassword)
	assert.True(t, state.CheckPassword("tok", "secret1"))
	assert.False(t, state.CheckPassword("tok", "secret2"))
}

func TestScriptedFailure(t *testing.T) {
	state, client, _ := newClient(t, "tok")
	require.NoError(t, state.AddUser("tok", schema.User{ID: 3}, "secret1"))
	state.FailNext(graphql.OpStoredCards, http.StatusServiceUnavailable, "maintenance")
	state.FailNext(graphql.OpStoredCards, http.StatusOK, "field error")

	_, err := client.StoredCards(context.Background())
	var apiErr *graphql.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, graphql.ErrorServer, apiErr.Kind)
	assert.Equal(t, "maintenance", graphql.DisplayMessage(err))

	_, err = client.StoredCards(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, graphql.ErrorGraphQL, apiErr.Kind)

	_, err = client.StoredCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, state.Calls(graphql.OpStoredCards))
}

func TestShippingRulesAndEvents(t *testing.T) {
	state, client, _ := newClient(t, "")
	state.SetShippingRules(5, schema.ShippingRule{ID: 1, Location: schema.Location{ID: 10}})
	rules, err := client.ShippingRules(context.Background(), schema.Reward{ID: 5})
	require.NoError(t, err)
	require.Len(t, rules, 1)

	res, err := client.TriggerThirdPartyEvent(context.Background(), schema.TriggerThirdPartyEventInput{EventName: schema.ThirdPartyEventPurchase, ProjectID: "p"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, state.Events(), 1)
	assert.Equal(t, schema.ThirdPartyEventPurchase, state.Events()[0].EventName)
}

func TestTrackEndpointScript(t *testing.T) {
	state, _, base := newClient(t, "")
	state.ScriptTrack(http.StatusServiceUnavailable, http.StatusGone)
	want := []int{http.StatusServiceUnavailable, http.StatusGone, http.StatusOK}
	for _, code := range want {
		resp, err := http.Post(base+"/track", "application/json", bytes.NewBufferString(`[]`))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, code, resp.StatusCode)
	}
	assert.Len(t, state.Tracked(), 3)
}

func TestHealth(t *testing.T) {
	_, _, base := newClient(t, "")
	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
