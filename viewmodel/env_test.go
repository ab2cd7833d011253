package viewmodel

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pkt.systems/pledgeflow/internal/apimock"
	"pkt.systems/pledgeflow/internal/currentuser"
	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/internal/prefs"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
)

const (
	testToken = "tok-test"
	waitFor   = 2 * time.Second
)

type fixture struct {
	state *apimock.State
	env   Environment
	user  *currentuser.CurrentUser
	bus   *eventbus.Bus
}

// newFixture serves an in-memory API and logs user in with testToken.
func newFixture(t *testing.T, user schema.User, password string) *fixture {
	t.Helper()
	state := apimock.NewState()
	require.NoError(t, state.AddUser(testToken, user, password))
	srv := httptest.NewServer(apimock.NewServer(state, nil).Handler())
	t.Cleanup(srv.Close)

	store := prefs.NewMemory()
	current := currentuser.New(store, nil)
	stored, _ := state.User(testToken)
	current.Login(stored, testToken)

	client, err := graphql.NewHTTPClient(graphql.Options{
		Endpoint: srv.URL + "/graphql",
		ClientID: "test-client",
		Tokens:   current,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	bus := eventbus.New(nil)
	return &fixture{
		state: state,
		user:  current,
		bus:   bus,
		env: Environment{
			API:         client,
			CurrentUser: current,
			Prefs:       store,
			Signals:     bus,
		},
	}
}

type screen interface {
	Create(ctx context.Context) error
	Destroy()
}

func create(t *testing.T, s screen) {
	t.Helper()
	require.NoError(t, s.Create(context.Background()))
	t.Cleanup(s.Destroy)
}

func record[T any](t *testing.T, src rx.Observable[T]) *rx.Recorder[T] {
	t.Helper()
	rec, sub := rx.Record(src)
	t.Cleanup(sub.Dispose)
	return rec
}
