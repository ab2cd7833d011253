// Package viewmodel binds screen inputs to screen outputs through rx pipelines.
//
// Every view-model owns a Lifecycle. Inputs are posted to the screen's loop,
// pipelines run on it, and outputs are published from it, so observers see
// outputs in the order the pipeline produced them.
package viewmodel

import (
	"context"

	"pkt.systems/pledgeflow/internal/currentuser"
	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/internal/featureflag"
	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/internal/prefs"
	"pkt.systems/pslog"
)

// SignalSink receives every output a screen publishes.
type SignalSink interface {
	OnSignal(signal eventbus.Signal)
}

// Environment bundles the dependencies shared by all screens.
type Environment struct {
	API         graphql.Client
	CurrentUser *currentuser.CurrentUser
	Prefs       *prefs.Store
	Flags       featureflag.Client
	Signals     SignalSink
	Logger      pslog.Logger
}

func (e Environment) logger() pslog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return pslog.Ctx(context.Background())
}
