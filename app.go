// Package pledgeflow wires configuration, storage, the API client and the
// background tracking queue into the environment every screen runs in.
package pledgeflow

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"pkt.systems/pledgeflow/internal/apimock"
	"pkt.systems/pledgeflow/internal/appconfig"
	"pkt.systems/pledgeflow/internal/currentuser"
	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/internal/featureflag"
	"pkt.systems/pledgeflow/internal/graphql"
	"pkt.systems/pledgeflow/internal/prefs"
	"pkt.systems/pledgeflow/internal/tracking"
	"pkt.systems/pledgeflow/internal/version"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pledgeflow/usecase"
	"pkt.systems/pledgeflow/viewmodel"
	"pkt.systems/pslog"
)

// AppDeps overrides collaborators New would otherwise build from config.
type AppDeps struct {
	Logger    pslog.Logger
	API       graphql.Client
	Transport http.RoundTripper
	Signals   viewmodel.SignalSink
}

// AppOption toggles optional components.
type AppOption func(*appOptions)

type appOptions struct {
	enableTracking bool
	enableMock     bool
}

// WithTracking starts the background tracking queue.
func WithTracking() AppOption {
	return func(o *appOptions) { o.enableTracking = true }
}

// WithMockAPI serves the in-memory API on the configured mock address.
func WithMockAPI() AppOption {
	return func(o *appOptions) { o.enableMock = true }
}

// App is a configured client runtime.
type App struct {
	cfg     appconfig.Config
	options appOptions
	log     pslog.Logger

	prefs   *prefs.Store
	user    *currentuser.CurrentUser
	flags   *featureflag.Static
	bus     *eventbus.Bus
	signals viewmodel.SignalSink
	api     graphql.Client
	queue   *tracking.Queue
	tracker *tracking.Client
	mock    *apimock.Server

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

// New builds an App from cfg.
func New(cfg appconfig.Config, deps AppDeps, opts ...AppOption) (*App, error) {
	options := appOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	store, err := prefs.Open(cfg.StateDir, logger)
	if err != nil {
		return nil, err
	}
	app := &App{
		cfg:     cfg,
		options: options,
		log:     logger,
		prefs:   store,
		user:    currentuser.New(store, logger),
		flags:   featureflag.FromConfig(cfg),
		bus:     eventbus.New(logger),
	}
	if deps.Signals != nil {
		app.signals = signalFanout{sinks: []viewmodel.SignalSink{app.bus, deps.Signals}}
	} else {
		app.signals = app.bus
	}

	app.api = deps.API
	if app.api == nil {
		client, err := graphql.NewHTTPClient(graphql.Options{
			Endpoint:  cfg.API.Endpoint,
			ClientID:  cfg.API.ClientID,
			AppUUID:   store.DeviceID(),
			UserAgent: version.UserAgent(),
			Tokens:    tokenChain{user: app.user, fallback: strings.TrimSpace(cfg.API.AccessToken)},
			Timeout:   cfg.APITimeout(),
			Transport: deps.Transport,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		app.api = client
	}

	if options.enableTracking {
		queue, err := tracking.NewQueue(tracking.QueueConfig{
			Endpoint:       cfg.Tracking.Endpoint,
			Workers:        cfg.Tracking.Workers,
			Depth:          cfg.Tracking.QueueDepth,
			MaxAttempts:    cfg.Tracking.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Tracking.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Tracking.MaxBackoffMS) * time.Millisecond,
			HTTP:           trackingHTTP(deps.Transport),
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		app.queue = queue
		app.tracker = tracking.NewClient(queue, app.trackingDefaults, logger)
	}

	if options.enableMock {
		state, err := seedMockState(cfg.Mock)
		if err != nil {
			return nil, err
		}
		app.mock = apimock.NewServer(state, logger)
	}
	return app, nil
}

// seedMockState registers the configured account, when one is configured.
func seedMockState(cfg appconfig.MockConfig) (*apimock.State, error) {
	state := apimock.NewState()
	token := strings.TrimSpace(cfg.SeedToken)
	if token == "" {
		return state, nil
	}
	user := schema.User{ID: 1, Name: "Backer", Email: strings.TrimSpace(cfg.SeedEmail)}
	if err := state.AddUser(token, user, cfg.SeedPassword); err != nil {
		return nil, err
	}
	state.SetCards(user.ID, schema.StoredCard{
		ID:             "card-demo",
		LastFourDigits: "4242",
		ExpirationDate: "2030-12-01",
		Type:           "visa",
	})
	return state, nil
}

func trackingHTTP(transport http.RoundTripper) *http.Client {
	if transport == nil {
		return nil
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}
}

func (a *App) trackingDefaults() map[string]any {
	props := map[string]any{
		"client_type":      "cli",
		"client_version":   version.Current(),
		"device_id":        a.prefs.DeviceID(),
		"user_logged_in":   a.user.Exists(),
		"consent_provided": a.prefs.GetBool(prefs.KeyConsentManagement, false),
	}
	if user, ok := a.user.User(); ok {
		props["user_uid"] = int64(user.ID)
	}
	return props
}

// Environment returns the dependencies handed to every screen.
func (a *App) Environment() viewmodel.Environment {
	return viewmodel.Environment{
		API:         a.api,
		CurrentUser: a.user,
		Prefs:       a.prefs,
		Flags:       a.flags,
		Signals:     a.signals,
		Logger:      a.log,
	}
}

// Bus returns the per-screen signal bus.
func (a *App) Bus() *eventbus.Bus { return a.bus }

// CurrentUser returns the session.
func (a *App) CurrentUser() *currentuser.CurrentUser { return a.user }

// Prefs returns the preference store.
func (a *App) Prefs() *prefs.Store { return a.prefs }

// Tracker returns the tracking client, or nil without WithTracking.
func (a *App) Tracker() *tracking.Client { return a.tracker }

// TrackingOutcomes emits finished tracking jobs, or nothing without WithTracking.
func (a *App) TrackingOutcomes() rx.Observable[tracking.JobOutcome] {
	if a.queue == nil {
		return nil
	}
	return a.queue.Outcomes()
}

// ShippingRules builds the shipping rules flow for project.
func (a *App) ShippingRules(project schema.Project) *usecase.GetShippingRules {
	return usecase.NewGetShippingRules(a.api, project, a.log)
}

// ThirdPartyEvents builds the third-party analytics flow.
func (a *App) ThirdPartyEvents() *usecase.SendThirdPartyEvent {
	return usecase.NewSendThirdPartyEvent(a.prefs, a.flags, a.log)
}

// Start launches the enabled background components.
func (a *App) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		pslog.Ctx(ctx).Warn("app start rejected", "reason", "already started")
		return errors.New("app already started")
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.errCh = make(chan error, 1)
	a.started = true
	a.mu.Unlock()

	a.log.Info(
		"app start",
		"api", a.cfg.API.Endpoint,
		"tracking", a.options.enableTracking,
		"mock", a.options.enableMock,
		"mock_addr", a.cfg.Mock.Addr,
	)
	if a.queue != nil {
		a.queue.Start(a.ctx)
	}
	if a.mock != nil {
		go func() {
			if err := apimock.ListenAndServe(a.ctx, a.cfg.Mock.Addr, a.mock.Handler()); err != nil {
				a.log.Error("mock api failed", "err", err)
				a.errCh <- err
			}
		}()
	}
	return nil
}

// Wait blocks until the app is stopped or a component fails.
func (a *App) Wait() error {
	a.mu.Lock()
	ctx := a.ctx
	errCh := a.errCh
	started := a.started
	a.mu.Unlock()
	if !started {
		return errors.New("app not started")
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			_ = a.Stop(context.Background())
			return err
		}
		return nil
	}
}

// Stop drains the tracking queue and cancels background work.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	started := a.started
	a.mu.Unlock()
	if !started {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a.log.Info("app stop requested")
	var err error
	if a.queue != nil {
		if err = a.queue.Stop(ctx); err != nil {
			a.log.Warn("tracking queue stop failed", "err", err)
		} else {
			a.log.Info("tracking queue drained")
		}
	}
	if cancel != nil {
		cancel()
	}
	a.log.Info("app stopped")
	return err
}

// tokenChain prefers the session token and falls back to the configured one.
type tokenChain struct {
	user     *currentuser.CurrentUser
	fallback string
}

func (t tokenChain) AccessToken() string {
	if t.user != nil {
		if token := t.user.AccessToken(); token != "" {
			return token
		}
	}
	return t.fallback
}
