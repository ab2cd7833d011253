package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow"
	"pkt.systems/pledgeflow/internal/appconfig"
	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

const screenTimeoutSlack = 5 * time.Second

// openApp loads the config and builds an App bound to the command's logger.
func openApp(cmd *cobra.Command, cfgPath string, opts ...pledgeflow.AppOption) (*pledgeflow.App, appconfig.Config, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	app, err := pledgeflow.New(cfg, pledgeflow.AppDeps{Logger: pslog.Ctx(cmd.Context())}, opts...)
	if err != nil {
		return nil, appconfig.Config{}, err
	}
	return app, cfg, nil
}

// ensureSession logs in with the configured token when no session is stored.
func ensureSession(app *pledgeflow.App, cfg appconfig.Config, email string) error {
	if app.CurrentUser().Exists() {
		return nil
	}
	token := strings.TrimSpace(cfg.API.AccessToken)
	if token == "" {
		return fmt.Errorf("%w: set api.access_token", schema.ErrNotLoggedIn)
	}
	app.CurrentUser().Login(schema.User{Email: strings.TrimSpace(email)}, token)
	return nil
}

// screenContext bounds one interactive flow by the API timeout.
func screenContext(ctx context.Context, cfg appconfig.Config) (context.Context, context.CancelFunc) {
	timeout := cfg.APITimeout()
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout+screenTimeoutSlack)
}

// first delivers the first value src emits.
func first[T any](src rx.Observable[T]) (<-chan T, rx.Disposable) {
	ch := make(chan T, 1)
	sub := src.Subscribe(func(v T) {
		select {
		case ch <- v:
		default:
		}
	})
	return ch, sub
}

// firstMatching delivers the first value src emits that satisfies keep.
func firstMatching[T any](src rx.Observable[T], keep func(T) bool) (<-chan T, rx.Disposable) {
	return first(rx.Filter(src, keep))
}

// traceSignals logs every signal published for screen until ctx ends.
func traceSignals(ctx context.Context, bus *eventbus.Bus, screen string) {
	ch, unsubscribe := bus.Subscribe(screen)
	logger := pslog.Ctx(ctx).With("screen", screen)
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case signal, ok := <-ch:
				if !ok {
					return
				}
				logger.Trace("screen signal", "type", string(signal.Type), "name", signal.Name, "value", signal.Value)
			}
		}
	}()
}

func waitErr(ctx context.Context, what string) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: timed out", what)
	}
	return err
}
