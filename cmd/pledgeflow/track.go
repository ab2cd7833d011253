package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow"
	"pkt.systems/pledgeflow/internal/tracking"
)

func newTrackCmd(cfgPath *string) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "track <event> [key=value...]",
		Short: "Queue an analytics event and wait for delivery",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseProps(args[1:])
			if err != nil {
				return err
			}
			app, _, err := openApp(cmd, *cfgPath, pledgeflow.WithTracking())
			if err != nil {
				return err
			}
			done, sub := first(app.TrackingOutcomes())
			defer sub.Dispose()

			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = app.Stop(stopCtx)
			}()

			job, err := app.Tracker().Track(cmd.Context(), args[0], props)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			select {
			case outcome := <-done:
				if outcome.Result != tracking.ResultSuccess {
					return fmt.Errorf("%s %s after %d attempts: %v", job.EventName, outcome.Result, outcome.Attempts, outcome.Err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s delivered as %s after %d attempts\n", job.EventName, job.Name, outcome.Attempts)
				return err
			case <-ctx.Done():
				return waitErr(ctx, "track")
			}
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "how long to wait for delivery")
	return cmd
}

// parseProps turns key=value pairs into event properties. Integers, floats and
// booleans keep their type.
func parseProps(pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("property %q must be key=value", pair)
		}
		props[key] = parseValue(value)
	}
	return props, nil
}

func parseValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
