package logx

import (
	"context"

	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	userKey contextKey = iota
	screenKey
)

// WithUser annotates the logger with the user id if present.
func WithUser(ctx context.Context, userID schema.UserID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if userID != 0 {
		if current, ok := ctx.Value(userKey).(schema.UserID); ok && current == userID {
			return log
		}
		log = log.With("user", int64(userID))
	}
	return log
}

// WithUserScreen annotates the logger with user and screen identifiers.
func WithUserScreen(ctx context.Context, userID schema.UserID, screen string) pslog.Logger {
	log := WithUser(ctx, userID)
	if screen != "" {
		if current, ok := ctx.Value(screenKey).(string); ok && current == screen {
			return log
		}
		log = log.With("screen", screen)
	}
	return log
}

// WithScreen annotates log with a screen name.
func WithScreen(log pslog.Logger, screen string) pslog.Logger {
	if screen != "" {
		log = log.With("screen", screen)
	}
	return log
}

// WithProject annotates the logger with project metadata when available.
func WithProject(log pslog.Logger, project schema.Project) pslog.Logger {
	if project.ID != 0 {
		log = log.With("project", int64(project.ID))
	}
	if project.Slug != "" {
		log = log.With("project_slug", project.Slug)
	}
	return log
}

// ContextWithUser stores the user marker on the context for log de-duplication.
func ContextWithUser(ctx context.Context, userID schema.UserID) context.Context {
	if ctx == nil || userID == 0 {
		return ctx
	}
	return context.WithValue(ctx, userKey, userID)
}

// ContextWithScreen stores the screen marker on the context for log de-duplication.
func ContextWithScreen(ctx context.Context, screen string) context.Context {
	if ctx == nil || screen == "" {
		return ctx
	}
	return context.WithValue(ctx, screenKey, screen)
}

// ContextWithUserScreenLogger attaches the logger and user/screen markers to the context.
func ContextWithUserScreenLogger(ctx context.Context, log pslog.Logger, userID schema.UserID, screen string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithScreen(ContextWithUser(ctx, userID), screen)
}

// ScreenFromContext returns the screen marker, if any.
func ScreenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	screen, _ := ctx.Value(screenKey).(string)
	return screen
}
