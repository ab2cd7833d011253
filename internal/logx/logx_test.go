package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithProjectAddsFields(t *testing.T) {
	capture := &logCapture{}
	log := WithProject(newCaptureLogger(capture), schema.Project{ID: 7, Slug: "zine"})
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["project"] != float64(7) {
		t.Fatalf("expected project field, got %+v", entry)
	}
	if entry["project_slug"] != "zine" {
		t.Fatalf("expected project_slug field, got %+v", entry)
	}
}

func TestWithProjectSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	log := WithProject(newCaptureLogger(capture), schema.Project{})
	log.Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["project"]; ok {
		t.Fatalf("did not expect project for empty project")
	}
}

func TestWithUserScreenAddsFields(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	log := WithUserScreen(ctx, 42, "set_password")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["user"] != float64(42) {
		t.Fatalf("expected user field, got %+v", entry)
	}
	if entry["screen"] != "set_password" {
		t.Fatalf("expected screen field, got %+v", entry)
	}
}

func TestContextMarkersSuppressDuplicates(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture).With("user", int64(42))
	ctx := ContextWithUserScreenLogger(context.Background(), logger, 42, "cards")
	if got := ScreenFromContext(ctx); got != "cards" {
		t.Fatalf("unexpected screen marker %q", got)
	}
	WithUserScreen(ctx, 42, "cards").Info("hello")

	data := capture.buf.String()
	if bytes.Count([]byte(data), []byte(`"user"`)) != 1 {
		t.Fatalf("expected a single user field, got %s", data)
	}
	if bytes.Contains([]byte(data), []byte(`"screen"`)) {
		t.Fatalf("did not expect screen field when marker present, got %s", data)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
