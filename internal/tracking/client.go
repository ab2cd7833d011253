// Package tracking queues analytics events and delivers them in the background.
package tracking

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

// JobPrefix starts every job name.
const JobPrefix = "koala-"

// Job is one queued tracking request.
type Job struct {
	Name      string
	EventName string
	Data      string
	Queued    time.Time
}

// Enqueuer accepts jobs for delivery.
type Enqueuer interface {
	Enqueue(job Job) error
}

// DefaultsFunc returns properties merged into every event. Event properties win.
type DefaultsFunc func() map[string]any

// Client encodes events and hands them to a queue.
type Client struct {
	queue    Enqueuer
	defaults DefaultsFunc
	log      pslog.Logger
}

// NewClient returns a Client delivering through queue.
func NewClient(queue Enqueuer, defaults DefaultsFunc, logger pslog.Logger) *Client {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Client{queue: queue, defaults: defaults, log: logger}
}

// Track encodes eventName with props and enqueues it.
func (c *Client) Track(ctx context.Context, eventName string, props map[string]any) (Job, error) {
	name, err := schema.NormalizeEventName(eventName)
	if err != nil {
		return Job{}, err
	}
	merged := map[string]any{}
	if c.defaults != nil {
		for k, v := range c.defaults() {
			merged[k] = v
		}
	}
	for k, v := range props {
		merged[k] = v
	}
	data, err := Encode(name, merged)
	if err != nil {
		c.log.Warn("tracking encode failed", "event", name, "err", err)
		return Job{}, err
	}
	job := Job{
		Name:      JobPrefix + uuid.NewString(),
		EventName: name,
		Data:      data,
		Queued:    time.Now(),
	}
	if c.queue == nil {
		return Job{}, fmt.Errorf("%w: tracking queue", schema.ErrMissingDependency)
	}
	if err := c.queue.Enqueue(job); err != nil {
		c.log.Warn("tracking enqueue failed", "event", name, "err", err)
		return Job{}, err
	}
	pslog.Ctx(ctx).Trace("tracking event queued", "event", name, "job", job.Name)
	return job, nil
}

type wireEvent struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// Encode renders [{"event": name, "properties": {...}}] with nil-valued
// properties dropped, base64 URL-safe encoded.
func Encode(eventName string, props map[string]any) (string, error) {
	raw, err := json.Marshal([]wireEvent{{Event: eventName, Properties: Compact(props)}})
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode.
func Decode(data string) (string, map[string]any, error) {
	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return "", nil, err
	}
	var events []wireEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return "", nil, err
	}
	if len(events) != 1 {
		return "", nil, fmt.Errorf("expected one event, got %d", len(events))
	}
	return events[0].Event, events[0].Properties, nil
}

// Compact copies props without nil values.
func Compact(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
