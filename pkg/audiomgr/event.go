package audiomgr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/haivivi/audiofocus/pkg/focus"
)

// EventKind identifies what happened in the manager.
type EventKind string

const (
	EventRequest EventKind = "request"
	EventAbandon EventKind = "abandon"
	EventChange  EventKind = "change"
	EventLock    EventKind = "lock"
	EventUnlock  EventKind = "unlock"
)

// Event is a record of a manager operation or a delivered focus change.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id" msgpack:"id"`

	// Time is the Unix timestamp in nanoseconds when the event happened.
	Time int64 `json:"ts" msgpack:"ts"`

	Kind   EventKind      `json:"kind" msgpack:"kind"`
	Client string         `json:"client,omitempty" msgpack:"client,omitempty"`
	Gain   focus.GainKind `json:"gain" msgpack:"gain"`

	// Result is set for EventRequest.
	Result focus.Result `json:"result" msgpack:"result"`

	// Change is set for EventChange.
	Change focus.Change `json:"change,omitempty" msgpack:"change,omitempty"`
}

// MarshalJSON implements json.Marshaler. Gain is written only for events
// about a client and Result only for EventRequest, so the zero values of
// those fields never show up as "gain" or "failed".
func (e Event) MarshalJSON() ([]byte, error) {
	type wireEvent struct {
		ID     string          `json:"id"`
		Time   int64           `json:"ts"`
		Kind   EventKind       `json:"kind"`
		Client string          `json:"client,omitempty"`
		Gain   *focus.GainKind `json:"gain,omitempty"`
		Result *focus.Result   `json:"result,omitempty"`
		Change focus.Change    `json:"change,omitempty"`
	}
	w := wireEvent{ID: e.ID, Time: e.Time, Kind: e.Kind, Client: e.Client, Change: e.Change}
	switch e.Kind {
	case EventRequest:
		w.Gain, w.Result = &e.Gain, &e.Result
	case EventAbandon, EventChange:
		w.Gain = &e.Gain
	}
	return json.Marshal(w)
}

// At returns the event time.
func (e Event) At() time.Time {
	return time.Unix(0, e.Time)
}

// Recorder persists events. Record is called on the dispatcher goroutine in
// event order.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ev Event) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
