package eventlogger

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the front end and the bills API.
const (
	UserLoggedIn     = "user.logged_in"
	UserLoggedOut    = "user.logged_out"
	UserRegistered   = "user.registered"
	BillCreated      = "bill.created"
	BillUpdated      = "bill.updated"
	BillsExported    = "bills.exported"
	ReceiptRejected  = "receipt.rejected"
	BillCreateFailed = "bill.create_failed"
	HealthRequested  = "health_request"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByType(ctx context.Context, eventType string) ([]Event, error)
}

// Sink accepts events without blocking the caller. *Worker is the
// production Sink.
type Sink interface {
	Log(event Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(Event) {}

// Recorder keeps logged events in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
