// Package notify delivers workflow events to the people involved in a defense.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gradschool/internal/models"
)

// Event is one workflow notification addressed to a single audience
type Event struct {
	ID         uuid.UUID
	Type       models.EventType
	Audience   string // student, adviser, coordinator, aa
	To         []string
	Request    models.DefenseRequest
	AAStatus   models.AAStatus
	Honoraria  []models.HonorariumPayment
	Reason     string
	OccurredAt time.Time
}

// NewEvent creates an event with a fresh id
func NewEvent(eventType models.EventType, audience string, req models.DefenseRequest) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Audience:   audience,
		Request:    req,
		OccurredAt: time.Now(),
	}
}

// Total sums the honoraria attached to the event
func (e Event) Total() models.Centavos {
	var total models.Centavos
	for _, h := range e.Honoraria {
		total += h.Amount
	}
	return total
}

// Dispatcher delivers events. Dispatch is called after the transition is committed,
// so failures are reported but never undo the transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// LogDispatcher logs events instead of sending them
type LogDispatcher struct {
	Logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher that writes events to the default logger
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{Logger: slog.Default()}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, event Event) error {
	d.Logger.InfoContext(ctx, "Notification",
		"event_id", event.ID.String(),
		"event", string(event.Type),
		"audience", event.Audience,
		"to", event.To,
		"defense_request_id", event.Request.ID,
	)
	return nil
}

// Recorder keeps dispatched events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Dispatch(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of one type
func (r *Recorder) OfType(t models.EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
