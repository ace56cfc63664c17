package events

import (
	"context"
	"slices"
	"sync"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.events)
}

// OfType returns the recorded events of type t in publish order.
func (r *Recorder) OfType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}

	return out
}

// Fanout publishes every event to each publisher in order.
type Fanout []Publisher

type Publisher interface {
	Publish(ctx context.Context, event domain.Event)
}

func (f Fanout) Publish(ctx context.Context, event domain.Event) {
	for _, p := range f {
		p.Publish(ctx, event)
	}
}
