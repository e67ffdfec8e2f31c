package agent

import (
	"context"
	"log"

	"github.com/jonathan/book-foundry/internal/types"
)

// EventSink persists observed events outside the core (the core itself
// never persists events). Typically backed by Postgres.
type EventSink interface {
	RecordEvent(ctx context.Context, ev types.Event) error
}

// MonitorAgent observes the event stream on a side channel. It never blocks
// stage progression and never mutates run state; sink failures are logged
// and dropped, never propagated.
type MonitorAgent struct {
	sink   EventSink // optional
	events chan types.Event
	done   chan struct{}
}

// NewMonitorAgent creates a monitor and starts its drain loop. The sink may
// be nil, in which case observations are counted into the log only.
func NewMonitorAgent(sink EventSink) *MonitorAgent {
	m := &MonitorAgent{
		sink:   sink,
		events: make(chan types.Event, 256),
		done:   make(chan struct{}),
	}
	go m.drain()
	return m
}

// Stage returns the stage this agent performs.
func (m *MonitorAgent) Stage() types.Stage { return types.StageMonitor }

// Invoke satisfies the Agent contract. The monitor is observational only:
// it records the transition it was handed and produces no artifact.
func (m *MonitorAgent) Invoke(_ context.Context, state *RunState, in Input) (Output, error) {
	m.Observe(types.Event{
		RunID:  state.RunID,
		Stage:  types.StageMonitor,
		Status: "observed",
	})
	return Output{ArtifactRef: in.ArtifactRef}, nil
}

// Observe enqueues an event for recording. When the buffer is full the
// event is dropped rather than blocking the pipeline.
func (m *MonitorAgent) Observe(ev types.Event) {
	select {
	case m.events <- ev:
	default:
		log.Printf("[monitor] event buffer full, dropping %s/%s", ev.RunID, ev.Stage)
	}
}

// Close stops the drain loop after the queue empties.
func (m *MonitorAgent) Close() {
	close(m.events)
	<-m.done
}

// drain records queued events until Close.
func (m *MonitorAgent) drain() {
	defer close(m.done)
	for ev := range m.events {
		if m.sink == nil {
			continue
		}
		if err := m.sink.RecordEvent(context.Background(), ev); err != nil {
			log.Printf("[monitor] failed to record event %s/%s: %v", ev.RunID, ev.Stage, err)
		}
	}
}
