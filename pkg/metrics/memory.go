package metrics

import (
	"sync"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// Event is a recorded metrics event.
type Event struct {
	Name   string
	Result satellite.Result
}

// Memory stores events in-memory for tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory creates a new in-memory sink.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) record(name string, result satellite.Result) {
	m.mu.Lock()
	m.events = append(m.events, Event{Name: name, Result: result})
	m.mu.Unlock()
}

func (m *Memory) EnableOutcome(r satellite.Result)        { m.record("enable", r) }
func (m *Memory) DisableOutcome(r satellite.Result)       { m.record("disable", r) }
func (m *Memory) SessionStarted()                         { m.record("session_started", satellite.ResultSuccess) }
func (m *Memory) SessionEnded()                           { m.record("session_ended", satellite.ResultSuccess) }
func (m *Memory) ProvisionOutcome(r satellite.Result)     { m.record("provision", r) }
func (m *Memory) DeprovisionOutcome(r satellite.Result)   { m.record("deprovision", r) }
func (m *Memory) CarrierAttachOutcome(r satellite.Result) { m.record("carrier_attach", r) }
func (m *Memory) DatagramOutcome(r satellite.Result)      { m.record("datagram", r) }

// Events returns a copy of all recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Count returns the number of recorded events with the given name.
func (m *Memory) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

var _ Sink = (*Memory)(nil)
