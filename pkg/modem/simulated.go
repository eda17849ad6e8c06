package modem

import (
	"sync"
	"time"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// SimConfig configures the simulated modem endpoint.
type SimConfig struct {
	// Supported is the answer to RequestIsSupported.
	Supported bool

	// Provisioned is the initial provisioning state.
	Provisioned bool

	// Capabilities is the reported capability set.
	Capabilities satellite.Capabilities

	// CommunicationAllowed is the answer to RequestCommunicationAllowed.
	CommunicationAllowed bool

	// NextVisibility is the answer to RequestTimeForNextVisibility.
	NextVisibility time.Duration

	// Latency delays every completion and event, imitating the real
	// vendor service. Zero completes on a fresh goroutine immediately.
	Latency time.Duration
}

// Simulated is an in-memory modem endpoint for demo mode and tests. It
// keeps enable/provision state, answers queries from SimConfig and emits
// the events a real vendor service would: a modem-state event after
// enable/disable and a provision-state event after (de)provisioning.
type Simulated struct {
	mu          sync.Mutex
	cfg         SimConfig
	enabled     bool
	demo        bool
	provisioned bool
	tokens      map[string]struct{}
	inbox       []satellite.Datagram

	listeners  map[uint64]Listener
	nextListID uint64
}

// NewSimulated creates a simulated endpoint.
func NewSimulated(cfg SimConfig) *Simulated {
	return &Simulated{
		cfg:         cfg,
		provisioned: cfg.Provisioned,
		tokens:      make(map[string]struct{}),
		listeners:   make(map[uint64]Listener),
	}
}

// async runs fn on a fresh goroutine after the configured latency, so
// completions never run on the caller's stack.
func (s *Simulated) async(fn func()) {
	delay := s.cfg.Latency
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		fn()
	}()
}

func (s *Simulated) emit(fn func(Listener)) {
	s.mu.Lock()
	snapshot := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		snapshot = append(snapshot, l)
	}
	s.mu.Unlock()
	for _, l := range snapshot {
		fn(l)
	}
}

func (s *Simulated) RequestIsSupported(done func(satellite.Result, bool)) {
	s.async(func() { done(satellite.ResultSuccess, s.cfg.Supported) })
}

func (s *Simulated) RequestEnable(enable, demo bool, done func(satellite.Result)) {
	s.async(func() {
		s.mu.Lock()
		s.enabled = enable
		s.demo = enable && demo
		s.mu.Unlock()

		done(satellite.ResultSuccess)

		state := satellite.ModemStateOff
		if enable {
			state = satellite.ModemStateIdle
		}
		s.emit(func(l Listener) { l.OnModemStateChanged(state) })
	})
}

func (s *Simulated) RequestIsEnabled(done func(satellite.Result, bool)) {
	s.async(func() {
		s.mu.Lock()
		enabled := s.enabled
		s.mu.Unlock()
		done(satellite.ResultSuccess, enabled)
	})
}

func (s *Simulated) RequestCapabilities(done func(satellite.Result, *satellite.Capabilities)) {
	s.async(func() {
		caps := s.cfg.Capabilities
		done(satellite.ResultSuccess, &caps)
	})
}

func (s *Simulated) RequestIsProvisioned(done func(satellite.Result, bool)) {
	s.async(func() {
		s.mu.Lock()
		provisioned := s.provisioned
		s.mu.Unlock()
		done(satellite.ResultSuccess, provisioned)
	})
}

func (s *Simulated) Provision(token string, _ []byte, done func(satellite.Result)) {
	s.async(func() {
		s.mu.Lock()
		s.tokens[token] = struct{}{}
		s.provisioned = true
		s.mu.Unlock()

		done(satellite.ResultSuccess)
		s.emit(func(l Listener) { l.OnProvisionStateChanged(true) })
	})
}

func (s *Simulated) Deprovision(token string, done func(satellite.Result)) {
	s.async(func() {
		s.mu.Lock()
		delete(s.tokens, token)
		stillProvisioned := len(s.tokens) > 0
		changed := s.provisioned != stillProvisioned
		s.provisioned = stillProvisioned
		s.mu.Unlock()

		done(satellite.ResultSuccess)
		if changed {
			s.emit(func(l Listener) { l.OnProvisionStateChanged(false) })
		}
	})
}

func (s *Simulated) RequestCommunicationAllowed(done func(satellite.Result, bool)) {
	s.async(func() { done(satellite.ResultSuccess, s.cfg.CommunicationAllowed) })
}

func (s *Simulated) RequestTimeForNextVisibility(done func(satellite.Result, time.Duration)) {
	s.async(func() { done(satellite.ResultSuccess, s.cfg.NextVisibility) })
}

func (s *Simulated) SetEnabledForCarrier(_ int64, _ bool, done func(satellite.Result)) {
	s.async(func() { done(satellite.ResultSuccess) })
}

func (s *Simulated) StartTransmissionUpdates(done func(satellite.Result)) {
	s.async(func() {
		done(satellite.ResultSuccess)
		s.emit(func(l Listener) {
			l.OnTransmissionUpdate(satellite.PointingInfo{
				AzimuthDegrees:   184.5,
				ElevationDegrees: 52.0,
				SignalStrength:   0.8,
			})
		})
	})
}

func (s *Simulated) StopTransmissionUpdates(done func(satellite.Result)) {
	s.async(func() { done(satellite.ResultSuccess) })
}

func (s *Simulated) SendDatagram(_ satellite.DatagramType, _ satellite.Datagram, done func(satellite.Result)) {
	s.async(func() {
		s.mu.Lock()
		enabled := s.enabled
		s.mu.Unlock()
		if !enabled {
			done(satellite.ResultInvalidState)
			return
		}
		done(satellite.ResultSuccess)
	})
}

func (s *Simulated) PollPendingDatagrams(done func(satellite.Result)) {
	s.async(func() {
		s.mu.Lock()
		queued := s.inbox
		s.inbox = nil
		s.mu.Unlock()

		for i, dg := range queued {
			pending := len(queued) - i - 1
			s.emit(func(l Listener) { l.OnDatagramReceived(dg, pending) })
		}
		done(satellite.ResultSuccess)
	})
}

func (s *Simulated) Subscribe(listener Listener) func() {
	s.mu.Lock()
	s.nextListID++
	id := s.nextListID
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// QueueIncoming enqueues a datagram on the simulated modem and raises a
// pending-datagram event, as the real modem does when traffic arrives.
func (s *Simulated) QueueIncoming(dg satellite.Datagram) {
	s.mu.Lock()
	s.inbox = append(s.inbox, dg)
	count := len(s.inbox)
	s.mu.Unlock()
	s.async(func() {
		s.emit(func(l Listener) { l.OnPendingDatagrams(count) })
	})
}

// Crash imitates a vendor-service crash: the modem drops to unavailable
// and all session state is lost.
func (s *Simulated) Crash() {
	s.mu.Lock()
	s.enabled = false
	s.demo = false
	s.mu.Unlock()
	s.emit(func(l Listener) { l.OnModemStateChanged(satellite.ModemStateUnavailable) })
}

var _ Endpoint = (*Simulated)(nil)
