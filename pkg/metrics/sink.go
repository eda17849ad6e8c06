package metrics

import "github.com/satcom-control/satcom-go/pkg/satellite"

// Sink receives controller metrics events. Implementations must be
// thread-safe and non-blocking; Publish-style calls must not panic.
type Sink interface {
	// EnableOutcome records the completion of an enable request.
	EnableOutcome(result satellite.Result)

	// DisableOutcome records the completion of a disable request.
	DisableOutcome(result satellite.Result)

	// SessionStarted records the start of a satellite session.
	SessionStarted()

	// SessionEnded records the end of a satellite session. Sinks derive
	// the session duration from the matching SessionStarted call.
	SessionEnded()

	// ProvisionOutcome records the completion of a provisioning attempt.
	ProvisionOutcome(result satellite.Result)

	// DeprovisionOutcome records the completion of a deprovisioning
	// attempt.
	DeprovisionOutcome(result satellite.Result)

	// CarrierAttachOutcome records the completion of a scoped carrier
	// attach command.
	CarrierAttachOutcome(result satellite.Result)

	// DatagramOutcome records the completion of an outgoing datagram.
	DatagramOutcome(result satellite.Result)
}

// Noop discards all events. Use when metrics are disabled.
// Noop is safe for concurrent use and usable as a zero value.
type Noop struct{}

func (Noop) EnableOutcome(satellite.Result)        {}
func (Noop) DisableOutcome(satellite.Result)       {}
func (Noop) SessionStarted()                       {}
func (Noop) SessionEnded()                         {}
func (Noop) ProvisionOutcome(satellite.Result)     {}
func (Noop) DeprovisionOutcome(satellite.Result)   {}
func (Noop) CarrierAttachOutcome(satellite.Result) {}
func (Noop) DatagramOutcome(satellite.Result)      {}

// Compile-time interface satisfaction check.
var _ Sink = Noop{}
