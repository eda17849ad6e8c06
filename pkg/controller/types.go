package controller

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/metrics"
	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/persistence"
	"github.com/satcom-control/satcom-go/pkg/pointing"
	"github.com/satcom-control/satcom-go/pkg/radios"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// Controller errors.
var (
	// ErrMissingEndpoint indicates Deps carried no modem endpoint.
	ErrMissingEndpoint = errors.New("modem endpoint is required")

	// ErrMissingStore indicates Deps carried no persistent store.
	ErrMissingStore = errors.New("persistent store is required")
)

// Callback receives the single completion of a mutating request.
type Callback func(result satellite.Result)

// ProvisionStateListener observes provisioning state changes. A listener
// returning an error is silently deregistered.
type ProvisionStateListener interface {
	OnProvisionStateChanged(provisioned bool) error
}

// ModemStateListener observes modem state changes. A listener returning
// an error is silently deregistered.
type ModemStateListener interface {
	OnModemStateChanged(state satellite.ModemState) error
}

// DatagramListener observes inbound datagrams. A listener returning an
// error is silently deregistered.
type DatagramListener interface {
	OnDatagramReceived(datagram satellite.Datagram, pendingCount int) error
}

// Deps holds the controller's collaborators. Endpoint and Store are
// required; the rest default to no-op implementations.
type Deps struct {
	// Endpoint is the modem endpoint (required).
	Endpoint modem.Endpoint

	// Radios tracks dependent terrestrial radios. Nil means no radio
	// dependencies.
	Radios *radios.Tracker

	// Store persists the satellite mode flag and per-subscription attach
	// settings (required).
	Store persistence.Store

	// Metrics receives outcome counters. Nil means metrics.Noop.
	Metrics metrics.Sink

	// Pointing drives the pointing UI. Nil means pointing.Noop.
	Pointing pointing.Launcher

	// Log receives controller logging. Zero value disables.
	Log zerolog.Logger
}

// Config carries controller tunables.
type Config struct {
	// QueueSize is the worker event queue capacity. Defaults to 128.
	QueueSize int
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
}

// Snapshot is a point-in-time copy of the capability cache. Nil pointer
// fields have not been successfully queried since the last endpoint
// reset.
type Snapshot struct {
	Supported    *bool
	Provisioned  *bool
	Capabilities *satellite.Capabilities
	Enabled      *bool
	DemoMode     bool
	ModemState   satellite.ModemState
	LastPointing *satellite.PointingInfo
}
