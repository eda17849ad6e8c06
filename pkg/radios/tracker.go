package radios

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Radio identifies an auxiliary radio on the device.
type Radio uint8

const (
	// RadioBluetooth - short-range Bluetooth radio.
	RadioBluetooth Radio = 0

	// RadioNFC - near-field communication radio.
	RadioNFC Radio = 1

	// RadioWifi - WLAN radio.
	RadioWifi Radio = 2

	// RadioUWB - ultra-wideband radio.
	RadioUWB Radio = 3
)

// String returns the radio name.
func (r Radio) String() string {
	switch r {
	case RadioBluetooth:
		return "BLUETOOTH"
	case RadioNFC:
		return "NFC"
	case RadioWifi:
		return "WIFI"
	case RadioUWB:
		return "UWB"
	default:
		return "UNKNOWN"
	}
}

// UsageSource pushes auxiliary radio on/off transitions, keyed by radio
// identity. Implementations call update for every observed transition
// until ctx is done.
type UsageSource interface {
	Watch(ctx context.Context, update func(radio Radio, on bool)) error
}

type radioState struct {
	dependsOnSatelliteOff bool
	on                    bool
}

// Tracker holds the Radio State Set and raises an edge-triggered
// notification when all dependent radios become off.
type Tracker struct {
	mu       sync.Mutex
	radios   map[Radio]*radioState
	onAllOff func()

	log zerolog.Logger
}

// NewTracker creates an empty tracker. Radios are registered with
// SetDependency; a radio with no recorded dependency never blocks
// settling.
func NewTracker(log zerolog.Logger) *Tracker {
	return &Tracker{
		radios: make(map[Radio]*radioState),
		log:    log,
	}
}

// OnAllOff sets the edge-triggered notification callback. The callback
// runs on the goroutine that delivered the triggering update and must not
// call back into the tracker synchronously with work that blocks.
// Must be called before updates start flowing.
func (t *Tracker) OnAllOff(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAllOff = fn
}

// SetDependency records whether radio must be off for satellite service,
// along with its current on/off state. Re-registering a radio resets its
// recorded state.
func (t *Tracker) SetDependency(radio Radio, dependsOnSatelliteOff, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.radios[radio] = &radioState{dependsOnSatelliteOff: dependsOnSatelliteOff, on: on}
	t.log.Debug().
		Stringer("radio", radio).
		Bool("depends", dependsOnSatelliteOff).
		Bool("on", on).
		Msg("radio dependency registered")
}

// Update records a radio on/off transition. A report that matches the
// recorded state is a no-op and never raises the notification. Updates
// for unregistered radios are ignored.
func (t *Tracker) Update(radio Radio, on bool) {
	t.mu.Lock()
	state, ok := t.radios[radio]
	if !ok || state.on == on {
		t.mu.Unlock()
		return
	}
	wasAllOff := t.allOffLocked()
	state.on = on
	nowAllOff := t.allOffLocked()
	fn := t.onAllOff
	t.mu.Unlock()

	t.log.Debug().Stringer("radio", radio).Bool("on", on).Msg("radio state changed")
	if !wasAllOff && nowAllOff && fn != nil {
		fn()
	}
}

// AllDependenciesOff reports whether every radio with a recorded
// dependency is currently off. True vacuously when nothing depends on
// satellite mode.
func (t *Tracker) AllDependenciesOff() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allOffLocked()
}

func (t *Tracker) allOffLocked() bool {
	for _, state := range t.radios {
		if state.dependsOnSatelliteOff && state.on {
			return false
		}
	}
	return true
}
