package controller

import (
	"sync"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// stateCache is the capability cache: the latest known values of the
// tri-state modem facts plus the enabled/demo session state. The worker
// is the only writer; entry-point prechecks and external readers take
// the lock for short snapshot reads only.
type stateCache struct {
	mu sync.Mutex

	supported    *bool
	provisioned  *bool
	capabilities *satellite.Capabilities
	enabled      *bool
	demoMode     bool
	modemState   satellite.ModemState
	lastPointing *satellite.PointingInfo
}

func newStateCache() *stateCache {
	return &stateCache{modemState: satellite.ModemStateOff}
}

// resetFacts clears every queried fact together. Called when the active
// endpoint changes so no field survives a vendor-service swap.
func (c *stateCache) resetFacts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supported = nil
	c.provisioned = nil
	c.capabilities = nil
	c.enabled = nil
	c.demoMode = false
	c.lastPointing = nil
}

func (c *stateCache) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		DemoMode:   c.demoMode,
		ModemState: c.modemState,
	}
	if c.supported != nil {
		v := *c.supported
		snap.Supported = &v
	}
	if c.provisioned != nil {
		v := *c.provisioned
		snap.Provisioned = &v
	}
	if c.capabilities != nil {
		v := *c.capabilities
		snap.Capabilities = &v
	}
	if c.enabled != nil {
		v := *c.enabled
		snap.Enabled = &v
	}
	if c.lastPointing != nil {
		v := *c.lastPointing
		snap.LastPointing = &v
	}
	return snap
}

func (c *stateCache) setSupported(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supported = &v
}

func (c *stateCache) setProvisioned(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provisioned = &v
}

func (c *stateCache) setCapabilities(caps satellite.Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capabilities = &caps
}

func (c *stateCache) setEnabled(enabled, demo bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = &enabled
	c.demoMode = demo
}

// setEnabledFact records a queried enabled value without touching the
// demo flag.
func (c *stateCache) setEnabledFact(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = &enabled
}

func (c *stateCache) setModemState(state satellite.ModemState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modemState = state
}

func (c *stateCache) setLastPointing(info satellite.PointingInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPointing = &info
}

// pointingRequired reports whether cached capabilities require pointing.
// False when capabilities are unknown.
func (c *stateCache) pointingRequired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capabilities != nil && c.capabilities.PointingRequired
}
