package controller

import (
	"context"
	"time"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// RequestIsSupported answers whether the modem supports satellite
// service, from the cache when known, otherwise by querying the modem.
func (c *Controller) RequestIsSupported(done func(result satellite.Result, supported bool)) {
	if snap := c.cache.snapshot(); snap.Supported != nil {
		done(satellite.ResultSuccess, *snap.Supported)
		return
	}
	c.endpoint.RequestIsSupported(func(result satellite.Result, supported bool) {
		c.enqueue(evSupportedAck{result: result, supported: supported, done: done})
	})
}

// RequestIsEnabled answers whether a satellite session is active.
func (c *Controller) RequestIsEnabled(done func(result satellite.Result, enabled bool)) {
	if snap := c.cache.snapshot(); snap.Enabled != nil {
		done(satellite.ResultSuccess, *snap.Enabled)
		return
	}
	c.endpoint.RequestIsEnabled(func(result satellite.Result, enabled bool) {
		c.enqueue(evEnabledAck{result: result, enabled: enabled, done: done})
	})
}

// RequestIsProvisioned answers whether the subscription is provisioned
// with a satellite provider.
func (c *Controller) RequestIsProvisioned(done func(result satellite.Result, provisioned bool)) {
	if snap := c.cache.snapshot(); snap.Provisioned != nil {
		done(satellite.ResultSuccess, *snap.Provisioned)
		return
	}
	c.endpoint.RequestIsProvisioned(func(result satellite.Result, provisioned bool) {
		c.enqueue(evProvisionedAck{result: result, provisioned: provisioned, done: done})
	})
}

// RequestCapabilities answers the modem capability set.
func (c *Controller) RequestCapabilities(done func(result satellite.Result, caps *satellite.Capabilities)) {
	if snap := c.cache.snapshot(); snap.Capabilities != nil {
		done(satellite.ResultSuccess, snap.Capabilities)
		return
	}
	c.endpoint.RequestCapabilities(func(result satellite.Result, caps *satellite.Capabilities) {
		c.enqueue(evCapabilitiesAck{result: result, caps: caps, done: done})
	})
}

// RequestCommunicationAllowed asks the modem whether satellite
// communication is allowed at the current location. Not cached; the
// answer changes as the device moves.
func (c *Controller) RequestCommunicationAllowed(done func(result satellite.Result, allowed bool)) {
	c.endpoint.RequestCommunicationAllowed(done)
}

// RequestTimeForNextVisibility asks how long until the next satellite
// pass. Not cached.
func (c *Controller) RequestTimeForNextVisibility(done func(result satellite.Result, visible time.Duration)) {
	c.endpoint.RequestTimeForNextVisibility(done)
}

// IsSupportedSync is the blocking variant of RequestIsSupported. It
// panics when called from the worker goroutine.
func (c *Controller) IsSupportedSync(ctx context.Context) (bool, satellite.Result, error) {
	return c.awaitBool(ctx, c.RequestIsSupported)
}

// IsEnabledSync is the blocking variant of RequestIsEnabled.
func (c *Controller) IsEnabledSync(ctx context.Context) (bool, satellite.Result, error) {
	return c.awaitBool(ctx, c.RequestIsEnabled)
}

// IsProvisionedSync is the blocking variant of RequestIsProvisioned.
func (c *Controller) IsProvisionedSync(ctx context.Context) (bool, satellite.Result, error) {
	return c.awaitBool(ctx, c.RequestIsProvisioned)
}

func (c *Controller) awaitBool(ctx context.Context, query func(func(satellite.Result, bool))) (bool, satellite.Result, error) {
	c.assertNotWorker()

	type answer struct {
		result satellite.Result
		value  bool
	}
	ch := make(chan answer, 1)
	query(func(result satellite.Result, value bool) {
		ch <- answer{result: result, value: value}
	})

	select {
	case a := <-ch:
		return a.value, a.result, nil
	case <-ctx.Done():
		return false, satellite.ResultError, ctx.Err()
	}
}

func (c *Controller) handleSupportedAck(ev evSupportedAck) {
	if ev.result.IsSuccess() {
		c.cache.setSupported(ev.supported)
	}
	if ev.done != nil {
		ev.done(ev.result, ev.supported)
	}
}

func (c *Controller) handleEnabledAck(ev evEnabledAck) {
	if ev.result.IsSuccess() {
		c.cache.setEnabledFact(ev.enabled)
	}
	// The modem answering that it does not know the request kind means
	// satellite is not supported at all.
	if ev.result == satellite.ResultRequestNotSupported {
		c.cache.setSupported(false)
	}
	if ev.done != nil {
		ev.done(ev.result, ev.enabled)
	}
}

func (c *Controller) handleProvisionedAck(ev evProvisionedAck) {
	if ev.result.IsSuccess() {
		c.cache.setProvisioned(ev.provisioned)
	}
	if ev.done != nil {
		ev.done(ev.result, ev.provisioned)
	}
}

func (c *Controller) handleCapabilitiesAck(ev evCapabilitiesAck) {
	if ev.result.IsSuccess() && ev.caps != nil {
		c.cache.setCapabilities(*ev.caps)
	}
	if ev.done != nil {
		ev.done(ev.result, ev.caps)
	}
}
