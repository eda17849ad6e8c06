package controller

import (
	"context"
	"strconv"

	"github.com/satcom-control/satcom-go/pkg/persistence"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// RequestEnable asks to enable or disable the satellite session. demo
// selects demo mode and is forced off for disable requests. The
// callback fires exactly once. Prechecks against the capability cache
// run on the calling goroutine; unknown facts resolve INVALID_STATE and
// trigger one background query each so a retry can succeed. Whether the
// request matches the current session state is decided on the worker,
// after arbitration against outstanding requests.
func (c *Controller) RequestEnable(enable, demo bool, done Callback) {
	if !enable {
		demo = false
	}

	snap := c.cache.snapshot()

	if snap.Supported == nil {
		c.querySupportedInBackground()
		done(satellite.ResultInvalidState)
		return
	}
	if !*snap.Supported {
		done(satellite.ResultNotSupported)
		return
	}

	if enable {
		if snap.Provisioned == nil {
			c.queryProvisionedInBackground()
			done(satellite.ResultInvalidState)
			return
		}
		if !*snap.Provisioned {
			done(satellite.ResultServiceNotProvisioned)
			return
		}
		if snap.Capabilities == nil {
			c.queryCapabilitiesInBackground()
			done(satellite.ResultInvalidState)
			return
		}
	}

	c.enqueue(evEnableRequest{enable: enable, demo: demo, done: done})
}

// RequestEnableSync is the blocking variant of RequestEnable. It panics
// when called from the worker goroutine.
func (c *Controller) RequestEnableSync(ctx context.Context, enable, demo bool) (satellite.Result, error) {
	return c.await(ctx, func(done Callback) {
		c.RequestEnable(enable, demo, done)
	})
}

func (c *Controller) querySupportedInBackground() {
	c.endpoint.RequestIsSupported(func(result satellite.Result, supported bool) {
		c.enqueue(evSupportedAck{result: result, supported: supported})
	})
}

func (c *Controller) queryProvisionedInBackground() {
	c.endpoint.RequestIsProvisioned(func(result satellite.Result, provisioned bool) {
		c.enqueue(evProvisionedAck{result: result, provisioned: provisioned})
	})
}

func (c *Controller) queryCapabilitiesInBackground() {
	c.endpoint.RequestCapabilities(func(result satellite.Result, caps *satellite.Capabilities) {
		c.enqueue(evCapabilitiesAck{result: result, caps: caps})
	})
}

// handleEnableRequest arbitrates a state-change request against the
// outstanding ones:
//
//   - same direction pending: REQUEST_IN_PROGRESS
//   - disable pending, new enable: ERROR
//   - enable pending, new disable: the disable goes through; a pending
//     enable already waiting for radio settling resolves SUCCESS first
//     (superseding semantics), one still awaiting its modem ack stays
//     recorded and resolves when the disable acknowledges
//   - nothing pending and already in the requested state: demo mismatch
//     on enable is an argument error, anything else an immediate success
//   - otherwise: record and dispatch
func (c *Controller) handleEnableRequest(ev evEnableRequest) {
	req := &pendingRequest{enable: ev.enable, demo: ev.demo, done: ev.done}

	if ev.enable {
		if c.pendingEnable != nil {
			req.resolve(satellite.ResultRequestInProgress)
			return
		}
		if c.pendingDisable != nil {
			req.resolve(satellite.ResultError)
			return
		}
		if snap := c.cache.snapshot(); snap.Enabled != nil && *snap.Enabled {
			if snap.DemoMode != ev.demo {
				req.resolve(satellite.ResultInvalidArguments)
				return
			}
			req.resolve(satellite.ResultSuccess)
			return
		}
		c.pendingEnable = req
		c.log.Info().Bool("demo", ev.demo).Msg("dispatching enable")
		c.endpoint.RequestEnable(true, ev.demo, func(result satellite.Result) {
			c.enqueue(evEnableAck{enable: true, result: result})
		})
		return
	}

	if c.pendingDisable != nil {
		req.resolve(satellite.ResultRequestInProgress)
		return
	}
	if c.pendingEnable != nil {
		if c.waitingForRadios {
			// The modem already acknowledged the enable; only radio
			// settling is outstanding. The enable is treated as having
			// succeeded and is immediately superseded by the disable.
			c.resolveEnableSuccess()
		}
		c.dispatchDisable(req)
		return
	}
	if snap := c.cache.snapshot(); snap.Enabled != nil && !*snap.Enabled {
		req.resolve(satellite.ResultSuccess)
		return
	}
	c.dispatchDisable(req)
}

// dispatchDisable records the disable request and sends the hardware
// command. The off-state collapse waits for the modem's OFF state
// event.
func (c *Controller) dispatchDisable(req *pendingRequest) {
	c.pendingDisable = req
	c.waitingForModemOff = true
	c.log.Info().Msg("dispatching disable")
	c.endpoint.RequestEnable(false, false, func(result satellite.Result) {
		c.enqueue(evEnableAck{enable: false, result: result})
	})
}

func (c *Controller) handleEnableAck(ev evEnableAck) {
	if ev.enable {
		c.handleEnableAckOn(ev.result)
	} else {
		c.handleEnableAckOff(ev.result)
	}
}

// handleEnableAckOn processes the modem's answer to an enable command.
// Success moves to the radio-settling wait; failure resolves the
// request with the hardware code.
func (c *Controller) handleEnableAckOn(result satellite.Result) {
	if c.pendingEnable == nil {
		c.log.Warn().Stringer("result", result).Msg("enable ack without pending request")
		return
	}

	if result.IsError() {
		c.log.Warn().Stringer("result", result).Msg("enable rejected by modem")
		c.metrics.EnableOutcome(result)
		c.pendingEnable.resolve(result)
		c.pendingEnable = nil
		c.waitingForRadios = false
		return
	}

	c.persistSatelliteMode(true)
	if c.cache.pointingRequired() {
		c.pointing.StartUI(false)
	}

	c.waitingForRadios = true
	if c.radios == nil || c.radios.AllDependenciesOff() {
		c.completeEnableSuccess()
	}
}

// handleEnableAckOff processes the modem's answer to a disable command.
// A recorded enable request resolves SUCCESS first; the off-state
// collapse itself waits for the modem OFF event.
func (c *Controller) handleEnableAckOff(result satellite.Result) {
	if c.pendingDisable == nil {
		c.log.Warn().Stringer("result", result).Msg("disable ack without pending request")
		return
	}

	if result.IsError() {
		c.log.Warn().Stringer("result", result).Msg("disable rejected by modem")
		c.metrics.DisableOutcome(result)
		c.pendingDisable.resolve(result)
		c.pendingDisable = nil
		c.waitingForModemOff = false
		return
	}

	if c.pendingEnable != nil {
		c.resolveEnableSuccess()
	}

	c.metrics.DisableOutcome(satellite.ResultSuccess)
	c.pendingDisable.resolve(satellite.ResultSuccess)
	c.pendingDisable = nil

	if !c.waitingForModemOff {
		// The OFF state event won the race against the ack; the
		// collapse already ran unless the cache still says enabled.
		if snap := c.cache.snapshot(); snap.Enabled == nil || *snap.Enabled {
			c.moveToOffState(satellite.ModemStateOff)
		}
	}
}

// handleRadioAllOff reacts to the edge-triggered all-dependent-radios-off
// signal. Outside the settling wait it has no side effect.
func (c *Controller) handleRadioAllOff() {
	if c.pendingEnable == nil || !c.waitingForRadios {
		return
	}
	c.completeEnableSuccess()
}

// resolveEnableSuccess answers the pending enable callback with SUCCESS
// and drops the request without declaring a session. Used when a
// disable supersedes the enable.
func (c *Controller) resolveEnableSuccess() {
	c.metrics.EnableOutcome(satellite.ResultSuccess)
	c.pendingEnable.resolve(satellite.ResultSuccess)
	c.pendingEnable = nil
	c.waitingForRadios = false
}

// completeEnableSuccess declares the session up: demo mode applies, the
// cache flips, listeners hear the state change and the caller gets
// SUCCESS.
func (c *Controller) completeEnableSuccess() {
	req := c.pendingEnable
	c.pendingEnable = nil
	c.waitingForRadios = false

	c.cache.setEnabled(true, req.demo)
	c.cache.setModemState(satellite.ModemStateIdle)
	c.listeners.notifyModemState(satellite.ModemStateIdle)

	c.metrics.EnableOutcome(satellite.ResultSuccess)
	c.metrics.SessionStarted()

	c.log.Info().Bool("demo", req.demo).Msg("satellite session enabled")
	req.resolve(satellite.ResultSuccess)
}

// handleModemState processes externally observed modem state changes.
// Terminal states collapse the controller to disabled; OFF maps to
// SUCCESS for a waiting enable, UNAVAILABLE to INVALID_STATE.
func (c *Controller) handleModemState(state satellite.ModemState) {
	if !state.IsTerminated() {
		c.cache.setModemState(state)
		c.listeners.notifyModemState(state)
		return
	}

	snap := c.cache.snapshot()
	wasActive := snap.Enabled != nil && *snap.Enabled
	hadWork := c.pendingEnable != nil || c.pendingDisable != nil || c.waitingForModemOff

	if !wasActive && !hadWork {
		// Already off, nothing to collapse.
		c.cache.setModemState(state)
		c.listeners.notifyModemState(state)
		return
	}

	code := satellite.ResultSuccess
	if state == satellite.ModemStateUnavailable {
		code = satellite.ResultInvalidState
	}

	if c.pendingEnable != nil {
		c.log.Warn().Stringer("state", state).Msg("modem terminated with enable pending")
		c.metrics.EnableOutcome(code)
		c.pendingEnable.resolve(code)
		c.pendingEnable = nil
	}
	if !c.waitingForModemOff && wasActive {
		// Unexpected termination of an active session.
		c.metrics.DisableOutcome(code)
	}
	if wasActive {
		c.metrics.SessionEnded()
	}

	c.moveToOffState(state)
}

// moveToOffState is the single collapse point to the disabled state:
// pending bookkeeping cleared, demo mode off, the satellite mode flag
// persisted off, pointing stopped and listeners notified.
func (c *Controller) moveToOffState(state satellite.ModemState) {
	c.waitingForRadios = false
	c.waitingForModemOff = false

	c.cache.setEnabled(false, false)
	c.cache.setModemState(state)
	c.persistSatelliteMode(false)
	c.pointing.StopUI()

	c.log.Info().Stringer("state", state).Msg("satellite session off")
	c.listeners.notifyModemState(state)
}

// persistSatelliteMode records the device-level satellite mode flag.
// Store failures are logged; the session state machine does not depend
// on the flag.
func (c *Controller) persistSatelliteMode(on bool) {
	value := strconv.FormatBool(on)
	if err := c.store.Set(persistence.DeviceSubID, persistence.KeySatelliteMode, value); err != nil {
		c.log.Error().Err(err).Bool("on", on).Msg("failed to persist satellite mode flag")
	}
}
