package controller

import (
	"context"
	"strconv"
	"sync"

	"github.com/satcom-control/satcom-go/pkg/persistence"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// carrierState holds the per-subscription attach bookkeeping: active
// restriction reasons, carrier support flags and the hardware-side
// enabled mirror. Worker-mutated; the lock serves external readers.
type carrierState struct {
	mu           sync.Mutex
	restrictions map[int64]map[satellite.RestrictionReason]struct{}
	supported    map[int64]bool
	mirror       map[int64]bool
}

func newCarrierState() *carrierState {
	return &carrierState{
		restrictions: make(map[int64]map[satellite.RestrictionReason]struct{}),
		supported:    make(map[int64]bool),
		mirror:       make(map[int64]bool),
	}
}

// mutate adds or removes a restriction reason. Returns whether set
// membership changed.
func (s *carrierState) mutate(subID int64, reason satellite.RestrictionReason, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.restrictions[subID]
	if add {
		if set == nil {
			set = make(map[satellite.RestrictionReason]struct{})
			s.restrictions[subID] = set
		}
		if _, ok := set[reason]; ok {
			return false
		}
		set[reason] = struct{}{}
		return true
	}

	if set == nil {
		return false
	}
	if _, ok := set[reason]; !ok {
		return false
	}
	delete(set, reason)
	return true
}

// facts returns the inputs of the attach decision for a subscription.
func (s *carrierState) facts(subID int64) (userAllowed, noRestrictions, carrierSupported bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.restrictions[subID]
	_, userBlocked := set[satellite.RestrictionUser]
	return !userBlocked, len(set) == 0, s.supported[subID]
}

func (s *carrierState) setSupported(subID int64, supported bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supported[subID] = supported
}

func (s *carrierState) mirrorValue(subID int64) (enabled, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enabled, known = s.mirror[subID]
	return enabled, known
}

func (s *carrierState) setMirror(subID int64, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror[subID] = enabled
}

func (s *carrierState) evictMirror(subID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mirror, subID)
}

func (s *carrierState) evictAllMirrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = make(map[int64]bool)
}

// reasons returns the active restriction reasons for a subscription.
func (s *carrierState) reasons(subID int64) []satellite.RestrictionReason {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.restrictions[subID]
	out := make([]satellite.RestrictionReason, 0, len(set))
	for reason := range set {
		out = append(out, reason)
	}
	return out
}

// desiredEnabled is the attach decision: a subscription should be
// attached iff the user allows it, no restriction reason is active and
// the carrier supports satellite attach. Pure so it can be tested
// without the controller.
func desiredEnabled(userAllowed, noRestrictions, carrierSupported bool) bool {
	return userAllowed && noRestrictions && carrierSupported
}

// AddAttachRestriction activates a restriction reason for the
// subscription and re-evaluates carrier attach. Adding an already
// active reason resolves SUCCESS without a hardware command.
func (c *Controller) AddAttachRestriction(subID int64, reason satellite.RestrictionReason, done Callback) {
	c.enqueue(evRestrictionChange{subID: subID, reason: reason, add: true, done: done})
}

// RemoveAttachRestriction clears a restriction reason for the
// subscription and re-evaluates carrier attach.
func (c *Controller) RemoveAttachRestriction(subID int64, reason satellite.RestrictionReason, done Callback) {
	c.enqueue(evRestrictionChange{subID: subID, reason: reason, add: false, done: done})
}

// AddAttachRestrictionSync is the blocking variant of
// AddAttachRestriction. It panics when called from the worker
// goroutine.
func (c *Controller) AddAttachRestrictionSync(ctx context.Context, subID int64, reason satellite.RestrictionReason) (satellite.Result, error) {
	return c.await(ctx, func(done Callback) {
		c.AddAttachRestriction(subID, reason, done)
	})
}

// RemoveAttachRestrictionSync is the blocking variant of
// RemoveAttachRestriction.
func (c *Controller) RemoveAttachRestrictionSync(ctx context.Context, subID int64, reason satellite.RestrictionReason) (satellite.Result, error) {
	return c.await(ctx, func(done Callback) {
		c.RemoveAttachRestriction(subID, reason, done)
	})
}

// AttachRestrictions returns the active restriction reasons for a
// subscription. Attach is permitted iff the returned set is empty.
func (c *Controller) AttachRestrictions(subID int64) []satellite.RestrictionReason {
	return c.carrier.reasons(subID)
}

// SetCarrierSupported records whether the carrier supports satellite
// attach for the subscription and re-evaluates.
func (c *Controller) SetCarrierSupported(subID int64, supported bool) {
	c.enqueue(evCarrierSupport{subID: subID, supported: supported})
}

func (c *Controller) handleRestrictionChange(ev evRestrictionChange) {
	changed := c.carrier.mutate(ev.subID, ev.reason, ev.add)
	if !changed {
		if ev.done != nil {
			ev.done(satellite.ResultSuccess)
		}
		return
	}

	// User-initiated changes persist before evaluation; a store failure
	// aborts the whole operation and reverts the set mutation so no
	// hardware state is touched.
	if ev.reason == satellite.RestrictionUser {
		attachAllowed := !ev.add
		value := strconv.FormatBool(attachAllowed)
		if err := c.store.Set(ev.subID, persistence.KeyAttachEnabled, value); err != nil {
			c.log.Error().Err(err).Int64("subId", ev.subID).
				Msg("failed to persist user attach setting")
			c.carrier.mutate(ev.subID, ev.reason, !ev.add)
			if ev.done != nil {
				ev.done(satellite.ResultInvalidState)
			}
			return
		}
	}

	c.evaluateCarrierAttach(ev.subID, ev.done)
}

func (c *Controller) handleCarrierSupport(ev evCarrierSupport) {
	c.carrier.setSupported(ev.subID, ev.supported)
	c.evaluateCarrierAttach(ev.subID, nil)
}

// evaluateCarrierAttach compares the desired attach state with the
// hardware mirror and issues a scoped command only on a transition.
func (c *Controller) evaluateCarrierAttach(subID int64, done Callback) {
	desired := desiredEnabled(c.carrier.facts(subID))

	// The modem boots detached, so an unknown mirror counts as false.
	// A failed command evicts the mirror, which re-arms the dispatch
	// for the enabled direction on the next evaluation.
	mirror, known := c.carrier.mirrorValue(subID)
	if !known {
		mirror = false
	}
	if mirror == desired {
		if done != nil {
			done(satellite.ResultSuccess)
		}
		return
	}

	c.log.Info().Int64("subId", subID).Bool("enabled", desired).
		Msg("dispatching carrier attach change")
	c.endpoint.SetEnabledForCarrier(subID, desired, func(result satellite.Result) {
		c.enqueue(evCarrierAck{subID: subID, desired: desired, result: result, done: done})
	})
}

func (c *Controller) handleCarrierAck(ev evCarrierAck) {
	c.metrics.CarrierAttachOutcome(ev.result)
	if ev.result.IsSuccess() {
		c.carrier.setMirror(ev.subID, ev.desired)
	} else {
		// Forces a fresh hardware command on the next evaluation.
		c.carrier.evictMirror(ev.subID)
		c.log.Warn().Int64("subId", ev.subID).Stringer("result", ev.result).
			Msg("carrier attach change rejected")
	}
	if ev.done != nil {
		ev.done(ev.result)
	}
}
