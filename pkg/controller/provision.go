package controller

import (
	"context"
	"sync"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// provisionTracker is the in-flight provision map: one entry per
// subscription while a provision command is outstanding. Presence is
// the de-duplication guard. The worker mutates it; entry-point
// prechecks read it, hence the lock.
type provisionTracker struct {
	mu       sync.Mutex
	inFlight map[int64]*provisionEntry
}

type provisionEntry struct {
	token string
	done  Callback
}

func newProvisionTracker() *provisionTracker {
	return &provisionTracker{inFlight: make(map[int64]*provisionEntry)}
}

func (t *provisionTracker) has(subID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inFlight[subID]
	return ok
}

func (t *provisionTracker) put(subID int64, entry *provisionEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inFlight[subID]; ok {
		return false
	}
	t.inFlight[subID] = entry
	return true
}

func (t *provisionTracker) take(subID int64) *provisionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry := t.inFlight[subID]
	delete(t.inFlight, subID)
	return entry
}

func (t *provisionTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight = make(map[int64]*provisionEntry)
}

// count reports the number of in-flight provisions.
func (t *provisionTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inFlight)
}

// Provision registers the subscription with the satellite provider,
// identified by an opaque token. A second call for the same
// subscription while one is outstanding resolves
// SERVICE_PROVISION_IN_PROGRESS without touching hardware; an already
// provisioned subscription resolves SUCCESS immediately.
//
// The returned cancel handle enqueues a deprovision with no callback.
// Cancellation losing the race against completion leaves a harmless
// no-op deprovision.
func (c *Controller) Provision(subID int64, token string, data []byte, done Callback) (cancel func()) {
	cancel = func() {
		c.enqueue(evDeprovisionRequest{subID: subID, token: token})
	}

	// Checked here and again in the worker: the entry check keeps the
	// common duplicate off the queue, the worker check closes the race.
	if c.provisions.has(subID) {
		done(satellite.ResultServiceProvisionInProgress)
		return cancel
	}

	if snap := c.cache.snapshot(); snap.Provisioned != nil && *snap.Provisioned {
		done(satellite.ResultSuccess)
		return cancel
	}

	c.enqueue(evProvisionRequest{subID: subID, token: token, data: data, done: done})
	return cancel
}

// ProvisionSync is the blocking variant of Provision. It panics when
// called from the worker goroutine.
func (c *Controller) ProvisionSync(ctx context.Context, subID int64, token string, data []byte) (satellite.Result, error) {
	return c.await(ctx, func(done Callback) {
		c.Provision(subID, token, data, done)
	})
}

// Deprovision removes the subscription's registration with the
// satellite provider. Succeeding cancels any in-flight provision
// bookkeeping for the subscription.
func (c *Controller) Deprovision(subID int64, token string, done Callback) {
	c.enqueue(evDeprovisionRequest{subID: subID, token: token, done: done})
}

// DeprovisionSync is the blocking variant of Deprovision.
func (c *Controller) DeprovisionSync(ctx context.Context, subID int64, token string) (satellite.Result, error) {
	return c.await(ctx, func(done Callback) {
		c.Deprovision(subID, token, done)
	})
}

func (c *Controller) handleProvisionRequest(ev evProvisionRequest) {
	entry := &provisionEntry{token: ev.token, done: ev.done}
	if !c.provisions.put(ev.subID, entry) {
		if ev.done != nil {
			ev.done(satellite.ResultServiceProvisionInProgress)
		}
		return
	}

	c.log.Info().Int64("subId", ev.subID).Msg("dispatching provision")
	c.endpoint.Provision(ev.token, ev.data, func(result satellite.Result) {
		c.enqueue(evProvisionAck{subID: ev.subID, result: result})
	})
}

func (c *Controller) handleProvisionAck(ev evProvisionAck) {
	entry := c.provisions.take(ev.subID)
	c.metrics.ProvisionOutcome(ev.result)

	if ev.result.IsSuccess() {
		c.cache.setProvisioned(true)
	}

	if entry == nil || entry.done == nil {
		// Cancelled, or a fire-and-forget provision: nothing to call.
		c.log.Info().Int64("subId", ev.subID).Stringer("result", ev.result).
			Msg("provision completed without callback")
		return
	}
	entry.done(ev.result)
}

func (c *Controller) handleDeprovisionRequest(ev evDeprovisionRequest) {
	c.log.Info().Int64("subId", ev.subID).Msg("dispatching deprovision")
	c.endpoint.Deprovision(ev.token, func(result satellite.Result) {
		c.enqueue(evDeprovisionAck{subID: ev.subID, result: result, done: ev.done})
	})
}

func (c *Controller) handleDeprovisionAck(ev evDeprovisionAck) {
	c.metrics.DeprovisionOutcome(ev.result)

	if ev.result.IsSuccess() {
		// Deprovisioning wins over any still-in-flight provision for
		// the subscription.
		c.provisions.take(ev.subID)
		c.cache.setProvisioned(false)
	}

	if ev.done != nil {
		ev.done(ev.result)
	}
}
