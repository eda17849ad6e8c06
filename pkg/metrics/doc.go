// Package metrics defines the fire-and-forget metrics sink consumed by the
// satellite controller.
//
// Every request that reaches the modem produces exactly one outcome event,
// attributable to the originating request kind. Sinks must be cheap and
// must never block the caller; the controller invokes them from its worker
// goroutine.
package metrics
