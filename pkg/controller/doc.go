// Package controller implements the satellite modem controller: a single
// serialized worker that arbitrates enable/disable transitions,
// provisioning, carrier attach evaluation and datagram traffic against an
// asynchronous modem endpoint.
//
// # Concurrency model
//
// One worker goroutine owns all mutable controller state. Every
// state-changing input, whether a client request, a hardware completion
// or a radio broadcast, enters as a typed event on the worker's ordered
// queue and runs to completion before the next one. Hardware completion
// callbacks never mutate state directly; they re-enter through the queue.
//
// Client-facing entry points run quick prechecks against a mutex-guarded
// snapshot of the capability cache, then enqueue. Synchronous wrappers
// block until the correlated completion fires and panic when invoked
// from the worker goroutine itself, since that would deadlock.
//
// # Request lifecycle
//
// Every mutating request resolves its callback exactly once with a
// satellite.Result. At most one enable and one disable request are
// outstanding at any time; provisioning is de-duplicated per
// subscription through the in-flight map. An enable only completes once
// the modem has acknowledged the command and every dependent terrestrial
// radio is off.
//
// # Construction
//
// Build exactly one Controller per process with New, passing the
// collaborators in Deps. Call Start to begin processing and Close to
// shut down. There is no package-level instance.
package controller
