// Package modem defines the narrow contract between the satellite
// controller and the hardware modem's vendor service.
//
// # Completion Discipline
//
// Every async operation delivers exactly one completion, carrying either a
// success payload or an error result. Completions may run on any
// goroutine; the controller re-enters them through its own serialized
// worker, so endpoint implementations never need to serialize with each
// other.
//
// # Events
//
// Besides request/response pairs, the endpoint pushes three unsolicited
// event kinds: provision-state-changed, modem-state-changed and
// pending-datagram notifications. Subscribers receive events in the order
// the endpoint observed them.
package modem
