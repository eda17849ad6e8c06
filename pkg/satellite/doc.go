// Package satellite defines the shared vocabulary for the satellite modem
// controller: result codes, modem states, capabilities, restriction reasons
// and datagram types.
//
// # Result Codes
//
// Every mutating operation resolves its callback with exactly one Result.
// Hardware rejections are passed through unchanged; controller-side
// conditions (conflicting requests, unknown capabilities) use the dedicated
// codes ResultRequestInProgress, ResultServiceProvisionInProgress and
// ResultInvalidState.
//
// # Tri-State Facts
//
// Supported, provisioned and enabled are tri-state: unknown until the modem
// has been queried successfully once, then authoritative until explicitly
// invalidated. The controller represents unknown as a nil *bool.
package satellite
