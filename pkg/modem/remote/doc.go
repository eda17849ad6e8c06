// Package remote carries the modem endpoint contract over a TCP link.
//
// Deployments where the vendor modem service runs in a separate process
// (or on a companion co-processor board) expose it through a small
// CBOR-based protocol: length-prefixed frames, integer map keys, one
// request/response pair per modem operation plus unsolicited event
// frames for indications.
//
// # Architecture
//
//   - Server wraps any modem.Endpoint and serves it on a listener,
//     optionally announcing itself over mDNS as "_satmodem._tcp".
//   - Client dials a server and implements modem.Endpoint, correlating
//     responses to callbacks by message ID and fanning event frames out
//     to subscribed listeners.
//
// When the link drops, the client fails every in-flight request and
// reports the modem as unavailable, mirroring what a local vendor
// service death looks like.
package remote
