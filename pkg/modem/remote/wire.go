package remote

import (
	"fmt"
	"time"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// CBOR map keys for protocol messages. All messages use integer keys.
const (
	keyMessageID = 1
	keyOpOrKind  = 2 // Op (request), Result (response) or EventKind (event)
	keyPayload   = 3
)

// MessageID 0 is reserved to indicate an unsolicited event frame.
const eventMessageID uint32 = 0

// Op identifies a modem operation on the wire.
type Op uint8

// Modem operations.
const (
	OpIsSupported Op = iota + 1
	OpEnable
	OpIsEnabled
	OpCapabilities
	OpIsProvisioned
	OpProvision
	OpDeprovision
	OpCommunicationAllowed
	OpNextVisibility
	OpCarrierEnable
	OpStartTransmissionUpdates
	OpStopTransmissionUpdates
	OpSendDatagram
	OpPollPendingDatagrams
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpIsSupported:
		return "is_supported"
	case OpEnable:
		return "enable"
	case OpIsEnabled:
		return "is_enabled"
	case OpCapabilities:
		return "capabilities"
	case OpIsProvisioned:
		return "is_provisioned"
	case OpProvision:
		return "provision"
	case OpDeprovision:
		return "deprovision"
	case OpCommunicationAllowed:
		return "communication_allowed"
	case OpNextVisibility:
		return "next_visibility"
	case OpCarrierEnable:
		return "carrier_enable"
	case OpStartTransmissionUpdates:
		return "start_transmission_updates"
	case OpStopTransmissionUpdates:
		return "stop_transmission_updates"
	case OpSendDatagram:
		return "send_datagram"
	case OpPollPendingDatagrams:
		return "poll_pending_datagrams"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// IsValid reports whether the operation is a known one.
func (o Op) IsValid() bool {
	return o >= OpIsSupported && o <= OpPollPendingDatagrams
}

// EventKind identifies an unsolicited event frame.
type EventKind uint8

// Event kinds.
const (
	EventProvisionState EventKind = iota + 1
	EventModemState
	EventPendingDatagrams
	EventDatagramReceived
	EventTransmissionUpdate
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventProvisionState:
		return "provision_state"
	case EventModemState:
		return "modem_state"
	case EventPendingDatagrams:
		return "pending_datagrams"
	case EventDatagramReceived:
		return "datagram_received"
	case EventTransmissionUpdate:
		return "transmission_update"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Request is a modem operation request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32, never 0
//	  2: op,         // uint8
//	  3: params      // op-specific, may be absent
//	}
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Op        Op        `cbor:"2,keyasint"`
	Params    RawParams `cbor:"3,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == eventMessageID {
		return fmt.Errorf("messageId 0 is reserved for events")
	}
	if !r.Op.IsValid() {
		return fmt.Errorf("invalid op: %d", r.Op)
	}
	return nil
}

// Response is the completion of a request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32, matches the request
//	  2: result,     // uint8 satellite result code
//	  3: payload     // op-specific, present on success where applicable
//	}
type Response struct {
	MessageID uint32           `cbor:"1,keyasint"`
	Result    satellite.Result `cbor:"2,keyasint"`
	Payload   RawParams        `cbor:"3,keyasint,omitempty"`
}

// Event is an unsolicited indication from the modem side.
//
// CBOR encoding:
//
//	{
//	  1: 0,        // messageId 0 = event
//	  2: kind,     // uint8
//	  3: payload   // kind-specific
//	}
type Event struct {
	Kind    EventKind `cbor:"2,keyasint"`
	Payload RawParams `cbor:"3,keyasint,omitempty"`
}

// EnableParams carries the enable request arguments.
type EnableParams struct {
	Enable bool `cbor:"1,keyasint"`
	Demo   bool `cbor:"2,keyasint,omitempty"`
}

// ProvisionParams carries the provision request arguments.
type ProvisionParams struct {
	Token string `cbor:"1,keyasint"`
	Data  []byte `cbor:"2,keyasint,omitempty"`
}

// DeprovisionParams carries the deprovision request arguments.
type DeprovisionParams struct {
	Token string `cbor:"1,keyasint"`
}

// CarrierEnableParams carries the carrier attach toggle arguments.
type CarrierEnableParams struct {
	SubscriptionID int64 `cbor:"1,keyasint"`
	Enabled        bool  `cbor:"2,keyasint"`
}

// DatagramParams carries an outbound datagram.
type DatagramParams struct {
	Type    satellite.DatagramType `cbor:"1,keyasint"`
	Payload []byte                 `cbor:"2,keyasint"`
}

// BoolPayload is the response payload for boolean queries.
type BoolPayload struct {
	Value bool `cbor:"1,keyasint"`
}

// CapabilitiesPayload is the response payload for the capabilities query.
type CapabilitiesPayload struct {
	Technologies        []satellite.RadioTechnology `cbor:"1,keyasint,omitempty"`
	PointingRequired    bool                        `cbor:"2,keyasint,omitempty"`
	MaxBytesPerDatagram int                         `cbor:"3,keyasint,omitempty"`
}

// ToCapabilities converts the wire payload to the public type.
func (p *CapabilitiesPayload) ToCapabilities() *satellite.Capabilities {
	return &satellite.Capabilities{
		Technologies:        p.Technologies,
		PointingRequired:    p.PointingRequired,
		MaxBytesPerDatagram: p.MaxBytesPerDatagram,
	}
}

// CapabilitiesPayloadFrom builds the wire payload from the public type.
func CapabilitiesPayloadFrom(caps *satellite.Capabilities) *CapabilitiesPayload {
	return &CapabilitiesPayload{
		Technologies:        caps.Technologies,
		PointingRequired:    caps.PointingRequired,
		MaxBytesPerDatagram: caps.MaxBytesPerDatagram,
	}
}

// VisibilityPayload is the response payload for the next-visibility query.
type VisibilityPayload struct {
	Millis int64 `cbor:"1,keyasint"`
}

// Duration returns the visibility delay as a duration.
func (p *VisibilityPayload) Duration() time.Duration {
	return time.Duration(p.Millis) * time.Millisecond
}

// ProvisionStateEvent is the payload of a provision-state event.
type ProvisionStateEvent struct {
	Provisioned bool `cbor:"1,keyasint"`
}

// ModemStateEvent is the payload of a modem-state event.
type ModemStateEvent struct {
	State satellite.ModemState `cbor:"1,keyasint"`
}

// PendingDatagramsEvent is the payload of a pending-datagrams event.
type PendingDatagramsEvent struct {
	Count int `cbor:"1,keyasint"`
}

// DatagramReceivedEvent is the payload of a datagram-received event.
type DatagramReceivedEvent struct {
	Payload []byte `cbor:"1,keyasint"`
	Pending int    `cbor:"2,keyasint"`
}

// TransmissionUpdateEvent is the payload of a pointing update event.
type TransmissionUpdateEvent struct {
	AzimuthDegrees   float64 `cbor:"1,keyasint"`
	ElevationDegrees float64 `cbor:"2,keyasint"`
	SignalStrength   float64 `cbor:"3,keyasint"`
}
