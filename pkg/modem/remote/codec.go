package remote

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// RawParams holds a not-yet-decoded op or event payload.
type RawParams = cbor.RawMessage

// encMode is the CBOR encoder mode, deterministic with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode, lenient for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeParams encodes an op or event payload for embedding in a frame.
func EncodeParams(v any) (RawParams, error) {
	if v == nil {
		return nil, nil
	}
	return Marshal(v)
}

// DecodeParams decodes an embedded payload. A nil payload is an error,
// callers that allow absent payloads must check beforehand.
func DecodeParams(raw RawParams, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	return Unmarshal(raw, v)
}

// EncodeRequest encodes a request message to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes CBOR bytes into a request message.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response message to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp.MessageID == eventMessageID {
		return nil, fmt.Errorf("messageId 0 is reserved for events")
	}
	return Marshal(resp)
}

// DecodeResponse decodes CBOR bytes into a response message.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// EncodeEvent encodes an event message to CBOR bytes. Events have
// messageId=0 which is added automatically.
func EncodeEvent(ev *Event) ([]byte, error) {
	wireMsg := struct {
		MessageID uint32    `cbor:"1,keyasint"`
		Kind      EventKind `cbor:"2,keyasint"`
		Payload   RawParams `cbor:"3,keyasint,omitempty"`
	}{
		MessageID: eventMessageID,
		Kind:      ev.Kind,
		Payload:   ev.Payload,
	}
	return Marshal(wireMsg)
}

// DecodeEvent decodes CBOR bytes into an event message.
func DecodeEvent(data []byte) (*Event, error) {
	var wireMsg struct {
		MessageID uint32    `cbor:"1,keyasint"`
		Kind      EventKind `cbor:"2,keyasint"`
		Payload   RawParams `cbor:"3,keyasint,omitempty"`
	}
	if err := Unmarshal(data, &wireMsg); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if wireMsg.MessageID != eventMessageID {
		return nil, fmt.Errorf("not an event message: messageId=%d", wireMsg.MessageID)
	}
	return &Event{Kind: wireMsg.Kind, Payload: wireMsg.Payload}, nil
}

// PeekMessageID extracts the message ID without fully decoding the
// frame. ID 0 marks an event, anything else a response (on the client
// side) or a request (on the serving side).
func PeekMessageID(data []byte) (uint32, error) {
	var peek struct {
		MessageID uint32 `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return 0, fmt.Errorf("failed to peek message: %w", err)
	}
	return peek.MessageID, nil
}
