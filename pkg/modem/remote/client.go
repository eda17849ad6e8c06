package remote

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// DefaultConnectTimeout is the dial timeout when the context has none.
const DefaultConnectTimeout = 30 * time.Second

// Client is a modem endpoint backed by a remote modem server. Responses
// are correlated to completion callbacks by message ID, event frames are
// fanned out to subscribed listeners.
type Client struct {
	log    zerolog.Logger
	conn   net.Conn
	framer *framer

	mu         sync.Mutex
	nextID     uint32
	pending    map[uint32]func(*Response)
	listeners  map[uint64]modem.Listener
	nextListID uint64
	closed     bool

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a remote modem server and starts the read loop.
func Dial(ctx context.Context, address string, log zerolog.Logger) (*Client, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return NewClient(conn, log), nil
}

// NewClient wraps an established connection. Ownership of the
// connection passes to the client.
func NewClient(conn net.Conn, log zerolog.Logger) *Client {
	c := &Client{
		log:       log.With().Str("component", "remote-modem").Logger(),
		conn:      conn,
		framer:    newFramer(conn),
		pending:   make(map[uint32]func(*Response)),
		listeners: make(map[uint64]modem.Listener),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close tears down the connection. In-flight requests complete with an
// error result and listeners see the modem as unavailable.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
		<-c.done
	})
	return err
}

// readLoop consumes frames until the connection dies.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		frame, err := c.framer.readFrame()
		if err != nil {
			c.log.Debug().Err(err).Msg("read loop ended")
			c.connectionLost()
			return
		}

		id, err := PeekMessageID(frame)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}

		if id == eventMessageID {
			ev, err := DecodeEvent(frame)
			if err != nil {
				c.log.Warn().Err(err).Msg("dropping malformed event")
				continue
			}
			c.dispatchEvent(ev)
			continue
		}

		resp, err := DecodeResponse(frame)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed response")
			continue
		}
		c.mu.Lock()
		handler, ok := c.pending[resp.MessageID]
		delete(c.pending, resp.MessageID)
		c.mu.Unlock()
		if !ok {
			c.log.Warn().Uint32("messageId", resp.MessageID).Msg("response without pending request")
			continue
		}
		handler(resp)
	}
}

// connectionLost fails every in-flight request and reports the modem as
// unavailable, the same shape a local vendor service death has.
func (c *Client) connectionLost() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stale := c.pending
	c.pending = make(map[uint32]func(*Response))
	snapshot := c.listenerSnapshotLocked()
	c.mu.Unlock()

	for _, handler := range stale {
		handler(&Response{Result: satellite.ResultError})
	}
	for _, l := range snapshot {
		l.OnModemStateChanged(satellite.ModemStateUnavailable)
	}
}

func (c *Client) listenerSnapshotLocked() []modem.Listener {
	snapshot := make([]modem.Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		snapshot = append(snapshot, l)
	}
	return snapshot
}

func (c *Client) dispatchEvent(ev *Event) {
	c.mu.Lock()
	snapshot := c.listenerSnapshotLocked()
	c.mu.Unlock()

	switch ev.Kind {
	case EventProvisionState:
		var p ProvisionStateEvent
		if err := DecodeParams(ev.Payload, &p); err != nil {
			c.log.Warn().Err(err).Stringer("kind", ev.Kind).Msg("malformed event payload")
			return
		}
		for _, l := range snapshot {
			l.OnProvisionStateChanged(p.Provisioned)
		}
	case EventModemState:
		var p ModemStateEvent
		if err := DecodeParams(ev.Payload, &p); err != nil {
			c.log.Warn().Err(err).Stringer("kind", ev.Kind).Msg("malformed event payload")
			return
		}
		for _, l := range snapshot {
			l.OnModemStateChanged(p.State)
		}
	case EventPendingDatagrams:
		var p PendingDatagramsEvent
		if err := DecodeParams(ev.Payload, &p); err != nil {
			c.log.Warn().Err(err).Stringer("kind", ev.Kind).Msg("malformed event payload")
			return
		}
		for _, l := range snapshot {
			l.OnPendingDatagrams(p.Count)
		}
	case EventDatagramReceived:
		var p DatagramReceivedEvent
		if err := DecodeParams(ev.Payload, &p); err != nil {
			c.log.Warn().Err(err).Stringer("kind", ev.Kind).Msg("malformed event payload")
			return
		}
		for _, l := range snapshot {
			l.OnDatagramReceived(satellite.Datagram{Payload: p.Payload}, p.Pending)
		}
	case EventTransmissionUpdate:
		var p TransmissionUpdateEvent
		if err := DecodeParams(ev.Payload, &p); err != nil {
			c.log.Warn().Err(err).Stringer("kind", ev.Kind).Msg("malformed event payload")
			return
		}
		info := satellite.PointingInfo{
			AzimuthDegrees:   p.AzimuthDegrees,
			ElevationDegrees: p.ElevationDegrees,
			SignalStrength:   p.SignalStrength,
		}
		for _, l := range snapshot {
			l.OnTransmissionUpdate(info)
		}
	default:
		c.log.Warn().Stringer("kind", ev.Kind).Msg("unknown event kind")
	}
}

// send registers a pending handler, encodes the request and writes it.
// Failures complete the handler with an error result on a fresh
// goroutine so callers never see a synchronous callback.
func (c *Client) send(op Op, params any, handler func(*Response)) {
	fail := func() {
		go handler(&Response{Result: satellite.ResultError})
	}

	raw, err := EncodeParams(params)
	if err != nil {
		c.log.Error().Err(err).Stringer("op", op).Msg("failed to encode params")
		fail()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fail()
		return
	}
	c.nextID++
	if c.nextID == eventMessageID {
		c.nextID++
	}
	id := c.nextID
	c.pending[id] = handler
	c.mu.Unlock()

	frame, err := EncodeRequest(&Request{MessageID: id, Op: op, Params: raw})
	if err == nil {
		err = c.framer.writeFrame(frame)
	}
	if err != nil {
		c.log.Error().Err(err).Stringer("op", op).Msg("failed to send request")
		c.mu.Lock()
		_, stillPending := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if stillPending {
			fail()
		}
	}
}

// boolQuery issues a request whose success payload is a single boolean.
func (c *Client) boolQuery(op Op, done func(satellite.Result, bool)) {
	c.send(op, nil, func(resp *Response) {
		if !resp.Result.IsSuccess() {
			done(resp.Result, false)
			return
		}
		var p BoolPayload
		if err := DecodeParams(resp.Payload, &p); err != nil {
			c.log.Warn().Err(err).Stringer("op", op).Msg("malformed response payload")
			done(satellite.ResultError, false)
			return
		}
		done(resp.Result, p.Value)
	})
}

func (c *Client) RequestIsSupported(done func(satellite.Result, bool)) {
	c.boolQuery(OpIsSupported, done)
}

func (c *Client) RequestEnable(enable, demo bool, done func(satellite.Result)) {
	c.send(OpEnable, &EnableParams{Enable: enable, Demo: demo}, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) RequestIsEnabled(done func(satellite.Result, bool)) {
	c.boolQuery(OpIsEnabled, done)
}

func (c *Client) RequestCapabilities(done func(satellite.Result, *satellite.Capabilities)) {
	c.send(OpCapabilities, nil, func(resp *Response) {
		if !resp.Result.IsSuccess() {
			done(resp.Result, nil)
			return
		}
		var p CapabilitiesPayload
		if err := DecodeParams(resp.Payload, &p); err != nil {
			c.log.Warn().Err(err).Msg("malformed capabilities payload")
			done(satellite.ResultError, nil)
			return
		}
		done(resp.Result, p.ToCapabilities())
	})
}

func (c *Client) RequestIsProvisioned(done func(satellite.Result, bool)) {
	c.boolQuery(OpIsProvisioned, done)
}

func (c *Client) Provision(token string, data []byte, done func(satellite.Result)) {
	c.send(OpProvision, &ProvisionParams{Token: token, Data: data}, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) Deprovision(token string, done func(satellite.Result)) {
	c.send(OpDeprovision, &DeprovisionParams{Token: token}, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) RequestCommunicationAllowed(done func(satellite.Result, bool)) {
	c.boolQuery(OpCommunicationAllowed, done)
}

func (c *Client) RequestTimeForNextVisibility(done func(satellite.Result, time.Duration)) {
	c.send(OpNextVisibility, nil, func(resp *Response) {
		if !resp.Result.IsSuccess() {
			done(resp.Result, 0)
			return
		}
		var p VisibilityPayload
		if err := DecodeParams(resp.Payload, &p); err != nil {
			c.log.Warn().Err(err).Msg("malformed visibility payload")
			done(satellite.ResultError, 0)
			return
		}
		done(resp.Result, p.Duration())
	})
}

func (c *Client) SetEnabledForCarrier(subID int64, enabled bool, done func(satellite.Result)) {
	params := &CarrierEnableParams{SubscriptionID: subID, Enabled: enabled}
	c.send(OpCarrierEnable, params, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) StartTransmissionUpdates(done func(satellite.Result)) {
	c.send(OpStartTransmissionUpdates, nil, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) StopTransmissionUpdates(done func(satellite.Result)) {
	c.send(OpStopTransmissionUpdates, nil, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) SendDatagram(datagramType satellite.DatagramType, datagram satellite.Datagram, done func(satellite.Result)) {
	params := &DatagramParams{Type: datagramType, Payload: datagram.Payload}
	c.send(OpSendDatagram, params, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) PollPendingDatagrams(done func(satellite.Result)) {
	c.send(OpPollPendingDatagrams, nil, func(resp *Response) {
		done(resp.Result)
	})
}

func (c *Client) Subscribe(listener modem.Listener) func() {
	c.mu.Lock()
	c.nextListID++
	id := c.nextListID
	c.listeners[id] = listener
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

var _ modem.Endpoint = (*Client)(nil)
