package remote

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// Server exposes a modem endpoint to remote clients. Every accepted
// connection gets its own event subscription on the endpoint, so
// indications reach all connected clients.
type Server struct {
	log      zerolog.Logger
	endpoint modem.Endpoint

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool

	wg sync.WaitGroup
}

// NewServer creates a server for the given endpoint.
func NewServer(endpoint modem.Endpoint, log zerolog.Logger) *Server {
	return &Server{
		log:      log.With().Str("component", "modem-server").Logger(),
		endpoint: endpoint,
		conns:    make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on the given TCP address and serves until
// Close is called.
func (s *Server) ListenAndServe(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on the listener until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server closed")
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().Str("address", ln.Addr().String()).Msg("serving modem endpoint")

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Addr returns the listen address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops the listener, drops all connections and waits for
// connection handlers to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, conn := range conns {
		conn.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("client connected")

	f := newFramer(conn)
	unsubscribe := s.endpoint.Subscribe(&eventWriter{log: log, f: f})
	defer unsubscribe()

	for {
		frame, err := f.readFrame()
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("client read ended")
			}
			return
		}

		req, err := DecodeRequest(frame)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed request")
			continue
		}
		s.dispatch(log, f, req)
	}
}

// dispatch routes a request to the endpoint. Completions run on the
// endpoint's goroutines and write the response frame directly.
func (s *Server) dispatch(log zerolog.Logger, f *framer, req *Request) {
	respond := func(result satellite.Result, payload any) {
		raw, err := EncodeParams(payload)
		if err != nil {
			log.Error().Err(err).Stringer("op", req.Op).Msg("failed to encode response payload")
			raw, result = nil, satellite.ResultError
		}
		frame, err := EncodeResponse(&Response{MessageID: req.MessageID, Result: result, Payload: raw})
		if err == nil {
			err = f.writeFrame(frame)
		}
		if err != nil {
			log.Debug().Err(err).Stringer("op", req.Op).Msg("failed to write response")
		}
	}
	respondResult := func(result satellite.Result) {
		respond(result, nil)
	}
	respondBool := func(result satellite.Result, value bool) {
		if !result.IsSuccess() {
			respondResult(result)
			return
		}
		respond(result, &BoolPayload{Value: value})
	}

	switch req.Op {
	case OpIsSupported:
		s.endpoint.RequestIsSupported(respondBool)
	case OpEnable:
		var p EnableParams
		if err := DecodeParams(req.Params, &p); err != nil {
			respondResult(satellite.ResultInvalidArguments)
			return
		}
		s.endpoint.RequestEnable(p.Enable, p.Demo, respondResult)
	case OpIsEnabled:
		s.endpoint.RequestIsEnabled(respondBool)
	case OpCapabilities:
		s.endpoint.RequestCapabilities(func(result satellite.Result, caps *satellite.Capabilities) {
			if !result.IsSuccess() || caps == nil {
				respondResult(result)
				return
			}
			respond(result, CapabilitiesPayloadFrom(caps))
		})
	case OpIsProvisioned:
		s.endpoint.RequestIsProvisioned(respondBool)
	case OpProvision:
		var p ProvisionParams
		if err := DecodeParams(req.Params, &p); err != nil {
			respondResult(satellite.ResultInvalidArguments)
			return
		}
		s.endpoint.Provision(p.Token, p.Data, respondResult)
	case OpDeprovision:
		var p DeprovisionParams
		if err := DecodeParams(req.Params, &p); err != nil {
			respondResult(satellite.ResultInvalidArguments)
			return
		}
		s.endpoint.Deprovision(p.Token, respondResult)
	case OpCommunicationAllowed:
		s.endpoint.RequestCommunicationAllowed(respondBool)
	case OpNextVisibility:
		s.endpoint.RequestTimeForNextVisibility(func(result satellite.Result, visible time.Duration) {
			if !result.IsSuccess() {
				respondResult(result)
				return
			}
			respond(result, &VisibilityPayload{Millis: visible.Milliseconds()})
		})
	case OpCarrierEnable:
		var p CarrierEnableParams
		if err := DecodeParams(req.Params, &p); err != nil {
			respondResult(satellite.ResultInvalidArguments)
			return
		}
		s.endpoint.SetEnabledForCarrier(p.SubscriptionID, p.Enabled, respondResult)
	case OpStartTransmissionUpdates:
		s.endpoint.StartTransmissionUpdates(respondResult)
	case OpStopTransmissionUpdates:
		s.endpoint.StopTransmissionUpdates(respondResult)
	case OpSendDatagram:
		var p DatagramParams
		if err := DecodeParams(req.Params, &p); err != nil {
			respondResult(satellite.ResultInvalidArguments)
			return
		}
		s.endpoint.SendDatagram(p.Type, satellite.Datagram{Payload: p.Payload}, respondResult)
	case OpPollPendingDatagrams:
		s.endpoint.PollPendingDatagrams(respondResult)
	default:
		respondResult(satellite.ResultRequestNotSupported)
	}
}

// eventWriter forwards endpoint indications to one connection.
type eventWriter struct {
	log zerolog.Logger
	f   *framer
}

func (w *eventWriter) write(kind EventKind, payload any) {
	raw, err := EncodeParams(payload)
	if err != nil {
		w.log.Error().Err(err).Stringer("kind", kind).Msg("failed to encode event payload")
		return
	}
	frame, err := EncodeEvent(&Event{Kind: kind, Payload: raw})
	if err == nil {
		err = w.f.writeFrame(frame)
	}
	if err != nil {
		w.log.Debug().Err(err).Stringer("kind", kind).Msg("failed to write event")
	}
}

func (w *eventWriter) OnProvisionStateChanged(provisioned bool) {
	w.write(EventProvisionState, &ProvisionStateEvent{Provisioned: provisioned})
}

func (w *eventWriter) OnModemStateChanged(state satellite.ModemState) {
	w.write(EventModemState, &ModemStateEvent{State: state})
}

func (w *eventWriter) OnPendingDatagrams(count int) {
	w.write(EventPendingDatagrams, &PendingDatagramsEvent{Count: count})
}

func (w *eventWriter) OnDatagramReceived(datagram satellite.Datagram, pending int) {
	w.write(EventDatagramReceived, &DatagramReceivedEvent{Payload: datagram.Payload, Pending: pending})
}

func (w *eventWriter) OnTransmissionUpdate(info satellite.PointingInfo) {
	w.write(EventTransmissionUpdate, &TransmissionUpdateEvent{
		AzimuthDegrees:   info.AzimuthDegrees,
		ElevationDegrees: info.ElevationDegrees,
		SignalStrength:   info.SignalStrength,
	})
}
