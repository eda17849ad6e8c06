package controller

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/metrics"
	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/persistence"
	"github.com/satcom-control/satcom-go/pkg/pointing"
	"github.com/satcom-control/satcom-go/pkg/radios"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// Controller coordinates all satellite modem operations. Construct with
// New, call Start before use and Close when done.
type Controller struct {
	log      zerolog.Logger
	endpoint modem.Endpoint
	radios   *radios.Tracker
	store    persistence.Store
	metrics  metrics.Sink
	pointing pointing.Launcher

	cache     *stateCache
	listeners *listenerRegistry

	// Worker-owned state. Only the worker goroutine touches these
	// fields after Start.
	pendingEnable      *pendingRequest
	pendingDisable     *pendingRequest
	waitingForRadios   bool
	waitingForModemOff bool

	provisions *provisionTracker
	carrier    *carrierState

	events      chan event
	quit        chan struct{}
	workerGID   atomic.Uint64
	wg          sync.WaitGroup
	unsubscribe func()

	startOnce sync.Once
	closeOnce sync.Once
}

// pendingRequest is an outstanding enable or disable request. At most
// one of each exists at any time.
type pendingRequest struct {
	enable bool
	demo   bool
	done   Callback
}

// resolve invokes the callback if one is registered.
func (p *pendingRequest) resolve(result satellite.Result) {
	if p.done != nil {
		p.done(result)
	}
}

// New creates a controller. The endpoint and store are required.
func New(deps Deps, cfg Config) (*Controller, error) {
	if deps.Endpoint == nil {
		return nil, ErrMissingEndpoint
	}
	if deps.Store == nil {
		return nil, ErrMissingStore
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.Pointing == nil {
		deps.Pointing = pointing.Noop{}
	}
	cfg.applyDefaults()

	c := &Controller{
		log:        deps.Log.With().Str("component", "controller").Logger(),
		endpoint:   deps.Endpoint,
		radios:     deps.Radios,
		store:      deps.Store,
		metrics:    deps.Metrics,
		pointing:   deps.Pointing,
		cache:      newStateCache(),
		listeners:  newListenerRegistry(deps.Log),
		provisions: newProvisionTracker(),
		carrier:    newCarrierState(),
		events:     make(chan event, cfg.QueueSize),
		quit:       make(chan struct{}),
	}
	return c, nil
}

// Start launches the worker, subscribes to endpoint events and runs the
// initial bring-up query chain. Safe to call once.
func (c *Controller) Start() {
	c.startOnce.Do(func() {
		if c.radios != nil {
			c.radios.OnAllOff(func() { c.enqueue(evRadioAllOff{}) })
		}
		c.unsubscribe = c.endpoint.Subscribe(endpointEvents{c})

		c.wg.Add(1)
		go c.run()

		c.enqueue(evEndpointReset{})
	})
}

// Close stops the worker. In-flight hardware completions arriving after
// Close are dropped.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		close(c.quit)
		c.wg.Wait()
	})
}

// Snapshot returns a point-in-time copy of the capability cache.
func (c *Controller) Snapshot() Snapshot {
	return c.cache.snapshot()
}

// enqueue posts an event to the worker. Events are dropped once the
// controller is closed.
func (c *Controller) enqueue(ev event) {
	select {
	case c.events <- ev:
	case <-c.quit:
		c.log.Debug().Type("event", ev).Msg("event dropped after close")
	}
}

// run is the worker loop. All mutable controller state is owned here.
func (c *Controller) run() {
	defer c.wg.Done()
	c.workerGID.Store(goroutineID())

	for {
		select {
		case <-c.quit:
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev := ev.(type) {
	case evEndpointReset:
		c.handleEndpointReset()
	case evEnableRequest:
		c.handleEnableRequest(ev)
	case evEnableAck:
		c.handleEnableAck(ev)
	case evRadioAllOff:
		c.handleRadioAllOff()
	case evModemState:
		c.handleModemState(ev.state)
	case evProvisionState:
		c.cache.setProvisioned(ev.provisioned)
		c.listeners.notifyProvisionState(ev.provisioned)
	case evSupportedAck:
		c.handleSupportedAck(ev)
	case evEnabledAck:
		c.handleEnabledAck(ev)
	case evProvisionedAck:
		c.handleProvisionedAck(ev)
	case evCapabilitiesAck:
		c.handleCapabilitiesAck(ev)
	case evProvisionRequest:
		c.handleProvisionRequest(ev)
	case evProvisionAck:
		c.handleProvisionAck(ev)
	case evDeprovisionRequest:
		c.handleDeprovisionRequest(ev)
	case evDeprovisionAck:
		c.handleDeprovisionAck(ev)
	case evRestrictionChange:
		c.handleRestrictionChange(ev)
	case evCarrierSupport:
		c.handleCarrierSupport(ev)
	case evCarrierAck:
		c.handleCarrierAck(ev)
	case evSendDatagram:
		c.handleSendDatagram(ev)
	case evSendDatagramAck:
		c.handleSendDatagramAck(ev)
	case evPollRequest:
		c.handlePollRequest(ev)
	case evPollAck:
		c.handlePollAck(ev)
	case evPendingDatagrams:
		c.handlePendingDatagrams(ev.count)
	case evDatagramReceived:
		c.listeners.notifyDatagram(ev.datagram, ev.pending)
	default:
		c.log.Error().Type("event", ev).Msg("unhandled event type")
	}
}

// handleEndpointReset clears all cached facts together and starts the
// bring-up chain: supported, then (if supported) event-driven
// provisioned and capabilities queries plus a normalizing disable.
func (c *Controller) handleEndpointReset() {
	c.cache.resetFacts()
	c.pendingEnable = nil
	c.pendingDisable = nil
	c.waitingForRadios = false
	c.waitingForModemOff = false
	c.provisions.reset()
	c.carrier.evictAllMirrors()

	c.endpoint.RequestIsSupported(func(result satellite.Result, supported bool) {
		c.enqueue(evSupportedAck{result: result, supported: supported, done: c.afterBringUpSupported})
	})
}

// afterBringUpSupported continues bring-up once the supported query has
// resolved. Runs on the worker via the ack handler.
func (c *Controller) afterBringUpSupported(result satellite.Result, supported bool) {
	if !result.IsSuccess() {
		c.log.Warn().Stringer("result", result).Msg("supported query failed during bring-up")
		return
	}
	if !supported {
		c.log.Info().Msg("satellite not supported on this device")
		return
	}

	c.endpoint.RequestIsProvisioned(func(result satellite.Result, provisioned bool) {
		c.enqueue(evProvisionedAck{result: result, provisioned: provisioned, done: c.afterBringUpProvisioned})
	})
	c.endpoint.RequestCapabilities(func(result satellite.Result, caps *satellite.Capabilities) {
		c.enqueue(evCapabilitiesAck{result: result, caps: caps})
	})
}

// afterBringUpProvisioned normalizes the modem to disabled after the
// provisioned state is known, so a vendor-service restart never leaves
// the modem half-enabled.
func (c *Controller) afterBringUpProvisioned(result satellite.Result, _ bool) {
	if !result.IsSuccess() {
		c.log.Warn().Stringer("result", result).Msg("provisioned query failed during bring-up")
		return
	}
	if c.pendingEnable != nil || c.pendingDisable != nil {
		return
	}
	c.dispatchDisable(&pendingRequest{enable: false})
}

// goroutineID parses the current goroutine's numeric id out of the
// runtime stack header. Used only for the worker self-deadlock guard.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Header shape: "goroutine 123 [running]:"
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// assertNotWorker panics when called from the worker goroutine. The
// synchronous wrappers wait for a completion the worker itself must
// deliver, so calling them there can only deadlock.
func (c *Controller) assertNotWorker() {
	if gid := goroutineID(); gid != 0 && gid == c.workerGID.Load() {
		panic("controller: synchronous call from the worker goroutine")
	}
}

// await blocks until the submitted request completes or the context is
// cancelled. Must not be called from the worker goroutine.
func (c *Controller) await(ctx context.Context, submit func(done Callback)) (satellite.Result, error) {
	c.assertNotWorker()

	ch := make(chan satellite.Result, 1)
	submit(func(result satellite.Result) { ch <- result })

	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		return satellite.ResultError, ctx.Err()
	}
}

// endpointEvents adapts modem endpoint indications onto the worker
// queue.
type endpointEvents struct {
	c *Controller
}

func (e endpointEvents) OnProvisionStateChanged(provisioned bool) {
	e.c.enqueue(evProvisionState{provisioned: provisioned})
}

func (e endpointEvents) OnModemStateChanged(state satellite.ModemState) {
	e.c.enqueue(evModemState{state: state})
}

func (e endpointEvents) OnPendingDatagrams(count int) {
	e.c.enqueue(evPendingDatagrams{count: count})
}

func (e endpointEvents) OnDatagramReceived(datagram satellite.Datagram, pending int) {
	e.c.enqueue(evDatagramReceived{datagram: datagram, pending: pending})
}

func (e endpointEvents) OnTransmissionUpdate(info satellite.PointingInfo) {
	// Read-only display data, recorded without a worker round trip.
	e.c.cache.setLastPointing(info)
}
