package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

// fakeEndpoint is a scripted modem endpoint. Queries answer
// synchronously from configured values; enable/disable, provision and
// carrier commands either auto-acknowledge or are recorded for the test
// to complete manually.
type fakeEndpoint struct {
	mu         sync.Mutex
	listeners  map[uint64]modem.Listener
	nextListID uint64

	supported         bool
	supportedResult   satellite.Result
	provisioned       bool
	provisionedResult satellite.Result
	enabled           bool
	enabledResult     satellite.Result
	caps              satellite.Capabilities
	capsResult        satellite.Result

	manualEnable  bool
	manualDisable bool

	supportedQueries   int
	provisionedQueries int
	enabledQueries     int
	capsQueries        int

	enableCalls  []*fakeEnableCall
	disableCalls []*fakeEnableCall

	manualProvision  bool
	provisionCalls   []*fakeProvisionCall
	deprovisionCalls []*fakeProvisionCall

	carrierResult satellite.Result
	carrierCalls  []*fakeCarrierCall

	sendResult satellite.Result
	sendCalls  int
	pollCalls  int
}

type fakeEnableCall struct {
	enable bool
	demo   bool
	done   func(satellite.Result)
}

type fakeProvisionCall struct {
	token string
	done  func(satellite.Result)
}

type fakeCarrierCall struct {
	subID   int64
	enabled bool
	done    func(satellite.Result)
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		listeners:         make(map[uint64]modem.Listener),
		supported:         true,
		supportedResult:   satellite.ResultSuccess,
		provisioned:       true,
		provisionedResult: satellite.ResultSuccess,
		enabledResult:     satellite.ResultSuccess,
		caps: satellite.Capabilities{
			Technologies:        []satellite.RadioTechnology{satellite.TechnologyProprietary},
			MaxBytesPerDatagram: 255,
		},
		capsResult:    satellite.ResultSuccess,
		carrierResult: satellite.ResultSuccess,
		sendResult:    satellite.ResultSuccess,
	}
}

func (f *fakeEndpoint) RequestIsSupported(done func(satellite.Result, bool)) {
	f.mu.Lock()
	f.supportedQueries++
	result, supported := f.supportedResult, f.supported
	f.mu.Unlock()
	done(result, supported)
}

func (f *fakeEndpoint) RequestEnable(enable, demo bool, done func(satellite.Result)) {
	call := &fakeEnableCall{enable: enable, demo: demo, done: done}

	f.mu.Lock()
	if enable {
		f.enableCalls = append(f.enableCalls, call)
		manual := f.manualEnable
		f.mu.Unlock()
		if !manual {
			done(satellite.ResultSuccess)
		}
		return
	}

	f.disableCalls = append(f.disableCalls, call)
	manual := f.manualDisable
	f.mu.Unlock()
	if !manual {
		// A real modem acks the command, then reports OFF once it has
		// powered down.
		done(satellite.ResultSuccess)
		f.emitModemState(satellite.ModemStateOff)
	}
}

func (f *fakeEndpoint) RequestIsEnabled(done func(satellite.Result, bool)) {
	f.mu.Lock()
	f.enabledQueries++
	result, enabled := f.enabledResult, f.enabled
	f.mu.Unlock()
	done(result, enabled)
}

func (f *fakeEndpoint) RequestCapabilities(done func(satellite.Result, *satellite.Capabilities)) {
	f.mu.Lock()
	f.capsQueries++
	result := f.capsResult
	caps := f.caps
	f.mu.Unlock()
	if result.IsError() {
		done(result, nil)
		return
	}
	done(result, &caps)
}

func (f *fakeEndpoint) RequestIsProvisioned(done func(satellite.Result, bool)) {
	f.mu.Lock()
	f.provisionedQueries++
	result, provisioned := f.provisionedResult, f.provisioned
	f.mu.Unlock()
	done(result, provisioned)
}

func (f *fakeEndpoint) Provision(token string, _ []byte, done func(satellite.Result)) {
	call := &fakeProvisionCall{token: token, done: done}
	f.mu.Lock()
	f.provisionCalls = append(f.provisionCalls, call)
	manual := f.manualProvision
	f.mu.Unlock()
	if !manual {
		done(satellite.ResultSuccess)
	}
}

func (f *fakeEndpoint) Deprovision(token string, done func(satellite.Result)) {
	call := &fakeProvisionCall{token: token, done: done}
	f.mu.Lock()
	f.deprovisionCalls = append(f.deprovisionCalls, call)
	f.mu.Unlock()
	done(satellite.ResultSuccess)
}

func (f *fakeEndpoint) RequestCommunicationAllowed(done func(satellite.Result, bool)) {
	done(satellite.ResultSuccess, true)
}

func (f *fakeEndpoint) RequestTimeForNextVisibility(done func(satellite.Result, time.Duration)) {
	done(satellite.ResultSuccess, time.Minute)
}

func (f *fakeEndpoint) SetEnabledForCarrier(subID int64, enabled bool, done func(satellite.Result)) {
	f.mu.Lock()
	f.carrierCalls = append(f.carrierCalls, &fakeCarrierCall{subID: subID, enabled: enabled, done: done})
	result := f.carrierResult
	f.mu.Unlock()
	done(result)
}

func (f *fakeEndpoint) StartTransmissionUpdates(done func(satellite.Result)) {
	done(satellite.ResultSuccess)
}

func (f *fakeEndpoint) StopTransmissionUpdates(done func(satellite.Result)) {
	done(satellite.ResultSuccess)
}

func (f *fakeEndpoint) SendDatagram(_ satellite.DatagramType, _ satellite.Datagram, done func(satellite.Result)) {
	f.mu.Lock()
	f.sendCalls++
	result := f.sendResult
	f.mu.Unlock()
	done(result)
}

func (f *fakeEndpoint) PollPendingDatagrams(done func(satellite.Result)) {
	f.mu.Lock()
	f.pollCalls++
	f.mu.Unlock()
	done(satellite.ResultSuccess)
}

func (f *fakeEndpoint) Subscribe(listener modem.Listener) func() {
	f.mu.Lock()
	f.nextListID++
	id := f.nextListID
	f.listeners[id] = listener
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeEndpoint) snapshotListeners() []modem.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]modem.Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		out = append(out, l)
	}
	return out
}

func (f *fakeEndpoint) emitModemState(state satellite.ModemState) {
	for _, l := range f.snapshotListeners() {
		l.OnModemStateChanged(state)
	}
}

func (f *fakeEndpoint) emitProvisionState(provisioned bool) {
	for _, l := range f.snapshotListeners() {
		l.OnProvisionStateChanged(provisioned)
	}
}

func (f *fakeEndpoint) emitPendingDatagrams(count int) {
	for _, l := range f.snapshotListeners() {
		l.OnPendingDatagrams(count)
	}
}

func (f *fakeEndpoint) emitDatagram(dg satellite.Datagram, pending int) {
	for _, l := range f.snapshotListeners() {
		l.OnDatagramReceived(dg, pending)
	}
}

func (f *fakeEndpoint) enableTrueCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enableCalls)
}

func (f *fakeEndpoint) disableCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.disableCalls)
}

func (f *fakeEndpoint) lastEnableCall() *fakeEnableCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.enableCalls) == 0 {
		return nil
	}
	return f.enableCalls[len(f.enableCalls)-1]
}

func (f *fakeEndpoint) lastDisableCall() *fakeEnableCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.disableCalls) == 0 {
		return nil
	}
	return f.disableCalls[len(f.disableCalls)-1]
}

func (f *fakeEndpoint) carrierCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.carrierCalls)
}

func (f *fakeEndpoint) provisionCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.provisionCalls)
}

func (f *fakeEndpoint) deprovisionCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deprovisionCalls)
}

func (f *fakeEndpoint) capsQueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capsQueries
}

func (f *fakeEndpoint) pollCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pollCalls
}

var _ modem.Endpoint = (*fakeEndpoint)(nil)

// waitUntil polls until cond holds or the deadline expires.
func waitUntil(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// resultRecorder collects callback completions in order.
type resultRecorder struct {
	mu      sync.Mutex
	results []satellite.Result
}

func (r *resultRecorder) callback() Callback {
	return func(result satellite.Result) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.results = append(r.results, result)
	}
}

func (r *resultRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *resultRecorder) get(i int) satellite.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[i]
}
