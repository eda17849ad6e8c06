package remote

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

const testTimeout = 5 * time.Second

// startTestServer serves a simulated modem on a loopback listener and
// returns a connected client.
func startTestServer(t *testing.T, cfg modem.SimConfig) (*Client, *modem.Simulated) {
	t.Helper()

	sim := modem.NewSimulated(cfg)
	server := NewServer(sim, zerolog.Nop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	go server.Serve(ln)
	t.Cleanup(func() { server.Close() })

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	client := NewClient(conn, zerolog.Nop())
	t.Cleanup(func() { client.Close() })

	return client, sim
}

func TestClientSupportedQuery(t *testing.T) {
	client, _ := startTestServer(t, modem.SimConfig{Supported: true})

	type answer struct {
		result    satellite.Result
		supported bool
	}
	got := make(chan answer, 1)
	client.RequestIsSupported(func(result satellite.Result, supported bool) {
		got <- answer{result, supported}
	})

	select {
	case a := <-got:
		if !a.result.IsSuccess() {
			t.Errorf("result = %v, want success", a.result)
		}
		if !a.supported {
			t.Error("supported = false, want true")
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for completion")
	}
}

func TestClientCapabilitiesQuery(t *testing.T) {
	caps := satellite.Capabilities{
		Technologies:        []satellite.RadioTechnology{satellite.TechnologyProprietary},
		PointingRequired:    true,
		MaxBytesPerDatagram: 255,
	}
	client, _ := startTestServer(t, modem.SimConfig{Supported: true, Capabilities: caps})

	got := make(chan *satellite.Capabilities, 1)
	client.RequestCapabilities(func(result satellite.Result, caps *satellite.Capabilities) {
		if !result.IsSuccess() {
			t.Errorf("result = %v, want success", result)
		}
		got <- caps
	})

	select {
	case c := <-got:
		if c == nil {
			t.Fatal("capabilities = nil")
		}
		if !c.PointingRequired {
			t.Error("PointingRequired = false, want true")
		}
		if c.MaxBytesPerDatagram != 255 {
			t.Errorf("MaxBytesPerDatagram = %d, want 255", c.MaxBytesPerDatagram)
		}
		if !c.SupportsTechnology(satellite.TechnologyProprietary) {
			t.Error("missing proprietary technology")
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for completion")
	}
}

// eventRecorder collects modem state events for test assertions.
type eventRecorder struct {
	states chan satellite.ModemState
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{states: make(chan satellite.ModemState, 8)}
}

func (r *eventRecorder) OnProvisionStateChanged(bool)               {}
func (r *eventRecorder) OnPendingDatagrams(int)                     {}
func (r *eventRecorder) OnDatagramReceived(satellite.Datagram, int) {}
func (r *eventRecorder) OnTransmissionUpdate(satellite.PointingInfo) {}

func (r *eventRecorder) OnModemStateChanged(state satellite.ModemState) {
	r.states <- state
}

func TestClientReceivesEvents(t *testing.T) {
	client, _ := startTestServer(t, modem.SimConfig{Supported: true})

	rec := newEventRecorder()
	unsubscribe := client.Subscribe(rec)
	defer unsubscribe()

	done := make(chan satellite.Result, 1)
	client.RequestEnable(true, false, func(result satellite.Result) {
		done <- result
	})

	select {
	case result := <-done:
		if !result.IsSuccess() {
			t.Fatalf("enable result = %v, want success", result)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for enable completion")
	}

	select {
	case state := <-rec.states:
		if state != satellite.ModemStateIdle {
			t.Errorf("state = %v, want idle", state)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for modem state event")
	}
}

func TestClientProvisionRoundTrip(t *testing.T) {
	client, _ := startTestServer(t, modem.SimConfig{Supported: true})

	done := make(chan satellite.Result, 1)
	client.Provision("token-1", []byte{0x01, 0x02}, func(result satellite.Result) {
		done <- result
	})
	select {
	case result := <-done:
		if !result.IsSuccess() {
			t.Fatalf("provision result = %v, want success", result)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for provision completion")
	}

	type answer struct {
		result      satellite.Result
		provisioned bool
	}
	got := make(chan answer, 1)
	client.RequestIsProvisioned(func(result satellite.Result, provisioned bool) {
		got <- answer{result, provisioned}
	})
	select {
	case a := <-got:
		if !a.result.IsSuccess() || !a.provisioned {
			t.Errorf("provisioned query = (%v, %v), want (success, true)", a.result, a.provisioned)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for provisioned query")
	}
}

func TestClientClosedCompletesWithError(t *testing.T) {
	client, _ := startTestServer(t, modem.SimConfig{Supported: true})
	client.Close()

	done := make(chan satellite.Result, 1)
	client.RequestEnable(true, false, func(result satellite.Result) {
		done <- result
	})

	select {
	case result := <-done:
		if result != satellite.ResultError {
			t.Errorf("result = %v, want error", result)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for completion")
	}
}

func TestClientConnectionLossReportsUnavailable(t *testing.T) {
	client, _ := startTestServer(t, modem.SimConfig{Supported: true})

	rec := newEventRecorder()
	unsubscribe := client.Subscribe(rec)
	defer unsubscribe()

	client.Close()

	select {
	case state := <-rec.states:
		if state != satellite.ModemStateUnavailable {
			t.Errorf("state = %v, want unavailable", state)
		}
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for unavailable event")
	}
}
