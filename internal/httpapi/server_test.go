package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/satcom-control/satcom-go/pkg/controller"
	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/persistence"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	endpoint := modem.NewSimulated(modem.SimConfig{
		Supported:   true,
		Provisioned: true,
		Capabilities: satellite.Capabilities{
			Technologies:        []satellite.RadioTechnology{satellite.TechnologyProprietary},
			MaxBytesPerDatagram: 255,
		},
		CommunicationAllowed: true,
		NextVisibility:       time.Minute,
	})

	c, err := controller.New(controller.Deps{
		Endpoint: endpoint,
		Store:    persistence.NewMemory(),
		Log:      zerolog.Nop(),
	}, controller.Config{})
	if err != nil {
		t.Fatalf("controller.New failed: %v", err)
	}
	c.Start()
	t.Cleanup(c.Close)

	// Let bring-up settle so status reads are deterministic.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := c.Snapshot()
		if snap.Enabled != nil {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	srv := httptest.NewServer(NewHandler(c, zerolog.Nop(), nil))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decoding %s response: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, into any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decoding %s response: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var status statusResponse
	if code := getJSON(t, srv.URL+"/v1/status", &status); code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", code)
	}
	if status.Supported == nil || !*status.Supported {
		t.Error("status.supported not true after bring-up")
	}
	if status.Enabled == nil || *status.Enabled {
		t.Error("status.enabled not false after bring-up")
	}
	if status.ModemState != "OFF" {
		t.Errorf("status.modem_state = %q, want OFF", status.ModemState)
	}
}

func TestEnableRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]any
	code := postJSON(t, srv.URL+"/v1/enable", enableRequest{Enable: true}, &body)
	if code != http.StatusOK {
		t.Fatalf("enable status = %d, body %v", code, body)
	}
	if body["result"] != "SUCCESS" {
		t.Errorf("enable result = %v, want SUCCESS", body["result"])
	}

	var enabled map[string]any
	if code := getJSON(t, srv.URL+"/v1/enabled", &enabled); code != http.StatusOK {
		t.Fatalf("enabled status = %d", code)
	}
	if enabled["enabled"] != true {
		t.Errorf("enabled = %v, want true", enabled["enabled"])
	}

	code = postJSON(t, srv.URL+"/v1/enable", enableRequest{Enable: false}, &body)
	if code != http.StatusOK || body["result"] != "SUCCESS" {
		t.Errorf("disable = (%d, %v), want (200, SUCCESS)", code, body["result"])
	}
}

func TestEnableDemoMismatchMapsToBadRequest(t *testing.T) {
	srv := newTestServer(t)

	if code := postJSON(t, srv.URL+"/v1/enable", enableRequest{Enable: true}, nil); code != http.StatusOK {
		t.Fatalf("enable status = %d", code)
	}

	var body map[string]any
	code := postJSON(t, srv.URL+"/v1/enable", enableRequest{Enable: true, Demo: true}, &body)
	if code != http.StatusBadRequest {
		t.Errorf("demo mismatch status = %d, want 400", code)
	}
	if body["result"] != "INVALID_ARGUMENTS" {
		t.Errorf("result = %v, want INVALID_ARGUMENTS", body["result"])
	}
}

func TestCapabilitiesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var caps satellite.Capabilities
	if code := getJSON(t, srv.URL+"/v1/capabilities", &caps); code != http.StatusOK {
		t.Fatalf("capabilities status = %d", code)
	}
	if caps.MaxBytesPerDatagram != 255 {
		t.Errorf("max_bytes_per_datagram = %d, want 255", caps.MaxBytesPerDatagram)
	}
}

func TestVisibilityEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var vis visibilityResponse
	if code := getJSON(t, srv.URL+"/v1/visibility", &vis); code != http.StatusOK {
		t.Fatalf("visibility status = %d", code)
	}
	if !vis.CommunicationAllowed {
		t.Error("communication_allowed = false, want true")
	}
	if vis.NextVisibilityMillis != time.Minute.Milliseconds() {
		t.Errorf("next_visibility_ms = %d, want %d", vis.NextVisibilityMillis, time.Minute.Milliseconds())
	}
}

func TestRestrictionRoutes(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/subscriptions/7/restrictions/geolocation", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add restriction status = %d, want 200", resp.StatusCode)
	}

	var listing map[string][]string
	if code := getJSON(t, srv.URL+"/v1/subscriptions/7/restrictions", &listing); code != http.StatusOK {
		t.Fatalf("list restrictions status = %d", code)
	}
	if got := listing["restrictions"]; len(got) != 1 || got[0] != "GEOLOCATION" {
		t.Errorf("restrictions = %v, want [GEOLOCATION]", got)
	}

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/v1/subscriptions/7/restrictions/geolocation", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove restriction status = %d, want 200", resp.StatusCode)
	}
}

func TestDatagramWithoutSessionConflicts(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]any
	code := postJSON(t, srv.URL+"/v1/datagrams", datagramRequest{Type: "SOS", Payload: []byte("x")}, &body)
	if code != http.StatusConflict {
		t.Errorf("datagram status = %d, want 409", code)
	}
	if body["result"] != "INVALID_STATE" {
		t.Errorf("result = %v, want INVALID_STATE", body["result"])
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/enable", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid body status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	if code := getJSON(t, srv.URL+"/healthz", nil); code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", code)
	}
}
