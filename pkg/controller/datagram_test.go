package controller

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/satcom-control/satcom-go/pkg/satellite"
)

func TestSendDatagramRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := &resultRecorder{}
	env.c.SendDatagram(satellite.DatagramLocationSharing, satellite.Datagram{Payload: []byte("hi")}, rec.callback())

	waitUntil(t, "rejection", func() bool { return rec.count() == 1 })
	if got := rec.get(0); got != satellite.ResultInvalidState {
		t.Errorf("result = %v, want INVALID_STATE", got)
	}
	env.fake.mu.Lock()
	sends := env.fake.sendCalls
	env.fake.mu.Unlock()
	if sends != 0 {
		t.Errorf("send commands = %d, want 0", sends)
	}
}

func TestSendDatagramEnforcesSizeLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	env.enableSession(t)

	oversize := satellite.Datagram{Payload: make([]byte, 256)}
	rec := &resultRecorder{}
	env.c.SendDatagram(satellite.DatagramLocationSharing, oversize, rec.callback())

	waitUntil(t, "rejection", func() bool { return rec.count() == 1 })
	if got := rec.get(0); got != satellite.ResultInvalidArguments {
		t.Errorf("result = %v, want INVALID_ARGUMENTS", got)
	}
}

func TestSendDatagramSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	env.enableSession(t)

	rec := &resultRecorder{}
	env.c.SendDatagram(satellite.DatagramLocationSharing, satellite.Datagram{Payload: []byte("position")}, rec.callback())

	waitUntil(t, "completion", func() bool { return rec.count() == 1 })
	if got := rec.get(0); got != satellite.ResultSuccess {
		t.Errorf("result = %v, want SUCCESS", got)
	}
	if got := env.sink.Count("datagram"); got != 1 {
		t.Errorf("datagram metrics events = %d, want 1", got)
	}
}

func TestSOSDatagramRaisesFullScreenPointing(t *testing.T) {
	env := newTestEnv(t, func(f *fakeEndpoint) {
		f.caps.PointingRequired = true
	})
	env.enableSession(t)

	fullBase := env.point.FullScreenStarts()

	rec := &resultRecorder{}
	env.c.SendDatagram(satellite.DatagramSOS, satellite.Datagram{Payload: []byte("sos")}, rec.callback())

	waitUntil(t, "completion", func() bool { return rec.count() == 1 })
	if got := env.point.FullScreenStarts() - fullBase; got != 1 {
		t.Errorf("full screen UI starts = %d, want 1", got)
	}
}

// datagramRecorder collects inbound datagram deliveries.
type datagramRecorder struct {
	mu        sync.Mutex
	datagrams []satellite.Datagram
	fail      bool
}

func (r *datagramRecorder) OnDatagramReceived(dg satellite.Datagram, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datagrams = append(r.datagrams, dg)
	if r.fail {
		return errors.New("listener transport gone")
	}
	return nil
}

func (r *datagramRecorder) received() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.datagrams)
}

func (r *datagramRecorder) last() satellite.Datagram {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.datagrams[len(r.datagrams)-1]
}

func TestInboundDatagramDelivery(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := &datagramRecorder{}
	env.c.RegisterDatagramListener(rec)

	payload := []byte{0xde, 0xad}
	env.fake.emitDatagram(satellite.Datagram{Payload: payload}, 0)

	waitUntil(t, "delivery", func() bool { return rec.received() == 1 })
	if !bytes.Equal(rec.last().Payload, payload) {
		t.Errorf("delivered payload = %x, want %x", rec.last().Payload, payload)
	}
}

func TestPendingDatagramsTriggersInternalPoll(t *testing.T) {
	env := newTestEnv(t, nil)

	env.fake.emitPendingDatagrams(3)

	waitUntil(t, "internal poll", func() bool { return env.fake.pollCallCount() == 1 })
}

func TestPollPendingDatagrams(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := &resultRecorder{}
	env.c.PollPendingDatagrams(rec.callback())

	waitUntil(t, "completion", func() bool { return rec.count() == 1 })
	if got := rec.get(0); got != satellite.ResultSuccess {
		t.Errorf("result = %v, want SUCCESS", got)
	}
	if env.fake.pollCallCount() != 1 {
		t.Errorf("poll commands = %d, want 1", env.fake.pollCallCount())
	}
}

func TestErroringListenerIsDropped(t *testing.T) {
	env := newTestEnv(t, nil)

	failing := &datagramRecorder{fail: true}
	healthy := &datagramRecorder{}
	env.c.RegisterDatagramListener(failing)
	env.c.RegisterDatagramListener(healthy)

	env.fake.emitDatagram(satellite.Datagram{Payload: []byte{1}}, 0)
	waitUntil(t, "first delivery", func() bool {
		return failing.received() == 1 && healthy.received() == 1
	})

	env.fake.emitDatagram(satellite.Datagram{Payload: []byte{2}}, 0)
	waitUntil(t, "second delivery", func() bool { return healthy.received() == 2 })

	if failing.received() != 1 {
		t.Errorf("dropped listener deliveries = %d, want 1", failing.received())
	}
}

func TestUnregisterDatagramListener(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := &datagramRecorder{}
	id := env.c.RegisterDatagramListener(rec)
	env.c.UnregisterDatagramListener(id)

	env.fake.emitDatagram(satellite.Datagram{Payload: []byte{1}}, 0)
	env.flush(t)

	if rec.received() != 0 {
		t.Errorf("deliveries after unregister = %d, want 0", rec.received())
	}
}
