package controller

import (
	"testing"

	"github.com/satcom-control/satcom-go/pkg/persistence"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

func TestDesiredEnabled(t *testing.T) {
	cases := []struct {
		userAllowed, noRestrictions, carrierSupported bool
		want                                          bool
	}{
		{true, true, true, true},
		{false, true, true, false},
		{true, false, true, false},
		{true, true, false, false},
		{false, false, false, false},
	}
	for _, tc := range cases {
		got := desiredEnabled(tc.userAllowed, tc.noRestrictions, tc.carrierSupported)
		if got != tc.want {
			t.Errorf("desiredEnabled(%v, %v, %v) = %v, want %v",
				tc.userAllowed, tc.noRestrictions, tc.carrierSupported, got, tc.want)
		}
	}
}

func TestCarrierSupportTriggersAttach(t *testing.T) {
	env := newTestEnv(t, nil)

	env.c.SetCarrierSupported(testSubID, true)
	waitUntil(t, "attach command", func() bool { return env.fake.carrierCallCount() == 1 })

	env.fake.mu.Lock()
	call := env.fake.carrierCalls[0]
	env.fake.mu.Unlock()
	if call.subID != testSubID || !call.enabled {
		t.Errorf("carrier command = (sub %d, enabled %v), want (sub %d, enabled true)",
			call.subID, call.enabled, testSubID)
	}

	// Nothing changed, so a repeat evaluation stays quiet.
	env.c.SetCarrierSupported(testSubID, true)
	env.flush(t)
	if calls := env.fake.carrierCallCount(); calls != 1 {
		t.Errorf("carrier commands = %d, want 1", calls)
	}
}

func TestRestrictionRoundTripWithoutCarrierSupport(t *testing.T) {
	env := newTestEnv(t, nil)

	add := &resultRecorder{}
	env.c.AddAttachRestriction(testSubID, satellite.RestrictionGeolocation, add.callback())
	waitUntil(t, "add completion", func() bool { return add.count() == 1 })
	if got := add.get(0); got != satellite.ResultSuccess {
		t.Errorf("add result = %v, want SUCCESS", got)
	}

	remove := &resultRecorder{}
	env.c.RemoveAttachRestriction(testSubID, satellite.RestrictionGeolocation, remove.callback())
	waitUntil(t, "remove completion", func() bool { return remove.count() == 1 })
	if got := remove.get(0); got != satellite.ResultSuccess {
		t.Errorf("remove result = %v, want SUCCESS", got)
	}

	// The modem never attached, so the round trip issues no commands.
	if calls := env.fake.carrierCallCount(); calls != 0 {
		t.Errorf("carrier commands = %d, want 0", calls)
	}
}

func TestUserRestrictionPersistsAndDetaches(t *testing.T) {
	env := newTestEnv(t, nil)

	env.c.SetCarrierSupported(testSubID, true)
	waitUntil(t, "attach command", func() bool { return env.fake.carrierCallCount() == 1 })

	add := &resultRecorder{}
	env.c.AddAttachRestriction(testSubID, satellite.RestrictionUser, add.callback())
	waitUntil(t, "detach completion", func() bool { return add.count() == 1 })
	if got := add.get(0); got != satellite.ResultSuccess {
		t.Errorf("add result = %v, want SUCCESS", got)
	}
	if value, err := env.store.Get(testSubID, persistence.KeyAttachEnabled); err != nil || value != "false" {
		t.Errorf("persisted attach flag = (%q, %v), want (\"false\", nil)", value, err)
	}
	if calls := env.fake.carrierCallCount(); calls != 2 {
		t.Fatalf("carrier commands = %d, want 2", calls)
	}
	env.fake.mu.Lock()
	detach := env.fake.carrierCalls[1]
	env.fake.mu.Unlock()
	if detach.enabled {
		t.Error("second carrier command enabled = true, want false")
	}

	remove := &resultRecorder{}
	env.c.RemoveAttachRestriction(testSubID, satellite.RestrictionUser, remove.callback())
	waitUntil(t, "re-attach completion", func() bool { return remove.count() == 1 })
	if value, err := env.store.Get(testSubID, persistence.KeyAttachEnabled); err != nil || value != "true" {
		t.Errorf("persisted attach flag = (%q, %v), want (\"true\", nil)", value, err)
	}
	if calls := env.fake.carrierCallCount(); calls != 3 {
		t.Fatalf("carrier commands = %d, want 3", calls)
	}
}

func TestDuplicateRestrictionIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)

	env.c.SetCarrierSupported(testSubID, true)
	waitUntil(t, "attach command", func() bool { return env.fake.carrierCallCount() == 1 })

	first := &resultRecorder{}
	env.c.AddAttachRestriction(testSubID, satellite.RestrictionGeolocation, first.callback())
	waitUntil(t, "detach", func() bool { return first.count() == 1 })

	second := &resultRecorder{}
	env.c.AddAttachRestriction(testSubID, satellite.RestrictionGeolocation, second.callback())
	waitUntil(t, "duplicate completion", func() bool { return second.count() == 1 })
	if got := second.get(0); got != satellite.ResultSuccess {
		t.Errorf("duplicate add result = %v, want SUCCESS", got)
	}
	if calls := env.fake.carrierCallCount(); calls != 2 {
		t.Errorf("carrier commands = %d, want 2", calls)
	}

	reasons := env.c.AttachRestrictions(testSubID)
	if len(reasons) != 1 || reasons[0] != satellite.RestrictionGeolocation {
		t.Errorf("restrictions = %v, want [GEOLOCATION]", reasons)
	}
}

func TestCarrierCommandRecordsOneMetricsEvent(t *testing.T) {
	env := newTestEnv(t, nil)

	env.c.SetCarrierSupported(testSubID, true)
	waitUntil(t, "attach command", func() bool { return env.fake.carrierCallCount() == 1 })

	add := &resultRecorder{}
	env.c.AddAttachRestriction(testSubID, satellite.RestrictionGeolocation, add.callback())
	waitUntil(t, "detach completion", func() bool { return add.count() == 1 })

	// One event per command that reached the hardware, none for the
	// short-circuited repeat evaluation.
	env.c.SetCarrierSupported(testSubID, false)
	env.flush(t)
	if calls := env.fake.carrierCallCount(); calls != 2 {
		t.Fatalf("carrier commands = %d, want 2", calls)
	}
	if got := env.sink.Count("carrier_attach"); got != 2 {
		t.Errorf("carrier_attach metrics events = %d, want 2", got)
	}
}

func TestUserRestrictionPersistFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.FailSets = true

	rec := &resultRecorder{}
	env.c.AddAttachRestriction(testSubID, satellite.RestrictionUser, rec.callback())
	waitUntil(t, "failure completion", func() bool { return rec.count() == 1 })

	if got := rec.get(0); got != satellite.ResultInvalidState {
		t.Errorf("add result = %v, want INVALID_STATE", got)
	}
	if calls := env.fake.carrierCallCount(); calls != 0 {
		t.Errorf("carrier commands = %d, want 0", calls)
	}
	if reasons := env.c.AttachRestrictions(testSubID); len(reasons) != 0 {
		t.Errorf("restrictions = %v, want empty after revert", reasons)
	}
}

func TestCarrierCommandRejectionRearmsDispatch(t *testing.T) {
	env := newTestEnv(t, func(f *fakeEndpoint) {
		f.carrierResult = satellite.ResultError
	})

	env.c.SetCarrierSupported(testSubID, true)
	waitUntil(t, "first attach attempt", func() bool { return env.fake.carrierCallCount() == 1 })

	// The rejection evicted the mirror, so the same evaluation dispatches
	// again.
	env.c.SetCarrierSupported(testSubID, true)
	waitUntil(t, "retry attempt", func() bool { return env.fake.carrierCallCount() == 2 })

	env.fake.mu.Lock()
	env.fake.carrierResult = satellite.ResultSuccess
	env.fake.mu.Unlock()

	env.c.SetCarrierSupported(testSubID, true)
	waitUntil(t, "successful attach", func() bool { return env.fake.carrierCallCount() == 3 })

	// With the mirror recorded, further evaluations stay quiet.
	env.c.SetCarrierSupported(testSubID, true)
	env.flush(t)
	if calls := env.fake.carrierCallCount(); calls != 3 {
		t.Errorf("carrier commands = %d, want 3", calls)
	}
}
