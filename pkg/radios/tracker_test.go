package radios

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestTracker_VacuouslyOff(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	if !tr.AllDependenciesOff() {
		t.Error("empty tracker should report all dependencies off")
	}

	// A radio without a dependency never blocks settling.
	tr.SetDependency(RadioWifi, false, true)
	if !tr.AllDependenciesOff() {
		t.Error("non-dependent radio should not block settling")
	}
}

func TestTracker_EdgeTriggeredNotification(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	fired := 0
	tr.OnAllOff(func() { fired++ })

	tr.SetDependency(RadioBluetooth, true, true)
	tr.SetDependency(RadioNFC, true, true)

	tr.Update(RadioBluetooth, false)
	if fired != 0 {
		t.Fatalf("notification fired with NFC still on: %d", fired)
	}
	tr.Update(RadioNFC, false)
	if fired != 1 {
		t.Fatalf("expected exactly one notification, got %d", fired)
	}
	if !tr.AllDependenciesOff() {
		t.Error("expected all dependencies off")
	}
}

func TestTracker_NoOpUpdateDoesNotNotify(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	fired := 0
	tr.OnAllOff(func() { fired++ })

	tr.SetDependency(RadioBluetooth, true, true)
	tr.Update(RadioBluetooth, false)
	if fired != 1 {
		t.Fatalf("expected one notification, got %d", fired)
	}

	// Same state reported twice: predicate already true, no new edge.
	tr.Update(RadioBluetooth, false)
	if fired != 1 {
		t.Errorf("duplicate report raised a second notification: %d", fired)
	}
}

func TestTracker_NoNotificationWhileAlreadyOff(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	fired := 0
	tr.OnAllOff(func() { fired++ })

	// Predicate is already true; turning a non-dependent radio off must
	// not produce an edge.
	tr.SetDependency(RadioWifi, false, true)
	tr.Update(RadioWifi, false)
	if fired != 0 {
		t.Errorf("expected no notification, got %d", fired)
	}
}

func TestTracker_ToggleProducesNewEdge(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	fired := 0
	tr.OnAllOff(func() { fired++ })

	tr.SetDependency(RadioBluetooth, true, true)
	tr.Update(RadioBluetooth, false)
	tr.Update(RadioBluetooth, true)
	tr.Update(RadioBluetooth, false)
	if fired != 2 {
		t.Errorf("expected two edges for two settlings, got %d", fired)
	}
}
