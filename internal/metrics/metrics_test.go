package metrics

import (
	"testing"
)

func TestCountersMirror(t *testing.T) {
	Init()
	before := Snapshot()

	IncrementCycleSuccess()
	IncrementCycleError()
	IncrementVenueError("binance")
	IncrementBroadcast()
	SetSubscribers(3)

	after := Snapshot()
	if after.CycleSuccess != before.CycleSuccess+1 {
		t.Fatalf("cycle success = %d, want %d", after.CycleSuccess, before.CycleSuccess+1)
	}
	if after.CycleErrors != before.CycleErrors+1 {
		t.Fatalf("cycle errors = %d, want %d", after.CycleErrors, before.CycleErrors+1)
	}
	if after.VenueErrors != before.VenueErrors+1 {
		t.Fatalf("venue errors = %d, want %d", after.VenueErrors, before.VenueErrors+1)
	}
	if after.Broadcasts != before.Broadcasts+1 {
		t.Fatalf("broadcasts = %d, want %d", after.Broadcasts, before.Broadcasts+1)
	}
	if after.Subscribers != 3 {
		t.Fatalf("subscribers = %d, want 3", after.Subscribers)
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()
}
