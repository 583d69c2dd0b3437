package notify

import (
	"testing"
	"time"
)

func TestShowAndAutoDismiss(t *testing.T) {
	clock := NewManualScheduler()
	changes := 0
	n := New(2*time.Second, clock, func() { changes++ })

	n.Show("Attention", "You are registered")
	st := n.State()
	if !st.Visible || st.Title != "Attention" || st.Body != "You are registered" {
		t.Fatalf("unexpected state after Show: %+v", st)
	}

	clock.Advance(1999 * time.Millisecond)
	if !n.State().Visible {
		t.Fatal("notification closed before its delay")
	}

	clock.Advance(time.Millisecond)
	if n.State().Visible {
		t.Fatal("notification should be closed after the delay")
	}
	if changes != 1 {
		t.Errorf("expected 1 change callback, got %d", changes)
	}
	if n.State().Body != "You are registered" {
		t.Error("dismissal should keep the last body")
	}
}

func TestOverlappingShowsRaceOnDismissal(t *testing.T) {
	clock := NewManualScheduler()
	n := New(2*time.Second, clock, nil)

	n.Show("Error", "first")
	clock.Advance(1500 * time.Millisecond)
	n.Show("Attention", "second")

	// The first trigger's timer closes the second notification early.
	clock.Advance(500 * time.Millisecond)
	st := n.State()
	if st.Visible {
		t.Fatal("expected the first timer to close the newer notification")
	}
	if st.Title != "Attention" || st.Body != "second" {
		t.Errorf("expected last content to remain, got %+v", st)
	}
	if clock.Pending() != 1 {
		t.Errorf("expected the second timer still pending, got %d", clock.Pending())
	}
}

func TestDismissAndStop(t *testing.T) {
	clock := NewManualScheduler()
	calls := 0
	n := New(4*time.Second, clock, func() { calls++ })

	n.Show("Attention", "saved")
	n.Dismiss()
	if n.State().Visible {
		t.Fatal("Dismiss should hide the notification")
	}

	n.Show("Attention", "saved again")
	n.Stop()
	if clock.Pending() != 0 {
		t.Fatalf("Stop should cancel pending timers, %d left", clock.Pending())
	}
	clock.Advance(10 * time.Second)
	if !n.State().Visible {
		t.Error("a stopped notification is left as is")
	}
	if calls != 0 {
		t.Errorf("no callback expected after Stop, got %d", calls)
	}
	if n.Delay() != 4*time.Second {
		t.Errorf("unexpected delay %v", n.Delay())
	}
}

func TestRealSchedulerFires(t *testing.T) {
	done := make(chan struct{})
	RealScheduler{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real scheduler did not fire")
	}
}
