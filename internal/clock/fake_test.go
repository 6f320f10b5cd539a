package clock

import (
	"testing"
	"time"
)

func TestFake_AdvanceFiresInOrder(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	var fired []int
	clk.AfterFunc(2*time.Second, func() { fired = append(fired, 2) })
	clk.AfterFunc(time.Second, func() { fired = append(fired, 1) })
	clk.AfterFunc(5*time.Second, func() { fired = append(fired, 5) })

	clk.Advance(3 * time.Second)

	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Fatalf("fired = %v, want [1 2]", fired)
	}
	if clk.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", clk.Pending())
	}
	if got := clk.Now(); !got.Equal(time.Unix(3, 0)) {
		t.Errorf("Now() = %v, want %v", got, time.Unix(3, 0))
	}
}

func TestFake_Stop(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	called := false
	timer := clk.AfterFunc(time.Second, func() { called = true })

	if !timer.Stop() {
		t.Error("first Stop() = false, want true")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	clk.Advance(time.Minute)
	if called {
		t.Error("stopped timer fired")
	}
	if clk.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", clk.Pending())
	}
}

func TestFake_RescheduleWithinAdvance(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	count := 0
	var tick func()
	tick = func() {
		count++
		clk.AfterFunc(time.Second, tick)
	}
	clk.AfterFunc(time.Second, tick)

	clk.Advance(3500 * time.Millisecond)

	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	d, ok := clk.NextDue()
	if !ok || d != 500*time.Millisecond {
		t.Errorf("NextDue() = %v, %v, want 500ms, true", d, ok)
	}
}
