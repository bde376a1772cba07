package clock

import (
	"testing"
	"time"
)

func TestFakeClock_Advance(t *testing.T) {
	c := Fake()
	start := c.Now()

	c.Advance(time.Hour)

	if got := c.Now().Sub(start); got != time.Hour {
		t.Fatalf("Now moved by %v, want %v", got, time.Hour)
	}
}

func TestFakeClock_After(t *testing.T) {
	c := Fake()
	ch := c.After(time.Minute)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(time.Minute)

	select {
	case <-ch:
	default:
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeClock_AfterZero(t *testing.T) {
	c := Fake()
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFakeClock_Ticker(t *testing.T) {
	c := Fake()
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	c.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire")
	}

	c.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire on second interval")
	}
}

func TestFakeClock_TickerStop(t *testing.T) {
	c := Fake()
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(2 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestRealClock_Now(t *testing.T) {
	c := Real()
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Fatalf("Real Now = %v, want between %v and %v", got, before, after)
	}
}
