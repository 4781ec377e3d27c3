package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := time.Now()
	now := c.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v, before %v", now, before)
	}
	if c.Since(before) < 0 {
		t.Error("Since() should not be negative")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2005, 6, 15, 7, 50, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(15 * time.Minute)
	if got := c.Since(start); got != 15*time.Minute {
		t.Errorf("Since() = %v, want 15m", got)
	}
	later := start.Add(time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", c.Now(), later)
	}
}
