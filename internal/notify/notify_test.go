package notify

import (
	"testing"
	"time"
)

func TestNotifyDeduplicates(t *testing.T) {
	c := NewCenter()
	c.Notify(LevelError, "Prediction failed")
	c.Notify(LevelError, "Prediction failed")
	c.Notify(LevelInfo, "Prediction failed")

	active := c.Active()
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}
	// Newest first.
	if active[0].Level != LevelInfo || active[0].Count != 1 {
		t.Errorf("active[0] = %+v", active[0])
	}
	if active[1].Level != LevelError || active[1].Count != 2 {
		t.Errorf("active[1] = %+v", active[1])
	}
}

func TestNotifyForExpires(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	c := NewCenter().WithClock(func() time.Time { return now })

	c.NotifyFor(LevelInfo, "Retrying", 5*time.Second)
	c.NotifyFor(LevelInfo, "Retrying", 5*time.Second)
	c.Notify(LevelError, "Failed")

	if got := len(c.Active()); got != 3 {
		t.Fatalf("active = %d, want 3", got)
	}

	now = now.Add(6 * time.Second)
	active := c.Active()
	if len(active) != 1 || active[0].Message != "Failed" {
		t.Fatalf("active after expiry = %+v", active)
	}
}

func TestDismissAndCloseAll(t *testing.T) {
	c := NewCenter()
	c.Notify(LevelInfo, "a")
	c.Notify(LevelInfo, "b")

	id := c.Active()[0].ID
	if !c.Dismiss(id) {
		t.Fatal("Dismiss returned false")
	}
	if c.Dismiss(id) {
		t.Error("second Dismiss should return false")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.CloseAll()
	if c.Len() != 0 {
		t.Errorf("Len after CloseAll = %d", c.Len())
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarning.String() != "warning" {
		t.Errorf("LevelWarning = %q", LevelWarning.String())
	}
	if Level(42).String() != "unknown" {
		t.Errorf("Level(42) = %q", Level(42).String())
	}
}
