// Package notify keeps the user-facing notification list shown beside a
// prediction sweep.
package notify

import (
	"sync"
	"time"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is one entry. Count tracks how many times an identical
// sticky notification was raised.
type Notification struct {
	ID      int
	Level   Level
	Message string
	Count   int
	Created time.Time
	// Expires is zero for sticky notifications.
	Expires time.Time
}

// Center collects notifications. It is safe for concurrent use.
type Center struct {
	mu     sync.Mutex
	items  []*Notification
	nextID int
	now    func() time.Time
}

func NewCenter() *Center {
	return &Center{now: time.Now}
}

// WithClock overrides the time source.
func (c *Center) WithClock(now func() time.Time) *Center {
	c.now = now
	return c
}

// Notify raises a sticky notification. Raising the same level and message
// again bumps the existing entry's count instead of adding a new one.
func (c *Center) Notify(level Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.items {
		if n.Expires.IsZero() && n.Level == level && n.Message == msg {
			n.Count++
			return
		}
	}
	c.add(level, msg, time.Time{})
}

// NotifyFor raises a notification that disappears after ttl. Timed
// notifications stack rather than merge.
func (c *Center) NotifyFor(level Level, msg string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.add(level, msg, c.now().Add(ttl))
}

func (c *Center) add(level Level, msg string, expires time.Time) {
	c.nextID++
	c.items = append(c.items, &Notification{
		ID:      c.nextID,
		Level:   level,
		Message: msg,
		Count:   1,
		Created: c.now(),
		Expires: expires,
	})
}

// Active drops expired notifications and returns the rest, newest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	kept := c.items[:0]
	for _, n := range c.items {
		if n.Expires.IsZero() || now.Before(n.Expires) {
			kept = append(kept, n)
		}
	}
	c.items = kept

	out := make([]Notification, 0, len(kept))
	for i := len(kept) - 1; i >= 0; i-- {
		out = append(out, *kept[i])
	}
	return out
}

// Dismiss closes one notification.
func (c *Center) Dismiss(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// CloseAll removes every notification.
func (c *Center) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
}

// Len returns the number of notifications, expired ones included.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
