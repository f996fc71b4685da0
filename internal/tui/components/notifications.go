package components

import (
	"fmt"

	"github.com/pablasso/flightpath/internal/notify"
	"github.com/pablasso/flightpath/internal/tui/styles"
)

// Notifications renders the newest notifications, one per line.
type Notifications struct {
	Items []notify.Notification
	Max   int
}

// NewNotifications creates a new Notifications instance.
func NewNotifications(items []notify.Notification, limit int) Notifications {
	return Notifications{Items: items, Max: limit}
}

// Lines returns one rendered line per visible notification, truncated to width.
func (n Notifications) Lines(width int) []string {
	items := n.Items
	if n.Max > 0 && len(items) > n.Max {
		items = items[:n.Max]
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		text := item.Message
		if item.Count > 1 {
			text = fmt.Sprintf("%s (x%d)", text, item.Count)
		}
		text = TruncateWithEllipsis(text, width-2)
		lines = append(lines, levelIcon(item.Level)+" "+text)
	}
	return lines
}

func levelIcon(level notify.Level) string {
	switch level {
	case notify.LevelSuccess:
		return styles.SuccessStyle.Render("✓")
	case notify.LevelWarning:
		return styles.WarningStyle.Render("!")
	case notify.LevelError:
		return styles.ErrorStyle.Render("✗")
	default:
		return styles.SubtleStyle.Render("•")
	}
}

// TruncateWithEllipsis shortens s to maxLen bytes, ending in "...".
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
