package delivery

import (
	"fmt"
	"time"
)

// DefaultLateAfter is how long a delivery may take before it is flagged.
const DefaultLateAfter = 45 * time.Minute

var stateColors = map[State]string{
	StatePending:   "#ffc107",
	StatePreparing: "#17a2b8",
	StateReady:     "#007bff",
	StateEnRoute:   "#6f42c1",
	StateDelivered: "#28a745",
	StateCancelled: "#dc3545",
}

// Elapsed renders the time since the order was taken as "15 min" or "1h 30min".
func Elapsed(d Delivery, now time.Time) string {
	minutes := int(now.Sub(d.OrderedAt) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
}

// IsLate reports whether an open delivery has taken longer than DefaultLateAfter.
func IsLate(d Delivery, now time.Time) bool {
	return lateAfter(d, now, DefaultLateAfter)
}

func lateAfter(d Delivery, now time.Time, limit time.Duration) bool {
	if d.State.IsTerminal() {
		return false
	}
	minutes := int(now.Sub(d.OrderedAt) / time.Minute)
	return minutes > int(limit/time.Minute)
}

// StateColor is the badge color of a state.
func StateColor(s State) string {
	if c, ok := stateColors[s]; ok {
		return c
	}
	return "#6c757d"
}
