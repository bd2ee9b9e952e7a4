package projection

import (
	"sync/atomic"

	"github.com/solstice-app/breakout/internal/core"
)

// Metrics derives display-only counters from the projection. Nothing
// reads these for control decisions.
type Metrics struct {
	proj   *Projection
	events atomic.Uint64
}

func NewMetrics(proj *Projection) *Metrics {
	return &Metrics{proj: proj}
}

// RecordEvent counts one received event. Called before deduplication, so
// the throughput counter reflects deliveries, not folds.
func (m *Metrics) RecordEvent() {
	m.events.Add(1)
}

// MetricsSnapshot is a point-in-time reading for display.
type MetricsSnapshot struct {
	TotalRooms        int     `json:"totalRooms"`
	TotalParticipants int     `json:"totalParticipants"`
	ActiveConnections int     `json:"activeConnections"` // 0 or 1: a single client's view
	EventsReceived    uint64  `json:"eventsReceived"`
	AvgLatencyMillis  float64 `json:"avgLatencyMillis"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	rooms, participants := m.proj.counts()
	conns := 0
	if m.proj.ConnectionState() == core.StateConnected {
		conns = 1
	}
	return MetricsSnapshot{
		TotalRooms:        rooms,
		TotalParticipants: participants,
		ActiveConnections: conns,
		EventsReceived:    m.events.Load(),
		// The server does not echo send times, so there is nothing to
		// measure latency against. Placeholder until it does.
		AvgLatencyMillis: 0,
	}
}
