package supplicant

import (
	"sync/atomic"
)

// ManagerMetrics contains atomic metrics for a Manager.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ManagerMetrics struct {
	// CommandsSent indicates the number of commands issued.
	CommandsSent atomic.Uint64
	// CommandTimeouts indicates the number of commands that timed out.
	CommandTimeouts atomic.Uint64
	// CommandRejects indicates the number of commands the daemon rejected.
	CommandRejects atomic.Uint64

	// EventsReceived indicates the number of event datagrams received from
	// the monitor connection.
	EventsReceived atomic.Uint64
	// EventsSynthesized indicates the number of synthetic terminal events
	// returned by WaitEvent.
	EventsSynthesized atomic.Uint64
	// LivenessChecks indicates the number of supervisor liveness probes made
	// while waiting for events.
	LivenessChecks atomic.Uint64

	// Connects indicates the number of successful Connect calls.
	Connects atomic.Uint64
	// Disconnects indicates the number of Disconnect teardowns.
	Disconnects atomic.Uint64
}

func (m *ManagerMetrics) incCommandsSent() {
	m.CommandsSent.Add(1)
}

func (m *ManagerMetrics) incCommandTimeouts() {
	m.CommandTimeouts.Add(1)
}

func (m *ManagerMetrics) incCommandRejects() {
	m.CommandRejects.Add(1)
}

func (m *ManagerMetrics) incEventsReceived() {
	m.EventsReceived.Add(1)
}

func (m *ManagerMetrics) incEventsSynthesized() {
	m.EventsSynthesized.Add(1)
}

func (m *ManagerMetrics) incLivenessChecks() {
	m.LivenessChecks.Add(1)
}

func (m *ManagerMetrics) incConnects() {
	m.Connects.Add(1)
}

func (m *ManagerMetrics) incDisconnects() {
	m.Disconnects.Add(1)
}
