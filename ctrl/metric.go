package ctrl

import (
	"sync/atomic"
)

// ConnMetrics contains atomic metrics for a control connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnMetrics struct {
	// RequestCount indicates the number of commands sent.
	RequestCount atomic.Uint64
	// ReplyCount indicates the number of solicited replies received.
	ReplyCount atomic.Uint64
	// TimeoutCount indicates the number of commands that timed out.
	TimeoutCount atomic.Uint64
	// RequestErrCount indicates the number of transport-level request failures.
	RequestErrCount atomic.Uint64

	// RecvCount indicates the number of event datagrams received via Recv.
	RecvCount atomic.Uint64
	// EventSkipCount indicates the number of unsolicited events observed
	// while waiting for a solicited reply.
	EventSkipCount atomic.Uint64
}

func (m *ConnMetrics) incRequestCount() {
	m.RequestCount.Add(1)
}

func (m *ConnMetrics) incReplyCount() {
	m.ReplyCount.Add(1)
}

func (m *ConnMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *ConnMetrics) incRequestErrCount() {
	m.RequestErrCount.Add(1)
}

func (m *ConnMetrics) incRecvCount() {
	m.RecvCount.Add(1)
}

func (m *ConnMetrics) incEventSkipCount() {
	m.EventSkipCount.Add(1)
}
