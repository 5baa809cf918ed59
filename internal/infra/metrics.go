package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	messagesIn       atomic.Uint64
	ordersSubmitted  atomic.Uint64
	ordersFilled     atomic.Uint64
	reportsDelivered atomic.Uint64
	marketDataDrops  atomic.Uint64
	errorsTotal      atomic.Uint64

	// Gauges
	activeSessions atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordMessage records one inbound protocol message.
func (m *Metrics) RecordMessage() {
	m.messagesIn.Add(1)
}

// RecordOrderSubmitted records an order accepted by the pipeline.
func (m *Metrics) RecordOrderSubmitted() {
	m.ordersSubmitted.Add(1)
}

// RecordOrderFilled records a fully filled order.
func (m *Metrics) RecordOrderFilled() {
	m.ordersFilled.Add(1)
}

// RecordReportDelivered records an execution report handed to a connection.
func (m *Metrics) RecordReportDelivered() {
	m.reportsDelivered.Add(1)
}

// RecordMarketDataDrop records a market-data frame dropped on a slow
// consumer.
func (m *Metrics) RecordMarketDataDrop() {
	m.marketDataDrops.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementSessions increments active sessions by 1.
func (m *Metrics) IncrementSessions() {
	m.activeSessions.Add(1)
}

// DecrementSessions decrements active sessions by 1.
func (m *Metrics) DecrementSessions() {
	m.activeSessions.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	MessagesIn       uint64
	OrdersSubmitted  uint64
	OrdersFilled     uint64
	ReportsDelivered uint64
	MarketDataDrops  uint64
	ErrorsTotal      uint64
	ActiveSessions   int32
	Timestamp        time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		MessagesIn:       m.messagesIn.Load(),
		OrdersSubmitted:  m.ordersSubmitted.Load(),
		OrdersFilled:     m.ordersFilled.Load(),
		ReportsDelivered: m.reportsDelivered.Load(),
		MarketDataDrops:  m.marketDataDrops.Load(),
		ErrorsTotal:      m.errorsTotal.Load(),
		ActiveSessions:   m.activeSessions.Load(),
		Timestamp:        time.Now(),
	}
}
