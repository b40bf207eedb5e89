package server

import "sync/atomic"

type telemetryCounters struct {
	connects          atomic.Uint64
	disconnects       atomic.Uint64
	fanoutCalls       atomic.Uint64
	fanoutDeliveries  atomic.Uint64
	bytesSent         atomic.Uint64
	messagesSent      atomic.Uint64
	suppressedSends   atomic.Uint64
	discardedPayloads atomic.Uint64
}

// TelemetrySnapshot is the JSON form of the coordinator's counters.
type TelemetrySnapshot struct {
	Connects          uint64 `json:"connects"`
	Disconnects       uint64 `json:"disconnects"`
	FanoutCalls       uint64 `json:"fanoutCalls"`
	FanoutDeliveries  uint64 `json:"fanoutDeliveries"`
	BytesSent         uint64 `json:"bytesSent"`
	MessagesSent      uint64 `json:"messagesSent"`
	SuppressedSends   uint64 `json:"suppressedSends"`
	DiscardedPayloads uint64 `json:"discardedPayloads"`
}

func newTelemetryCounters() *telemetryCounters {
	return &telemetryCounters{}
}

func (t *telemetryCounters) RecordConnect() {
	t.connects.Add(1)
}

func (t *telemetryCounters) RecordDisconnect() {
	t.disconnects.Add(1)
}

func (t *telemetryCounters) RecordFanout(deliveries int) {
	t.fanoutCalls.Add(1)
	if deliveries > 0 {
		t.fanoutDeliveries.Add(uint64(deliveries))
	}
}

func (t *telemetryCounters) RecordSend(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	t.messagesSent.Add(1)
	t.bytesSent.Add(uint64(bytes))
}

func (t *telemetryCounters) RecordSuppressedSend() {
	t.suppressedSends.Add(1)
}

func (t *telemetryCounters) RecordDiscardedPayload() {
	t.discardedPayloads.Add(1)
}

func (t *telemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		Connects:          t.connects.Load(),
		Disconnects:       t.disconnects.Load(),
		FanoutCalls:       t.fanoutCalls.Load(),
		FanoutDeliveries:  t.fanoutDeliveries.Load(),
		BytesSent:         t.bytesSent.Load(),
		MessagesSent:      t.messagesSent.Load(),
		SuppressedSends:   t.suppressedSends.Load(),
		DiscardedPayloads: t.discardedPayloads.Load(),
	}
}
