// Package observability holds lightweight in-process counters for the
// model-backed endpoints. Counters are monotonic since process start.
package observability

import (
	"sync/atomic"
	"time"
)

// Metrics counts model gateway usage and failures.
type Metrics struct {
	startTime time.Time

	chatTurns      atomic.Int64
	modelErrors    atomic.Int64
	transcriptions atomic.Int64
	syntheses      atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) RecordChatTurn()      { m.chatTurns.Add(1) }
func (m *Metrics) RecordModelError()    { m.modelErrors.Add(1) }
func (m *Metrics) RecordTranscription() { m.transcriptions.Add(1) }
func (m *Metrics) RecordSynthesis()     { m.syntheses.Add(1) }

// Snapshot is a point-in-time copy safe to serialize.
type Snapshot struct {
	UptimeSeconds  int64 `json:"uptime_seconds"`
	ChatTurns      int64 `json:"chat_turns"`
	ModelErrors    int64 `json:"model_errors"`
	Transcriptions int64 `json:"transcriptions"`
	Syntheses      int64 `json:"syntheses"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ChatTurns:      m.chatTurns.Load(),
		ModelErrors:    m.modelErrors.Load(),
		Transcriptions: m.transcriptions.Load(),
		Syntheses:      m.syntheses.Load(),
	}
}
