// Package metrics keeps in-process counters for interview sessions. The
// counters are logged once at session end; there is no exporter.
package metrics

import (
	"sync"

	"go.uber.org/zap"
)

type Metrics struct {
	mu sync.Mutex

	sessionsStarted   int64
	sessionsCompleted int64
	questionsAsked    int64
	reasoningCalls    int64
	reasoningFailures int64
	fallbacksUsed     int64
}

// Snapshot is a copy of the counters safe to read without locking.
type Snapshot struct {
	SessionsStarted   int64
	SessionsCompleted int64
	QuestionsAsked    int64
	ReasoningCalls    int64
	ReasoningFailures int64
	FallbacksUsed     int64
}

func New() *Metrics {
	return &Metrics{}
}

// All mutators are nil-safe so optional wiring does not need guards.

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsStarted++
}

func (m *Metrics) SessionCompleted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionsCompleted++
}

func (m *Metrics) QuestionAsked() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questionsAsked++
}

func (m *Metrics) ReasoningCall(success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasoningCalls++
	if !success {
		m.reasoningFailures++
	}
}

func (m *Metrics) FallbackUsed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacksUsed++
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		SessionsStarted:   m.sessionsStarted,
		SessionsCompleted: m.sessionsCompleted,
		QuestionsAsked:    m.questionsAsked,
		ReasoningCalls:    m.reasoningCalls,
		ReasoningFailures: m.reasoningFailures,
		FallbacksUsed:     m.fallbacksUsed,
	}
}

// Fields renders the counters as zap fields for the final session log line.
func (m *Metrics) Fields() []zap.Field {
	s := m.Snapshot()
	return []zap.Field{
		zap.Int64("questions_asked", s.QuestionsAsked),
		zap.Int64("reasoning_calls", s.ReasoningCalls),
		zap.Int64("reasoning_failures", s.ReasoningFailures),
		zap.Int64("fallbacks_used", s.FallbacksUsed),
	}
}
