package metrics

import (
	"sync"
	"time"
)

// Metrics holds process-wide counters for the interview service.
type Metrics struct {
	mu                   sync.RWMutex
	sessionsStarted      int64
	answersRecorded      int64
	evaluationsCompleted int64
	evaluationsFailed    int64
	reasoningCalls       int64
	lastUpdate           time.Time
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	SessionsStarted      int64     `json:"sessions_started"`
	AnswersRecorded      int64     `json:"answers_recorded"`
	EvaluationsCompleted int64     `json:"evaluations_completed"`
	EvaluationsFailed    int64     `json:"evaluations_failed"`
	ReasoningCalls       int64     `json:"reasoning_calls"`
	LastUpdate           time.Time `json:"last_update"`
}

func New() *Metrics {
	return &Metrics{lastUpdate: time.Now()}
}

func (m *Metrics) SessionStarted() {
	m.bump(func() { m.sessionsStarted++ })
}

func (m *Metrics) AnswerRecorded() {
	m.bump(func() { m.answersRecorded++ })
}

func (m *Metrics) EvaluationCompleted() {
	m.bump(func() { m.evaluationsCompleted++ })
}

func (m *Metrics) EvaluationFailed() {
	m.bump(func() { m.evaluationsFailed++ })
}

// ReasoningCall counts one request to the AI backend, retries included
// under a single call.
func (m *Metrics) ReasoningCall() {
	m.bump(func() { m.reasoningCalls++ })
}

func (m *Metrics) bump(apply func()) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	apply()
	m.lastUpdate = time.Now()
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		SessionsStarted:      m.sessionsStarted,
		AnswersRecorded:      m.answersRecorded,
		EvaluationsCompleted: m.evaluationsCompleted,
		EvaluationsFailed:    m.evaluationsFailed,
		ReasoningCalls:       m.reasoningCalls,
		LastUpdate:           m.lastUpdate,
	}
}
