package run

import (
	"sync"
	"time"
)

// SessionState is the orchestrator state machine position.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateStarting  SessionState = "starting"
	StateRunning   SessionState = "running"
	StateCompleted SessionState = "completed"
	StateFailed    SessionState = "failed"
	StateCancelled SessionState = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// StepStatus is the per-stage status. It only ever moves forward:
// pending -> running -> completed|failed.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// snapshotLogTail bounds how many trailing log lines a snapshot carries.
// The full log stays on the record for the lifetime of the session.
const snapshotLogTail = 200

// StepRecord tracks one pipeline stage within a session.
type StepRecord struct {
	Name     string
	Status   StepStatus
	Message  string
	logLines []string
}

// Session is one execution attempt. All mutation happens on the worker
// goroutine via the methods below; readers take snapshots.
type Session struct {
	mu        sync.Mutex
	id        string
	state     SessionState
	steps     []*StepRecord
	startedAt time.Time
	endedAt   time.Time
}

func newSession(id string, unitNames []string) *Session {
	steps := make([]*StepRecord, 0, len(unitNames))
	for _, name := range unitNames {
		steps = append(steps, &StepRecord{Name: name, Status: StepPending})
	}
	return &Session{
		id:        id,
		state:     StateStarting,
		steps:     steps,
		startedAt: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if state.Terminal() {
		s.endedAt = time.Now()
	}
}

func (s *Session) step(name string) *StepRecord {
	for _, st := range s.steps {
		if st.Name == name {
			return st
		}
	}
	return nil
}

func (s *Session) setStepStatus(name string, status StepStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.step(name)
	if st == nil {
		return
	}
	// forward-only: a terminal step never regresses
	if st.Status == StepCompleted || st.Status == StepFailed {
		return
	}
	st.Status = status
	st.Message = message
}

func (s *Session) appendLog(name, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.step(name)
	if st == nil {
		return
	}
	st.logLines = append(st.logLines, line)
}

// StepSnapshot is an immutable copy of one StepRecord.
type StepSnapshot struct {
	Name    string     `json:"name"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
	LogTail []string   `json:"logTail,omitempty"`
}

// Snapshot is an immutable copy of the session, safe to hand to readers.
// Elapsed time is a projection the reader computes from StartedAt.
type Snapshot struct {
	ID        string         `json:"id"`
	State     SessionState   `json:"state"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   *time.Time     `json:"endedAt,omitempty"`
	Steps     []StepSnapshot `json:"steps"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		State:     s.state,
		StartedAt: s.startedAt,
		Steps:     make([]StepSnapshot, 0, len(s.steps)),
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		snap.EndedAt = &ended
	}
	for _, st := range s.steps {
		tail := st.logLines
		if len(tail) > snapshotLogTail {
			tail = tail[len(tail)-snapshotLogTail:]
		}
		snap.Steps = append(snap.Steps, StepSnapshot{
			Name:    st.Name,
			Status:  st.Status,
			Message: st.Message,
			LogTail: append([]string(nil), tail...),
		})
	}
	return snap
}
