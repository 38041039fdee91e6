package run

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// LastRequestSaver persists the most recently accepted request so the
// client can offer "run again" after a restart.
type LastRequestSaver interface {
	SaveLast(req Request) error
}

// Service owns the session registry and the single-flight invariant. At
// most one session is active process-wide; prior terminal sessions are
// retained until superseded by the next start.
type Service struct {
	builder UnitBuilder
	broker  *Broker
	saver   LastRequestSaver

	mu      sync.Mutex
	current *Session
	cancel  context.CancelFunc
}

func New(builder UnitBuilder, saver LastRequestSaver) *Service {
	return &Service{
		builder: builder,
		broker:  NewBroker(),
		saver:   saver,
	}
}

// Broker exposes the event bus for the transport layer.
func (s *Service) Broker() *Broker { return s.broker }

// UnitNames lists every unit the pipeline can produce, in order.
func (s *Service) UnitNames() []string { return s.builder.UnitNames() }

// Start validates the request, claims the registry slot, and launches the
// worker goroutine. It returns once the session is Running.
func (s *Service) Start(req Request) (string, error) {
	if err := validateRequest(req, s.builder); err != nil {
		return "", err
	}
	units, err := buildUnits(req, s.builder)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(units))
	for _, u := range units {
		names = append(names, u.Name())
	}

	sessionID := fmt.Sprintf("session-%d", time.Now().UnixNano())
	sess := newSession(sessionID, names)
	ctx, cancel := context.WithCancel(context.Background())

	// atomic claim: this is the only place the single-flight invariant
	// is enforced
	s.mu.Lock()
	if s.current != nil && !s.current.State().Terminal() {
		s.mu.Unlock()
		cancel()
		return "", ErrAlreadyRunning
	}
	// a terminal predecessor may not have released yet; cancel its
	// context before the slot is reused
	if s.cancel != nil {
		s.cancel()
	}
	s.current = sess
	s.cancel = cancel
	s.mu.Unlock()

	if s.saver != nil {
		if err := s.saver.SaveLast(req); err != nil {
			log.Printf("run: failed to persist last request: %v", err)
		}
	}

	ch := s.broker.Allocate(sessionID)
	sess.setState(StateRunning)
	log.Printf("run %s: starting %d unit(s): %v", sessionID, len(units), names)

	go s.executeSession(ctx, sess, units, ch)

	return sessionID, nil
}

// Stop requests cancellation of the active session. Stopping an idle or
// already-terminal session is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.State().Terminal() || s.cancel == nil {
		return
	}
	log.Printf("run %s: stop requested", s.current.ID())
	s.cancel()
}

// Snapshot returns the current (possibly terminal) session state, false
// when no session has ever run.
func (s *Service) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()
	if sess == nil {
		return Snapshot{}, false
	}
	return sess.Snapshot(), true
}

// release cancels the session's context once the worker is done with it,
// so a normally completed run does not leak its context.
func (s *Service) release(sess *Session) {
	s.mu.Lock()
	cancel := s.cancel
	if s.current == sess {
		s.cancel = nil
	} else {
		// a newer session already owns the slot; its context stays live
		cancel = nil
	}
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
