package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/pipeline"
)

// fakeUnit is a scriptable pipeline unit for orchestrator tests.
type fakeUnit struct {
	name    string
	logs    []string
	err     error
	block       chan struct{}        // when set, Run blocks until closed or ctx done
	started     chan struct{}        // closed when Run begins
	startedOnce sync.Once
	ctxCh       chan context.Context // when set, receives the run context
}

func (u *fakeUnit) Name() string { return u.name }

func (u *fakeUnit) Run(ctx context.Context, onLog pipeline.LogFunc) (string, error) {
	if u.started != nil {
		u.startedOnce.Do(func() { close(u.started) })
	}
	if u.ctxCh != nil {
		u.ctxCh <- ctx
	}
	for _, line := range u.logs {
		onLog(line)
	}
	if u.block != nil {
		select {
		case <-u.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if u.err != nil {
		return "", u.err
	}
	return u.name + " done", nil
}

// fakeBuilder wires fake units behind the UnitBuilder interface.
type fakeBuilder struct {
	mu     sync.Mutex
	export *fakeUnit
	phases map[string]*fakeUnit
	order  []string
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{
		export: &fakeUnit{name: "export"},
		phases: map[string]*fakeUnit{
			"inventory": {name: "inventory"},
			"ucx":       {name: "ucx"},
			"detailed":  {name: "detailed"},
			"report":    {name: "report"},
		},
		order: []string{"inventory", "ucx", "detailed", "report"},
	}
}

func (b *fakeBuilder) ExportUnit(map[string]string) (pipeline.Unit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.export, nil
}

func (b *fakeBuilder) AgentUnit(phase, _ string) (pipeline.Unit, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.phases[phase]
	return u, ok
}

func (b *fakeBuilder) ConsolidatingPhase() string { return "report" }

func (b *fakeBuilder) UnitNames() []string {
	return append([]string{"export"}, b.order...)
}

func waitForState(t *testing.T, svc *Service, want SessionState) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, ok := svc.Snapshot()
		if ok && snap.State == want {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never reached %s, last: %+v", want, snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func drain(ch chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestStartRejectsInvalidRequest(t *testing.T) {
	svc := New(newFakeBuilder(), nil)

	_, err := svc.Start(Request{})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Start(Request{Analysis: true, Phases: []string{"nope"}})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Start(Request{Export: false, Analysis: false, Phases: []string{"ucx"}})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, ok := svc.Snapshot()
	require.False(t, ok, "no session may be created for an invalid request")
}

func TestStartSingleFlight(t *testing.T) {
	b := newFakeBuilder()
	b.export.block = make(chan struct{})
	b.export.started = make(chan struct{})
	svc := New(b, nil)

	id, err := svc.Start(Request{Export: true})
	require.NoError(t, err)
	<-b.export.started

	_, err = svc.Start(Request{Export: true})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	// the active session is untouched by the rejected start
	snap, ok := svc.Snapshot()
	require.True(t, ok)
	require.Equal(t, id, snap.ID)
	require.Equal(t, StateRunning, snap.State)

	close(b.export.block)
	waitForState(t, svc, StateCompleted)

	// a new start is accepted once the previous session is terminal
	_, err = svc.Start(Request{Export: true})
	require.NoError(t, err)
	waitForState(t, svc, StateCompleted)
}

func TestFailFastAbortsRemainingUnits(t *testing.T) {
	b := newFakeBuilder()
	b.export.err = fmt.Errorf("exporter exited with code 2")
	svc := New(b, nil)

	id, err := svc.Start(Request{Export: true, Analysis: true, Phases: []string{"inventory"}})
	require.NoError(t, err)
	snap := waitForState(t, svc, StateFailed)

	require.Equal(t, id, snap.ID)
	require.Len(t, snap.Steps, 3) // export, inventory, report
	require.Equal(t, StepFailed, snap.Steps[0].Status)
	require.Contains(t, snap.Steps[0].Message, "code 2")
	require.Equal(t, StepPending, snap.Steps[1].Status, "units after a failure must never leave pending")
	require.Equal(t, StepPending, snap.Steps[2].Status)
	require.NotNil(t, snap.EndedAt)
}

func TestStopCancelsRunningSession(t *testing.T) {
	b := newFakeBuilder()
	report := b.phases["report"]
	report.block = make(chan struct{})
	report.started = make(chan struct{})
	svc := New(b, nil)

	_, err := svc.Start(Request{Analysis: true, Phases: []string{"inventory"}})
	require.NoError(t, err)
	<-report.started

	svc.Stop()
	snap := waitForState(t, svc, StateCancelled)

	require.Equal(t, StepCompleted, snap.Steps[0].Status, "completed units keep their status")
	require.Equal(t, StepFailed, snap.Steps[1].Status)
	require.Equal(t, "cancelled", snap.Steps[1].Message)
	for _, st := range snap.Steps {
		require.NotEqual(t, StepRunning, st.Status, "no step may be left running")
	}

	// stop on a terminal session is a no-op
	svc.Stop()
	snap2, _ := svc.Snapshot()
	require.Equal(t, snap.State, snap2.State)
}

func TestStopBeforeAnySessionIsNoop(t *testing.T) {
	svc := New(newFakeBuilder(), nil)
	svc.Stop()
	_, ok := svc.Snapshot()
	require.False(t, ok)
}

func TestEventOrderingPerStep(t *testing.T) {
	b := newFakeBuilder()
	b.export.logs = []string{"line 1", "line 2", "line 3"}
	svc := New(b, nil)

	id, err := svc.Start(Request{Export: true})
	require.NoError(t, err)
	ch, ok := svc.Broker().Get(id)
	require.True(t, ok)

	events := drain(ch)
	waitForState(t, svc, StateCompleted)

	var sequence []string
	for _, ev := range events {
		if ev.Step != "export" && ev.Kind != EventCompleted {
			continue
		}
		switch ev.Kind {
		case EventStatus:
			sequence = append(sequence, "status:"+string(ev.Status))
		case EventLog:
			sequence = append(sequence, "log:"+ev.Log)
		case EventCompleted:
			sequence = append(sequence, "completed")
		}
	}
	require.Equal(t, []string{
		"status:running",
		"log:line 1",
		"log:line 2",
		"log:line 3",
		"status:completed",
		"completed",
	}, sequence)
}

func TestFailurePublishesErrorEvent(t *testing.T) {
	b := newFakeBuilder()
	b.phases["ucx"].err = errors.New("llm returned 502")
	svc := New(b, nil)

	id, err := svc.Start(Request{Analysis: true, Phases: []string{"ucx"}})
	require.NoError(t, err)
	ch, _ := svc.Broker().Get(id)
	events := drain(ch)

	var sawError bool
	for _, ev := range events {
		if ev.Kind == EventError {
			sawError = true
			require.Contains(t, ev.Message, "502")
		}
		require.NotEqual(t, EventCompleted, ev.Kind)
	}
	require.True(t, sawError, "unit failure must surface as an error event")
}

func TestSessionContextCancelledAfterCompletion(t *testing.T) {
	b := newFakeBuilder()
	b.export.ctxCh = make(chan context.Context, 1)
	svc := New(b, nil)

	_, err := svc.Start(Request{Export: true})
	require.NoError(t, err)
	ctx := <-b.export.ctxCh
	waitForState(t, svc, StateCompleted)

	deadline := time.Now().Add(5 * time.Second)
	for ctx.Err() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("session context still live after normal completion")
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

type recordingSaver struct {
	mu   sync.Mutex
	last *Request
}

func (r *recordingSaver) SaveLast(req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &req
	return nil
}

func TestStartPersistsLastRequest(t *testing.T) {
	saver := &recordingSaver{}
	svc := New(newFakeBuilder(), saver)

	_, err := svc.Start(Request{Export: true, Language: "pt-BR"})
	require.NoError(t, err)
	waitForState(t, svc, StateCompleted)

	saver.mu.Lock()
	defer saver.mu.Unlock()
	require.NotNil(t, saver.last)
	require.True(t, saver.last.Export)
	require.Equal(t, "pt-BR", saver.last.Language)
}
