package run

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrokerAllocateAndGet(t *testing.T) {
	b := NewBroker()
	ch := b.Allocate("session-1")
	require.NotNil(t, ch)

	got, ok := b.Get("session-1")
	require.True(t, ok)
	require.Equal(t, ch, got)

	_, ok = b.Get("session-2")
	require.False(t, ok)
}

func TestPublishNeverBlocksOnFullBuffer(t *testing.T) {
	ch := make(chan Event, eventBufferSize)

	// flood with logs well past the buffer; publish must return every time
	for i := 0; i < eventBufferSize*3; i++ {
		publish(ch, Event{Kind: EventLog, Log: fmt.Sprintf("line %d", i)})
	}
	require.Len(t, ch, eventBufferSize)
}

func TestPublishKeepsStateEventsUnderLogPressure(t *testing.T) {
	ch := make(chan Event, eventBufferSize)

	publish(ch, Event{Kind: EventStatus, Status: StepRunning, Step: "export"})
	for i := 0; i < eventBufferSize*2; i++ {
		publish(ch, Event{Kind: EventLog, Log: fmt.Sprintf("line %d", i)})
	}
	publish(ch, Event{Kind: EventStatus, Status: StepCompleted, Step: "export"})
	publish(ch, Event{Kind: EventCompleted})
	close(ch)

	var statuses, terminals int
	for ev := range ch {
		switch ev.Kind {
		case EventStatus:
			statuses++
		case EventCompleted:
			terminals++
		}
	}
	require.Equal(t, 2, statuses, "status events must survive log backpressure")
	require.Equal(t, 1, terminals, "terminal event must survive log backpressure")
}

func TestPublishCoalescesLogsNotReorders(t *testing.T) {
	ch := make(chan Event, 4)
	for i := 0; i < 10; i++ {
		publish(ch, Event{Kind: EventLog, Log: fmt.Sprintf("line %d", i)})
	}
	close(ch)

	var last int = -1
	for ev := range ch {
		var n int
		_, err := fmt.Sscanf(ev.Log, "line %d", &n)
		require.NoError(t, err)
		require.Greater(t, n, last, "surviving log lines must stay in production order")
		last = n
	}
}
