package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/run"
)

const (
	progressWSWriteWait = 10 * time.Second
	progressWSPongWait  = 60 * time.Second
	progressWSPingEvery = (progressWSPongWait * 9) / 10

	// how often an idle socket re-checks for a newly started session
	progressWSPollEvery = 500 * time.Millisecond
)

var progressWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type progressWSOutbound struct {
	Type     string        `json:"type"`
	Snapshot *run.Snapshot `json:"snapshot,omitempty"`
	Event    *run.Event    `json:"event,omitempty"`
}

// WSHandler streams live run progress. The socket is persistent: a client
// connects once and receives a snapshot plus the event stream for every
// session started while it stays connected.
type WSHandler struct {
	svc *run.Service
}

func NewWSHandler(svc *run.Service) *WSHandler {
	return &WSHandler{svc: svc}
}

// HandleProgressWS upgrades the connection and runs the push loop until
// the client goes away.
// GET /ws/progress
func (h *WSHandler) HandleProgressWS(w http.ResponseWriter, r *http.Request) {
	conn, err := progressWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(progressWSPongWait)); err != nil {
		log.Printf("progress ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(progressWSPongWait))
	})

	// reader exists only to service control frames and detect disconnect
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writeCh := make(chan progressWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(progressWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(progressWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(progressWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	h.pushLoop(ctx, writeCh)
	cancel()
	<-writerDone
}

// pushLoop sends the current snapshot whenever a new session appears,
// then drains that session's event channel. Events arriving while no
// session is active simply wait for the next poll tick.
func (h *WSHandler) pushLoop(ctx context.Context, writeCh chan progressWSOutbound) {
	var lastSessionID string
	for {
		snap, ok := h.svc.Snapshot()
		if ok && snap.ID != lastSessionID {
			lastSessionID = snap.ID
			if !pushProgressWS(ctx, writeCh, progressWSOutbound{Type: "snapshot", Snapshot: &snap}) {
				return
			}
			if ch, found := h.svc.Broker().Get(snap.ID); found {
				if !h.streamEvents(ctx, writeCh, ch) {
					return
				}
				// terminal state reached; send the closing snapshot
				if final, ok := h.svc.Snapshot(); ok && final.ID == lastSessionID {
					if !pushProgressWS(ctx, writeCh, progressWSOutbound{Type: "snapshot", Snapshot: &final}) {
						return
					}
				}
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(progressWSPollEvery):
		}
	}
}

func (h *WSHandler) streamEvents(ctx context.Context, writeCh chan progressWSOutbound, events chan run.Event) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return true
			}
			if !pushProgressWS(ctx, writeCh, progressWSOutbound{Type: "event", Event: &ev}) {
				return false
			}
		}
	}
}

func pushProgressWS(ctx context.Context, writeCh chan progressWSOutbound, out progressWSOutbound) bool {
	select {
	case <-ctx.Done():
		return false
	case writeCh <- out:
		return true
	}
}
