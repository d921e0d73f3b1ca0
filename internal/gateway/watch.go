package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moltcourt/moltcourt/internal/arena"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
	watchPingEvery = (watchPongWait * 9) / 10
)

type watchMessage struct {
	Type  string           `json:"type"`
	Fight *arena.FightView `json:"fight,omitempty"`
	Event *arena.Event     `json:"event,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if s.opts.CORSOrigin == "*" {
		u.CheckOrigin = func(*http.Request) bool { return true }
	}
	return u
}

// handleWatch streams a snapshot of the fight followed by its live events.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if s.opts.Watcher == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "live feed disabled"})
		return
	}
	fightID := r.PathValue("fightId")
	view, err := s.arena.GetFight(r.Context(), fightID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, cancelWatch := s.opts.Watcher.Watch(fightID, 32)
	defer cancelWatch()

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(watchPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	// Reader: detects client close; inbound frames are ignored.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg watchMessage) error {
		if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(msg)
	}
	if err := write(watchMessage{Type: "snapshot", Fight: view}); err != nil {
		return
	}

	ticker := time.NewTicker(watchPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := write(watchMessage{Type: "event", Event: &evt}); err != nil {
				return
			}
			if evt.Type == arena.EventFightCompleted {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "fight completed"),
					time.Now().Add(watchWriteWait))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
