package ariston

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 1 << 12
	defaultInterval = 5 * time.Second
	maxInterval     = 60 * time.Second
)

type wsEnvelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream pushes heater snapshots over a WebSocket on a fixed
// interval. Snapshots come from the poll loop, so clients observe the
// polling cadence at best.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request, heater *Heater) {
	interval := parseInterval(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorw("ariston ws upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	send := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(wsEnvelope{Type: "state", Data: heater.Snapshot()})
	}

	if err := send(); err != nil {
		s.log.Debugw("ariston ws initial write failed", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			if err := send(); err != nil {
				s.log.Debugw("ariston ws write failed", "err", err)
				return
			}
		}
	}
}

func parseInterval(r *http.Request) time.Duration {
	if raw := r.URL.Query().Get("interval"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 && d <= maxInterval {
			return d
		}
		if secs, err := strconv.Atoi(raw); err == nil {
			if d := time.Duration(secs) * time.Second; d > 0 && d <= maxInterval {
				return d
			}
		}
	}
	return defaultInterval
}
