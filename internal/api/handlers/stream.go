package handlers

import (
	"log/slog"
	"net/http"
	"route-tracking-service/internal/api/dto"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler pushes tracking views to dashboards over a websocket.
type StreamHandler struct {
	Tracker Tracker
	Logger  *slog.Logger
}

func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id := routeID(r)
	s, err := h.Tracker.Open(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views, cancel, err := s.Subscribe(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "route_id", id, "err", err)
		return
	}
	defer conn.Close()

	// The reader only handles control frames and notices the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	h.Logger.Debug("view stream opened", "route_id", id)
	defer h.Logger.Debug("view stream closed", "route_id", id)

	for {
		select {
		case <-gone:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case v, ok := <-views:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "tracking stopped"))
				return
			}
			if err := conn.WriteJSON(dto.FromView(v)); err != nil {
				return
			}
		}
	}
}
