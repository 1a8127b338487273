package debugserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard clients connect from the app origin; this server binds to
	// loopback by default.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// statsFrame is one websocket push.
type statsFrame struct {
	Event string      `json:"event"`
	Time  time.Time   `json:"time"`
	Stats interface{} `json:"stats"`
}

// handleStatsStream upgrades the connection and pushes a stats snapshot at
// the configured interval until the client disconnects.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShuttingDown {
		s.shutdownMu.RUnlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.shutdownMu.RUnlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	s.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Stats stream client connected")

	go s.streamStats(conn, clientID)
}

func (s *Server) streamStats(conn *websocket.Conn, clientID string) {
	defer conn.Close()

	// Drain reads so close frames are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.options.StreamInterval)
	defer ticker.Stop()

	// Push an initial frame so clients render immediately.
	if err := conn.WriteJSON(statsFrame{Event: "stats", Time: time.Now(), Stats: s.coord.GetStats()}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			s.logger.Debug().Str("clientId", clientID).Msg("Stats stream client disconnected")
			return
		case <-ticker.C:
			frame := statsFrame{Event: "stats", Time: time.Now(), Stats: s.coord.GetStats()}
			if err := conn.WriteJSON(frame); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Warn().Err(err).Str("clientId", clientID).Msg("Stats stream write failed")
				}
				return
			}
		}
	}
}
