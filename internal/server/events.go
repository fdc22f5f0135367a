package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/auth"
	"github.com/sells-group/sportcar/internal/session"
)

// EventSnapshot is the first message of every event stream: the current
// view of the session.
const EventSnapshot session.EventKind = "snapshot"

const (
	eventBuffer = 64
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS policy of the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func snapshotEvent(v session.View) session.Event {
	usage := v.Usage
	return session.Event{
		Kind:      EventSnapshot,
		State:     v.State,
		Selection: v.Selection,
		Result:    v.Result,
		Usage:     &usage,
	}
}

// handleEvents streams session events as JSON text frames. Browsers cannot
// set headers on a WebSocket handshake so the bearer token may also be given
// as the token query parameter.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); !ok {
		if tok := r.URL.Query().Get("token"); tok != "" {
			u, err := s.deps.Issuer.Verify(tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			r = r.WithContext(auth.WithUser(r.Context(), u))
		}
	}
	ctl, sid, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("server: websocket upgrade", zap.String("session_id", sid), zap.Error(err))
		return
	}
	defer conn.Close()
	defer s.sessions.Watch(sid)()

	events := make(chan session.Event, eventBuffer)
	cancel := ctl.Subscribe(func(ev session.Event) {
		select {
		case events <- ev:
		default:
			zap.L().Warn("server: event stream full, dropping event",
				zap.String("session_id", sid),
				zap.String("kind", string(ev.Kind)),
			)
		}
	})
	defer cancel()

	// Reader: handles pongs and notices when the client goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					zap.L().Debug("server: websocket read", zap.String("session_id", sid), zap.Error(err))
				}
				return
			}
		}
	}()

	if err := writeEvent(conn, snapshotEvent(ctl.View())); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			if err := writeEvent(conn, ev); err != nil {
				zap.L().Debug("server: websocket write", zap.String("session_id", sid), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev session.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
