// Package server accepts websocket connections and binds each to a protocol
// session.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"bitex_go/internal/domain"
	"bitex_go/internal/infra"
	"bitex_go/internal/session"

	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests to websocket connections and runs one
// session per connection. It implements http.Handler.
type Server struct {
	log      *slog.Logger
	deps     session.Deps
	upgrader websocket.Upgrader
}

// New creates a websocket gateway server.
func New(deps session.Deps, log *slog.Logger) *Server {
	return &Server{
		log:  log,
		deps: deps,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed",
			slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		return
	}

	c := newConn(ws, s.log)
	sess := session.New(s.deps, c)

	infra.GlobalMetrics.IncrementSessions()
	s.log.Info("Connection opened", slog.String("remote", r.RemoteAddr))

	go c.writePump()
	s.readLoop(r, c, sess)
}

// readLoop processes inbound frames one at a time on the connection's own
// goroutine. Every exit path tears the session down exactly once.
func (s *Server) readLoop(r *http.Request, c *conn, sess *session.Session) {
	defer func() {
		sess.Teardown()
		c.Close()
		infra.GlobalMetrics.DecrementSessions()
		s.log.Info("Connection closed", slog.String("remote", r.RemoteAddr))
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Read failed", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
			}
			return
		}

		if err := sess.HandleMessage(ctx, raw); err != nil {
			if domain.IsProtocolViolation(err) {
				s.log.Warn("Protocol violation, closing connection",
					slog.String("remote", r.RemoteAddr), slog.Any("error", err))
			} else {
				s.log.Info("Closing connection",
					slog.String("remote", r.RemoteAddr), slog.Any("error", err))
			}
			return
		}
	}
}
