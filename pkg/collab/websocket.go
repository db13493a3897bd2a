package collab

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// readPump continuously reads client messages and hands them to the
// coordinator. It blocks until the connection closes or errors, then
// triggers disconnect cleanup.
func (s *Session) readPump(coordinator *Coordinator) {
	defer coordinator.Disconnect(s)

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return nil
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		coordinator.Handle(context.Background(), s, msg)
	}
}

// writePump drains the session's send queue and keeps the connection
// alive with periodic pings. It runs until the session is closed.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

// start launches the session pumps. Called once per connection after
// the session is registered.
func (s *Session) start(coordinator *Coordinator) {
	go s.readPump(coordinator)
	go s.writePump()
}
