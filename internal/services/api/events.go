package api

import (
	"net/http"
	"time"

	"allowly/internal/domain/event"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Session cookies already gate this endpoint.
	CheckOrigin: func(*http.Request) bool { return true },
}

// events upgrades to a websocket and streams the caller's channel as JSON
// text frames. A Logout event closes the connection instead of being
// forwarded.
func (s *Server) events(c *gin.Context) {
	st := state(c)

	sub, err := s.Channels.Subscribe(c.Request.Context(), st.UserUID)
	if err != nil {
		s.Log.Error("subscribe", zap.String("user", st.UserUID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		// Upgrade already wrote the error response.
		return
	}
	log := s.Log.With(zap.String("user", st.UserUID))

	// The read pump only services control frames; clients never send data.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	defer func() {
		sub.Close()
		conn.Close()
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case d, ok := <-sub.Events():
			if !ok {
				return
			}
			if d.Err != nil {
				log.Warn("dropping undecodable event", zap.Error(d.Err))
				continue
			}
			if d.Event.Kind == event.TypeLogout {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logged out"))
				return
			}
			frame, err := d.Event.Encode()
			if err != nil {
				log.Warn("encode event", zap.Error(err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}
