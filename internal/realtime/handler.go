package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler upgrades GET /ws. originAllowed decides cross-origin upgrades;
// requests without an Origin header are accepted.
func Handler(h *Hub, originAllowed func(origin string) bool) echo.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origin)
		},
	}
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader already wrote the error response
			zap.L().Warn("websocket upgrade failed", zap.String("namespace", "realtime"), zap.Error(err))
			return nil
		}
		client := newClient(h, conn, c.RealIP())
		if !h.join(client) {
			_ = conn.Close()
			return nil
		}
		go client.writePump()
		go client.readPump()
		return nil
	}
}
