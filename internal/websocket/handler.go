package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a Hub client until
// the connection closes. ?collections=tasks,events limits the changes sent.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // kiosk displays connect from the household LAN
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, ParseCollections(r.URL.Query().Get("collections"))...)
		client.Run(r.Context())
		conn.Close(ws.StatusNormalClosure, "")
	}
}
