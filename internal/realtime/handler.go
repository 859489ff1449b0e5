package realtime

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// TokenVerifier validates the access token presented on connect.
type TokenVerifier interface {
	Verify(credential string) (int64, error)
}

// Handler upgrades connections to WebSocket and runs them as hub clients.
// The browser WebSocket API cannot set an Authorization header, so the
// access token arrives as a query parameter and is verified before the
// upgrade.
func Handler(hub *Hub, tokens TokenVerifier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := tokens.Verify(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Cross-origin handled by token check
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		NewClient(hub, conn, userID).Run(r.Context())
	}
}
