package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/earthlord-game/server/internal/geo"
)

// handleWSTrack streams a live tracking session over a WebSocket: the client
// sends one JSON GPS fix per message and receives the same append result the
// REST endpoint returns. The stream ends when the path closes into a
// territory or the client disconnects.
func handleWSTrack(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "token query parameter required")
			return
		}
		p, err := deps.Store.PlayerFromToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		sess, _, err := deps.Store.ActiveTrack(r.Context(), p.ID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no active tracking session")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), 4*time.Hour)
		defer cancel()

		for {
			_, msg, err := conn.Read(ctx)
			if err != nil {
				logger.Debug("websocket read ended", "error", err)
				return
			}

			var fix TrackPointRequest
			if err := json.Unmarshal(msg, &fix); err != nil {
				continue
			}
			if fix.Lat < -90 || fix.Lat > 90 || fix.Lon < -180 || fix.Lon > 180 {
				continue
			}

			resp, err := recordFix(r, deps, p.ID, sess, geo.Point{Lat: fix.Lat, Lon: fix.Lon})
			if err != nil {
				logger.Error("recording fix failed", "session", sess.ID, "error", err)
				conn.Close(websocket.StatusInternalError, "recording failed")
				return
			}

			out, _ := json.Marshal(resp)
			if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}

			if resp.Closed {
				conn.Close(websocket.StatusNormalClosure, "territory closed")
				return
			}
		}
	}
}
