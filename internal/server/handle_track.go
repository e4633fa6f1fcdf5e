package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/earthlord-game/server/internal/geo"
)

type TrackStateResponse struct {
	SessionID        string  `json:"sessionId"`
	StartedAt        string  `json:"startedAt"`
	PointCount       int     `json:"pointCount"`
	TotalDistanceM   float64 `json:"totalDistanceM"`
	DistanceToStartM float64 `json:"distanceToStartM"`
}

type TrackPointRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type TrackPointResponse struct {
	Closed           bool               `json:"closed"`
	PointCount       int                `json:"pointCount"`
	TotalDistanceM   float64            `json:"totalDistanceM"`
	DistanceToStartM float64            `json:"distanceToStartM"`
	Territory        *TerritoryResponse `json:"territory,omitempty"`
}

func handleTrackStart(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		sess, err := store.StartTrack(r.Context(), p.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, TrackStateResponse{
			SessionID: sess.ID,
			StartedAt: fmtTime(sess.StartedAt),
		})
	}
}

func handleTrackState(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		sess, path, err := store.ActiveTrack(r.Context(), p.ID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no active tracking session")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := TrackStateResponse{
			SessionID:      sess.ID,
			StartedAt:      fmtTime(sess.StartedAt),
			PointCount:     len(path),
			TotalDistanceM: geo.PathDistance(path),
		}
		if len(path) > 1 {
			resp.DistanceToStartM = geo.Haversine(path[0], path[len(path)-1])
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleTrackPoint(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, deps.Store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req TrackPointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
			writeError(w, http.StatusBadRequest, "coordinates out of range")
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

		resp, err := recordFix(r, deps, p.ID, sess, geo.Point{Lat: req.Lat, Lon: req.Lon})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// recordFix appends a GPS fix to the session, re-runs closure detection, and
// on closure converts the path into a territory. Shared by the REST and
// WebSocket tracking endpoints.
func recordFix(r *http.Request, deps Deps, playerID string, sess TrackSession, fix geo.Point) (TrackPointResponse, error) {
	path, err := deps.Store.AppendTrackPoint(r.Context(), sess.ID, fix)
	if err != nil {
		return TrackPointResponse{}, err
	}

	resp := TrackPointResponse{
		PointCount:     len(path),
		TotalDistanceM: geo.PathDistance(path),
	}
	if len(path) > 1 {
		resp.DistanceToStartM = geo.Haversine(path[0], path[len(path)-1])
	}

	closed := geo.DetectClosure(path, deps.Tracking.ClosureToleranceM, deps.Tracking.MinTrackPoints) &&
		geo.DistinctPoints(path) >= 3
	if !closed {
		return resp, nil
	}

	now := time.Now().UTC()
	bbox, err := geo.BoundingBox(path)
	if err != nil {
		return TrackPointResponse{}, err
	}
	t := Territory{
		OwnerID:     playerID,
		Boundary:    path,
		AreaM2:      geo.Area(path),
		BBox:        bbox,
		PointCount:  len(path),
		StartedAt:   sess.StartedAt,
		CompletedAt: now,
	}
	t, err = deps.Store.CloseTrackIntoTerritory(r.Context(), sess.ID, t)
	if err != nil {
		return TrackPointResponse{}, err
	}

	deps.Broker.Publish(playerID, Event{
		Type:        "territory_closed",
		TerritoryID: t.ID,
		AreaM2:      t.AreaM2,
	})

	tr := territoryResponse(t, false)
	resp.Closed = true
	resp.Territory = &tr
	return resp, nil
}

func handleTrackAbandon(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		if err := store.AbandonTrack(r.Context(), p.ID); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no active tracking session")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
	}
}
