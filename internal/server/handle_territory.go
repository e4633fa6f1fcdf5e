package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/earthlord-game/server/internal/geo"
)

type TerritoryResponse struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"ownerId"`
	Name        string      `json:"name,omitempty"`
	Boundary    []geo.Point `json:"boundary"`
	Centroid    geo.Point   `json:"centroid"`
	AreaM2      float64     `json:"areaM2"`
	BoundingBox geo.BBox    `json:"boundingBox"`
	PointCount  int         `json:"pointCount"`
	StartedAt   string      `json:"startedAt"`
	CompletedAt string      `json:"completedAt"`
	IsActive    bool        `json:"isActive"`
}

// territoryResponse converts a territory for the wire. With regional display
// requested, boundary points are run through the GCJ-02 transform so map
// layers in the offset region line up.
func territoryResponse(t Territory, regional bool) TerritoryResponse {
	boundary := t.Boundary
	if regional {
		boundary = make([]geo.Point, len(t.Boundary))
		for i, p := range t.Boundary {
			boundary[i] = geo.ToGCJ02(p)
		}
	}
	centroid, _ := geo.Centroid(boundary)
	return TerritoryResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Name:        t.Name,
		Boundary:    boundary,
		Centroid:    centroid,
		AreaM2:      t.AreaM2,
		BoundingBox: t.BBox,
		PointCount:  t.PointCount,
		StartedAt:   fmtTime(t.StartedAt),
		CompletedAt: fmtTime(t.CompletedAt),
		IsActive:    t.IsActive,
	}
}

func wantsRegionalDisplay(r *http.Request) bool {
	return r.URL.Query().Get("display") == "gcj02"
}

func handleListTerritories(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		list, err := store.ListTerritories(r.Context(), p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		regional := wantsRegionalDisplay(r)
		resp := make([]TerritoryResponse, 0, len(list))
		for _, t := range list {
			resp = append(resp, territoryResponse(t, regional))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetTerritory(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		t, err := store.GetTerritory(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) || (err == nil && t.OwnerID != p.ID) {
			writeError(w, http.StatusNotFound, "territory not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, territoryResponse(t, wantsRegionalDisplay(r)))
	}
}

type RenameTerritoryRequest struct {
	Name string `json:"name"`
}

func handleRenameTerritory(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req RenameTerritoryRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		err = store.RenameTerritory(r.Context(), chi.URLParam(r, "id"), p.ID, req.Name)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "territory not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
	}
}

func handleDeactivateTerritory(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		err = store.DeactivateTerritory(r.Context(), chi.URLParam(r, "id"), p.ID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "territory not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
	}
}

func handleDeleteTerritory(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		err = store.DeleteTerritory(r.Context(), chi.URLParam(r, "id"), p.ID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "territory not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
