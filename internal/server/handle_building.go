package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/earthlord-game/server/internal/building"
	"github.com/earthlord-game/server/internal/geo"
)

type BuildingResponse struct {
	ID               string    `json:"id"`
	TerritoryID      string    `json:"territoryId"`
	TemplateID       string    `json:"templateId"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	Level            int       `json:"level"`
	Location         geo.Point `json:"location"`
	Progress         float64   `json:"progress"`
	BuildStartedAt   string    `json:"buildStartedAt"`
	BuildCompletedAt *string   `json:"buildCompletedAt,omitempty"`
}

// buildingResponse reports the effective state at now, never the raw stored
// row: an elapsed timer reads as active even if the settle write-back lost a
// race.
func buildingResponse(b building.Building, now time.Time) BuildingResponse {
	status, level := building.EffectiveStatus(b, now)
	resp := BuildingResponse{
		ID:             b.ID,
		TerritoryID:    b.TerritoryID,
		TemplateID:     b.TemplateID,
		Name:           b.Name,
		Status:         string(status),
		Level:          level,
		Location:       b.Location,
		Progress:       building.Progress(b, now),
		BuildStartedAt: fmtTime(b.BuildStartedAt),
	}
	if b.BuildCompletedAt != nil {
		s := fmtTime(*b.BuildCompletedAt)
		resp.BuildCompletedAt = &s
	}
	return resp
}

func handleCatalog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Catalog.List())
	}
}

type StartConstructionRequest struct {
	TemplateID string  `json:"templateId"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

func handleStartConstruction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, deps.Store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req StartConstructionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		tpl, ok := deps.Catalog.Get(req.TemplateID)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown template")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			req.Name = tpl.Name
		}

		b, err := deps.Store.StartConstruction(r.Context(), ConstructionParams{
			OwnerID:     p.ID,
			TerritoryID: chi.URLParam(r, "id"),
			Template:    tpl,
			Name:        req.Name,
			Location:    geo.Point{Lat: req.Lat, Lon: req.Lon},
			Now:         time.Now().UTC(),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		deps.Broker.Publish(p.ID, Event{
			Type:        "construction_started",
			TerritoryID: b.TerritoryID,
			BuildingID:  b.ID,
			TemplateID:  b.TemplateID,
		})
		writeJSON(w, http.StatusCreated, buildingResponse(b, time.Now().UTC()))
	}
}

func handleListBuildings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, deps.Store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		territoryID := chi.URLParam(r, "id")
		t, err := deps.Store.GetTerritory(r.Context(), territoryID)
		if errors.Is(err, ErrNotFound) || (err == nil && t.OwnerID != p.ID) {
			writeError(w, http.StatusNotFound, "territory not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		now := time.Now().UTC()
		list, err := deps.Store.ListBuildings(r.Context(), territoryID, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := make([]BuildingResponse, 0, len(list))
		for _, b := range list {
			resp = append(resp, buildingResponse(b, now))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetBuilding(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, deps.Store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		now := time.Now().UTC()
		b, err := deps.Store.GetBuilding(r.Context(), chi.URLParam(r, "id"), now)
		if errors.Is(err, ErrNotFound) || (err == nil && b.OwnerID != p.ID) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, buildingResponse(b, now))
	}
}

func handleUpgradeBuilding(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, deps.Store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		now := time.Now().UTC()
		b, err := deps.Store.GetBuilding(r.Context(), chi.URLParam(r, "id"), now)
		if errors.Is(err, ErrNotFound) || (err == nil && b.OwnerID != p.ID) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		tpl, ok := deps.Catalog.Get(b.TemplateID)
		if !ok {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		_, level := building.EffectiveStatus(b, now)
		params := UpgradeParams{
			OwnerID:    p.ID,
			BuildingID: b.ID,
			Template:   tpl,
			Cost:       building.UpgradeCost(tpl, level, deps.Upgrades.CostFactor),
			Duration:   building.UpgradeDuration(tpl, level, deps.Upgrades.TimeFactor),
			Now:        now,
		}

		upgraded, err := deps.Store.UpgradeBuilding(r.Context(), params)
		if errors.Is(err, building.ErrConcurrentModification) {
			// One automatic retry; a second conflict is surfaced.
			upgraded, err = deps.Store.UpgradeBuilding(r.Context(), params)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		deps.Broker.Publish(p.ID, Event{
			Type:       "upgrade_started",
			BuildingID: upgraded.ID,
			TemplateID: upgraded.TemplateID,
			Level:      upgraded.Level + 1,
		})
		writeJSON(w, http.StatusOK, buildingResponse(upgraded, now))
	}
}

func handleDemolishBuilding(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, deps.Store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		id := chi.URLParam(r, "id")
		err = deps.Store.DemolishBuilding(r.Context(), id, p.ID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "building not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		deps.Broker.Publish(p.ID, Event{
			Type:       "building_demolished",
			BuildingID: id,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
