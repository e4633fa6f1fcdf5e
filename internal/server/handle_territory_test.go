package server

import (
	"encoding/json"
	"math"
	"net/http"
	"testing"
)

func TestTerritoryListAndGet(t *testing.T) {
	r, _ := testRouter(t)
	reg := registerPlayer(t, r, "walker")
	ter := walkTerritory(t, r, reg.Token)

	w := doJSON(t, r, http.MethodGet, "/api/territories/", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list []TerritoryResponse
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != ter.ID {
		t.Fatalf("expected the walked territory in the list, got %+v", list)
	}

	w = doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID, reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var got TerritoryResponse
	json.NewDecoder(w.Body).Decode(&got)
	if got.ID != ter.ID {
		t.Errorf("id = %q, want %q", got.ID, ter.ID)
	}
	if len(got.Boundary) < 3 {
		t.Errorf("boundary has %d points, want at least 3", len(got.Boundary))
	}
	if got.BoundingBox.MinLat >= got.BoundingBox.MaxLat {
		t.Errorf("bounding box is degenerate: %+v", got.BoundingBox)
	}
}

func TestTerritoryHiddenFromOtherPlayers(t *testing.T) {
	r, _ := testRouter(t)
	owner := registerPlayer(t, r, "owner")
	other := registerPlayer(t, r, "other")
	ter := walkTerritory(t, r, owner.Token)

	w := doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID, other.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/territories/"+ter.ID, other.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete by non-owner: expected 404, got %d", w.Code)
	}
}

func TestTerritoryRename(t *testing.T) {
	r, _ := testRouter(t)
	reg := registerPlayer(t, r, "walker")
	ter := walkTerritory(t, r, reg.Token)

	w := doJSON(t, r, http.MethodPut, "/api/territories/"+ter.ID, reg.Token,
		RenameTerritoryRequest{Name: "Home Base"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID, reg.Token, nil)
	var got TerritoryResponse
	json.NewDecoder(w.Body).Decode(&got)
	if got.Name != "Home Base" {
		t.Errorf("name = %q, want Home Base", got.Name)
	}

	w = doJSON(t, r, http.MethodPut, "/api/territories/"+ter.ID, reg.Token,
		RenameTerritoryRequest{Name: "  "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank rename: expected 400, got %d", w.Code)
	}
}

func TestTerritoryDeactivateAndDelete(t *testing.T) {
	r, _ := testRouter(t)
	reg := registerPlayer(t, r, "walker")
	ter := walkTerritory(t, r, reg.Token)

	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/deactivate", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID, reg.Token, nil)
	var got TerritoryResponse
	json.NewDecoder(w.Body).Decode(&got)
	if got.IsActive {
		t.Error("territory should be inactive after deactivate")
	}

	w = doJSON(t, r, http.MethodDelete, "/api/territories/"+ter.ID, reg.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID, reg.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", w.Code)
	}
}

func TestTerritoryRegionalDisplay(t *testing.T) {
	r, _ := testRouter(t)
	reg := registerPlayer(t, r, "walker")

	// Walk a square inside the offset region, where the transform shifts
	// coordinates; the Berlin square would pass through unchanged.
	shanghai := []TrackPointRequest{
		{Lat: 31.2300, Lon: 121.4700},
		{Lat: 31.2300, Lon: 121.4715},
		{Lat: 31.2309, Lon: 121.4715},
		{Lat: 31.2309, Lon: 121.4700},
		{Lat: 31.2300, Lon: 121.4700},
	}
	doJSON(t, r, http.MethodPost, "/api/track/start", reg.Token, nil)
	var last TrackPointResponse
	for _, p := range shanghai {
		w := doJSON(t, r, http.MethodPost, "/api/track/points", reg.Token, p)
		if w.Code != http.StatusOK {
			t.Fatalf("track point: expected 200, got %d: %s", w.Code, w.Body.String())
		}
		last = TrackPointResponse{}
		json.NewDecoder(w.Body).Decode(&last)
	}
	if !last.Closed {
		t.Fatal("expected closure")
	}
	ter := *last.Territory

	w := doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID+"?display=gcj02", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var shifted TerritoryResponse
	json.NewDecoder(w.Body).Decode(&shifted)

	// GCJ-02 offsets run a few hundred meters; the stored WGS-84 boundary
	// must differ from the displayed one.
	dLat := math.Abs(shifted.Boundary[0].Lat - shanghai[0].Lat)
	dLon := math.Abs(shifted.Boundary[0].Lon - shanghai[0].Lon)
	if dLat < 1e-5 && dLon < 1e-5 {
		t.Errorf("expected a visible offset inside the region, got dLat=%g dLon=%g", dLat, dLon)
	}

	// Without the display parameter the raw coordinates come back.
	w = doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID, reg.Token, nil)
	var raw TerritoryResponse
	json.NewDecoder(w.Body).Decode(&raw)
	if math.Abs(raw.Boundary[0].Lat-shanghai[0].Lat) > 1e-5 {
		t.Errorf("stored boundary should stay WGS-84, got %+v", raw.Boundary[0])
	}
}
