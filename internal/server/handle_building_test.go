package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/earthlord-game/server/internal/building"
	"github.com/earthlord-game/server/internal/catalog"
)

func TestCatalogEndpoint(t *testing.T) {
	r, deps := testRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/catalog", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []catalog.Template
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != len(deps.Catalog.List()) {
		t.Fatalf("catalog has %d templates, want %d", len(list), len(deps.Catalog.List()))
	}
}

func TestStartConstructionDebitsLedger(t *testing.T) {
	r, deps := testRouter(t)
	reg := registerPlayer(t, r, "builder")
	ter := walkTerritory(t, r, reg.Token)
	grantResource(t, deps, reg.PlayerID, "wood", 50)

	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", reg.Token,
		StartConstructionRequest{TemplateID: "campfire", Lat: insideSquare.Lat, Lon: insideSquare.Lon})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var b BuildingResponse
	json.NewDecoder(w.Body).Decode(&b)
	if b.Status != string(building.StatusConstructing) {
		t.Errorf("status = %q, want constructing", b.Status)
	}
	if b.Level != 1 {
		t.Errorf("level = %d, want 1", b.Level)
	}
	if b.Name != "Campfire" {
		t.Errorf("name = %q, want template default", b.Name)
	}
	if b.Progress >= 1 {
		t.Errorf("progress = %g, want < 1 for a fresh build", b.Progress)
	}

	// Campfire costs 30 wood; the ledger must show the debit.
	w = doJSON(t, r, http.MethodGet, "/api/inventory", reg.Token, nil)
	var inv InventoryResponse
	json.NewDecoder(w.Body).Decode(&inv)
	if inv.Resources["wood"] != 20 {
		t.Fatalf("wood = %d, want 20 after the debit", inv.Resources["wood"])
	}

	// The building shows up in the territory list.
	w = doJSON(t, r, http.MethodGet, "/api/territories/"+ter.ID+"/buildings", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list buildings: expected 200, got %d", w.Code)
	}
	var buildings []BuildingResponse
	json.NewDecoder(w.Body).Decode(&buildings)
	if len(buildings) != 1 || buildings[0].ID != b.ID {
		t.Fatalf("expected the new building in the list, got %+v", buildings)
	}
}

func TestStartConstructionInsufficientResources(t *testing.T) {
	r, deps := testRouter(t)
	reg := registerPlayer(t, r, "builder")
	ter := walkTerritory(t, r, reg.Token)
	grantResource(t, deps, reg.PlayerID, "wood", 20)

	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", reg.Token,
		StartConstructionRequest{TemplateID: "campfire", Lat: insideSquare.Lat, Lon: insideSquare.Lon})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.MissingResources["wood"] != 10 {
		t.Fatalf("missing wood = %d, want 10", resp.MissingResources["wood"])
	}

	// Failed placement must not touch the ledger.
	w = doJSON(t, r, http.MethodGet, "/api/inventory", reg.Token, nil)
	var inv InventoryResponse
	json.NewDecoder(w.Body).Decode(&inv)
	if inv.Resources["wood"] != 20 {
		t.Fatalf("wood = %d, want 20 untouched", inv.Resources["wood"])
	}
}

func TestStartConstructionOutsideTerritory(t *testing.T) {
	r, deps := testRouter(t)
	reg := registerPlayer(t, r, "builder")
	ter := walkTerritory(t, r, reg.Token)
	grantResource(t, deps, reg.PlayerID, "wood", 100)

	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", reg.Token,
		StartConstructionRequest{TemplateID: "campfire", Lat: outsideSquare.Lat, Lon: outsideSquare.Lon})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStartConstructionTemplateLimit(t *testing.T) {
	r, deps := testRouter(t)
	reg := registerPlayer(t, r, "builder")
	ter := walkTerritory(t, r, reg.Token)
	grantResource(t, deps, reg.PlayerID, "wood", 200)
	grantResource(t, deps, reg.PlayerID, "stone", 100)

	// Shelter allows one per territory.
	build := StartConstructionRequest{TemplateID: "shelter", Lat: insideSquare.Lat, Lon: insideSquare.Lon}
	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", reg.Token, build)
	if w.Code != http.StatusCreated {
		t.Fatalf("first shelter: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", reg.Token, build)
	if w.Code != http.StatusConflict {
		t.Fatalf("second shelter: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Limit != 1 {
		t.Errorf("limit = %d, want 1", resp.Limit)
	}
}

func TestStartConstructionUnknownTemplate(t *testing.T) {
	r, _ := testRouter(t)
	reg := registerPlayer(t, r, "builder")
	ter := walkTerritory(t, r, reg.Token)

	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", reg.Token,
		StartConstructionRequest{TemplateID: "castle", Lat: insideSquare.Lat, Lon: insideSquare.Lon})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStartConstructionOnForeignTerritory(t *testing.T) {
	r, deps := testRouter(t)
	owner := registerPlayer(t, r, "owner")
	other := registerPlayer(t, r, "other")
	ter := walkTerritory(t, r, owner.Token)
	grantResource(t, deps, other.PlayerID, "wood", 100)

	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", other.Token,
		StartConstructionRequest{TemplateID: "campfire", Lat: insideSquare.Lat, Lon: insideSquare.Lon})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner, got %d", w.Code)
	}
}

func TestDemolishBuilding(t *testing.T) {
	r, deps := testRouter(t)
	reg := registerPlayer(t, r, "builder")
	ter := walkTerritory(t, r, reg.Token)
	grantResource(t, deps, reg.PlayerID, "wood", 30)

	w := doJSON(t, r, http.MethodPost, "/api/territories/"+ter.ID+"/buildings", reg.Token,
		StartConstructionRequest{TemplateID: "campfire", Lat: insideSquare.Lat, Lon: insideSquare.Lon})
	var b BuildingResponse
	json.NewDecoder(w.Body).Decode(&b)

	w = doJSON(t, r, http.MethodDelete, "/api/buildings/"+b.ID, reg.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("demolish: expected 204, got %d", w.Code)
	}

	// No refund.
	w = doJSON(t, r, http.MethodGet, "/api/inventory", reg.Token, nil)
	var inv InventoryResponse
	json.NewDecoder(w.Body).Decode(&inv)
	if inv.Resources["wood"] != 0 {
		t.Errorf("wood = %d, want 0 (demolish never refunds)", inv.Resources["wood"])
	}

	w = doJSON(t, r, http.MethodGet, "/api/buildings/"+b.ID, reg.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after demolish: expected 404, got %d", w.Code)
	}
}
