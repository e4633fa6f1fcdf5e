package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/earthlord-game/server/internal/catalog"
	"github.com/earthlord-game/server/internal/database"
	"github.com/earthlord-game/server/internal/geo"
	"github.com/earthlord-game/server/internal/migrations"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	if err := store.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	return Deps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		DB:       db,
		Store:    store,
		Catalog:  cat,
		Broker:   NewBroker(),
		Tracking: TrackingRules{ClosureToleranceM: 30, MinTrackPoints: 4},
		Upgrades: UpgradeRules{CostFactor: 1.5, TimeFactor: 1.5},
	}
}

func testRouter(t *testing.T) (*chi.Mux, Deps) {
	t.Helper()
	deps := testDeps(t)
	r := chi.NewRouter()
	addRoutes(r, deps)
	return r, deps
}

// doJSON fires a request at the router with an optional JSON body and Bearer
// token, and returns the recorder.
func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerPlayer(t *testing.T, r http.Handler, name string) RegisterResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/register", "", RegisterRequest{Name: name})
	if w.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp RegisterResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

// squarePath is a roughly 100 m by 100 m square in central Berlin. The fifth
// fix repeats the first, which puts the walker back within closure tolerance.
var squarePath = []TrackPointRequest{
	{Lat: 52.5200, Lon: 13.4050},
	{Lat: 52.5200, Lon: 13.4065},
	{Lat: 52.5209, Lon: 13.4065},
	{Lat: 52.5209, Lon: 13.4050},
	{Lat: 52.5200, Lon: 13.4050},
}

// insideSquare is a point interior to squarePath; outsideSquare is not.
var (
	insideSquare  = TrackPointRequest{Lat: 52.5204, Lon: 13.4058}
	outsideSquare = TrackPointRequest{Lat: 52.5250, Lon: 13.4100}
)

// walkTerritory records the square path over HTTP and returns the territory
// created on closure.
func walkTerritory(t *testing.T, r http.Handler, token string) TerritoryResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/track/start", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("track start: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var last TrackPointResponse
	for _, p := range squarePath {
		w = doJSON(t, r, http.MethodPost, "/api/track/points", token, p)
		if w.Code != http.StatusOK {
			t.Fatalf("track point: expected 200, got %d: %s", w.Code, w.Body.String())
		}
		last = TrackPointResponse{}
		json.NewDecoder(w.Body).Decode(&last)
	}

	if !last.Closed || last.Territory == nil {
		t.Fatalf("expected closure after walking the square, got %+v", last)
	}
	return *last.Territory
}

func grantResource(t *testing.T, deps Deps, playerID, resource string, qty int) {
	t.Helper()
	if err := deps.Store.GrantResource(context.Background(), playerID, resource, qty); err != nil {
		t.Fatalf("grant %s: %v", resource, err)
	}
}

// storeTerritory builds a territory directly against the store, for tests
// that need to drive timers with explicit clocks.
func storeTerritory(t *testing.T, store Store, ownerID string) Territory {
	t.Helper()
	ctx := context.Background()

	sess, err := store.StartTrack(ctx, ownerID)
	if err != nil {
		t.Fatalf("start track: %v", err)
	}
	var path []geo.Point
	for _, p := range squarePath {
		path, err = store.AppendTrackPoint(ctx, sess.ID, geo.Point{Lat: p.Lat, Lon: p.Lon})
		if err != nil {
			t.Fatalf("append point: %v", err)
		}
	}
	bbox, err := geo.BoundingBox(path)
	if err != nil {
		t.Fatalf("bbox: %v", err)
	}
	ter, err := store.CloseTrackIntoTerritory(ctx, sess.ID, Territory{
		OwnerID:     ownerID,
		Boundary:    path,
		AreaM2:      geo.Area(path),
		BBox:        bbox,
		PointCount:  len(path),
		StartedAt:   sess.StartedAt,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("close track: %v", err)
	}
	return ter
}
