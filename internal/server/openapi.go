package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/earthlord-game/server/internal/catalog"
)

// pathIDParam declares the {id} path parameter so the reflector accepts
// operations on parameterized routes.
type pathIDParam struct {
	ID string `path:"id"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "EarthLord API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Server-authoritative backend for the EarthLord territory game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws/track
	getWSTrack, _ := r.NewOperationContext(http.MethodGet, "/ws/track")
	getWSTrack.SetSummary("Live tracking stream")
	getWSTrack.SetDescription("Upgrades to a WebSocket; the client streams GPS fixes, the server answers with closure state. Pass token as query parameter.")
	getWSTrack.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWSTrack)

	// POST /api/register
	postRegister, _ := r.NewOperationContext(http.MethodPost, "/api/register")
	postRegister.SetSummary("Register a player")
	postRegister.SetDescription("Creates a player account and returns a session token.")
	postRegister.AddReqStructure(RegisterRequest{})
	postRegister.AddRespStructure(RegisterResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postRegister.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postRegister)

	// GET /api/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/me")
	getMe.SetSummary("Current player")
	getMe.SetDescription("Returns the authenticated player. Requires Bearer token.")
	getMe.AddRespStructure(MeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/catalog
	getCatalog, _ := r.NewOperationContext(http.MethodGet, "/api/catalog")
	getCatalog.SetSummary("Building templates")
	getCatalog.SetDescription("Returns the static building template catalog.")
	getCatalog.AddRespStructure([]catalog.Template{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCatalog)

	// GET /api/inventory
	getInventory, _ := r.NewOperationContext(http.MethodGet, "/api/inventory")
	getInventory.SetSummary("Resource ledger")
	getInventory.SetDescription("Returns the player's resource quantities. Requires Bearer token.")
	getInventory.AddRespStructure(InventoryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getInventory.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getInventory)

	// POST /api/track/start
	postTrackStart, _ := r.NewOperationContext(http.MethodPost, "/api/track/start")
	postTrackStart.SetSummary("Start tracking")
	postTrackStart.SetDescription("Starts a path recording session. One live session per player.")
	postTrackStart.AddRespStructure(TrackStateResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postTrackStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postTrackStart)

	// GET /api/track
	getTrack, _ := r.NewOperationContext(http.MethodGet, "/api/track")
	getTrack.SetSummary("Tracking state")
	getTrack.SetDescription("Returns the live session's point count and distances.")
	getTrack.AddRespStructure(TrackStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTrack.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTrack)

	// POST /api/track/points
	postTrackPoint, _ := r.NewOperationContext(http.MethodPost, "/api/track/points")
	postTrackPoint.SetSummary("Record a GPS fix")
	postTrackPoint.SetDescription("Appends a point to the live session and re-runs closure detection. On closure the walked path becomes a territory.")
	postTrackPoint.AddReqStructure(TrackPointRequest{})
	postTrackPoint.AddRespStructure(TrackPointResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postTrackPoint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postTrackPoint)

	// POST /api/track/abandon
	postTrackAbandon, _ := r.NewOperationContext(http.MethodPost, "/api/track/abandon")
	postTrackAbandon.SetSummary("Abandon tracking")
	postTrackAbandon.SetDescription("Discards the live session without creating a territory.")
	postTrackAbandon.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postTrackAbandon.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postTrackAbandon)

	// GET /api/territories
	listTerritories, _ := r.NewOperationContext(http.MethodGet, "/api/territories")
	listTerritories.SetSummary("List territories")
	listTerritories.SetDescription("Returns the player's territories. display=gcj02 converts boundaries for regional map layers.")
	listTerritories.AddRespStructure([]TerritoryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTerritories)

	// GET /api/territories/{id}
	getTerritory, _ := r.NewOperationContext(http.MethodGet, "/api/territories/{id}")
	getTerritory.SetSummary("Get territory")
	getTerritory.AddReqStructure(pathIDParam{})
	getTerritory.AddRespStructure(TerritoryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTerritory.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTerritory)

	// PUT /api/territories/{id}
	renameTerritory, _ := r.NewOperationContext(http.MethodPut, "/api/territories/{id}")
	renameTerritory.SetSummary("Rename territory")
	renameTerritory.AddReqStructure(pathIDParam{})
	renameTerritory.AddReqStructure(RenameTerritoryRequest{})
	renameTerritory.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	renameTerritory.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(renameTerritory)

	// DELETE /api/territories/{id}
	deleteTerritory, _ := r.NewOperationContext(http.MethodDelete, "/api/territories/{id}")
	deleteTerritory.SetSummary("Delete territory")
	deleteTerritory.AddReqStructure(pathIDParam{})
	deleteTerritory.SetDescription("Hard-deletes the territory and its buildings.")
	deleteTerritory.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteTerritory.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteTerritory)

	// POST /api/territories/{id}/buildings
	startConstruction, _ := r.NewOperationContext(http.MethodPost, "/api/territories/{id}/buildings")
	startConstruction.SetSummary("Start construction")
	startConstruction.AddReqStructure(pathIDParam{})
	startConstruction.SetDescription("Places a building inside the territory. Debits resources and starts the construction timer atomically.")
	startConstruction.AddReqStructure(StartConstructionRequest{})
	startConstruction.AddRespStructure(BuildingResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	startConstruction.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	startConstruction.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(startConstruction)

	// GET /api/territories/{id}/buildings
	listBuildings, _ := r.NewOperationContext(http.MethodGet, "/api/territories/{id}/buildings")
	listBuildings.SetSummary("List buildings")
	listBuildings.AddReqStructure(pathIDParam{})
	listBuildings.SetDescription("Returns the territory's buildings with effective status and timer progress.")
	listBuildings.AddRespStructure([]BuildingResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listBuildings)

	// GET /api/buildings/{id}
	getBuilding, _ := r.NewOperationContext(http.MethodGet, "/api/buildings/{id}")
	getBuilding.SetSummary("Get building")
	getBuilding.AddReqStructure(pathIDParam{})
	getBuilding.AddRespStructure(BuildingResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getBuilding.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getBuilding)

	// POST /api/buildings/{id}/upgrade
	upgradeBuilding, _ := r.NewOperationContext(http.MethodPost, "/api/buildings/{id}/upgrade")
	upgradeBuilding.SetSummary("Upgrade building")
	upgradeBuilding.AddReqStructure(pathIDParam{})
	upgradeBuilding.SetDescription("Debits the upgrade cost and starts the upgrade timer atomically.")
	upgradeBuilding.AddRespStructure(BuildingResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	upgradeBuilding.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(upgradeBuilding)

	// DELETE /api/buildings/{id}
	demolishBuilding, _ := r.NewOperationContext(http.MethodDelete, "/api/buildings/{id}")
	demolishBuilding.SetSummary("Demolish building")
	demolishBuilding.AddReqStructure(pathIDParam{})
	demolishBuilding.SetDescription("Removes the building. No resource refund.")
	demolishBuilding.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	demolishBuilding.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(demolishBuilding)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream for territory and construction updates. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getAdminMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getAdminMe.SetSummary("Current admin")
	getAdminMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getAdminMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getAdminMe)

	// GET /api/admin/players
	listPlayers, _ := r.NewOperationContext(http.MethodGet, "/api/admin/players")
	listPlayers.SetSummary("List players")
	listPlayers.AddRespStructure([]AdminPlayerItem{}, openapi.WithHTTPStatus(http.StatusOK))
	listPlayers.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listPlayers)

	// POST /api/admin/players/{id}/grant
	grant, _ := r.NewOperationContext(http.MethodPost, "/api/admin/players/{id}/grant")
	grant.SetSummary("Grant resources")
	grant.AddReqStructure(pathIDParam{})
	grant.SetDescription("Credits a player's resource ledger.")
	grant.AddReqStructure(GrantRequest{})
	grant.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	grant.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(grant)

	// GET /api/admin/territories
	adminTerritories, _ := r.NewOperationContext(http.MethodGet, "/api/admin/territories")
	adminTerritories.SetSummary("List all territories")
	adminTerritories.AddRespStructure([]TerritoryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	adminTerritories.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(adminTerritories)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
