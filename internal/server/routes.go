package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("EarthLord API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(deps.Logger, deps.DB))
	r.Get("/ws/track", handleWSTrack(deps.Logger, deps))

	r.Route("/api", func(r chi.Router) {
		// Player routes — Bearer session token.
		r.Post("/register", handleRegister(deps.Store))
		r.Get("/me", handleMe(deps.Store))
		r.Get("/catalog", handleCatalog(deps))
		r.Get("/inventory", handleInventory(deps.Store))
		r.Get("/events", handleEvents(deps.Store, deps.Broker))

		r.Route("/track", func(r chi.Router) {
			r.Post("/start", handleTrackStart(deps.Store))
			r.Get("/", handleTrackState(deps.Store))
			r.Post("/points", handleTrackPoint(deps))
			r.Post("/abandon", handleTrackAbandon(deps.Store))
		})

		r.Route("/territories", func(r chi.Router) {
			r.Get("/", handleListTerritories(deps.Store))
			r.Get("/{id}", handleGetTerritory(deps.Store))
			r.Put("/{id}", handleRenameTerritory(deps.Store))
			r.Post("/{id}/deactivate", handleDeactivateTerritory(deps.Store))
			r.Delete("/{id}", handleDeleteTerritory(deps.Store))
			r.Get("/{id}/buildings", handleListBuildings(deps))
			r.Post("/{id}/buildings", handleStartConstruction(deps))
		})

		r.Route("/buildings", func(r chi.Router) {
			r.Get("/{id}", handleGetBuilding(deps))
			r.Post("/{id}/upgrade", handleUpgradeBuilding(deps))
			r.Delete("/{id}", handleDemolishBuilding(deps))
		})

		// Admin routes — cookie session.
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", handleAdminLogin(deps.Store))
			r.Post("/logout", handleAdminLogout(deps.Store))
			r.Get("/me", handleAdminMe(deps.Store))

			r.Group(func(r chi.Router) {
				r.Use(adminAuthMiddleware(deps.Store))
				r.Get("/players", handleAdminListPlayers(deps.Store))
				r.Post("/players/{id}/grant", handleAdminGrant(deps.Store))
				r.Get("/territories", handleAdminListTerritories(deps.Store))
			})
		})
	})
}
