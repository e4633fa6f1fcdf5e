package server

import (
	"net/http"
	"strings"
)

type RegisterRequest struct {
	Name string `json:"name"`
}

type RegisterResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type MeResponse struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func handleRegister(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		p, err := store.CreatePlayer(r.Context(), req.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, RegisterResponse{
			Token:    p.Token,
			PlayerID: p.ID,
			Name:     p.Name,
		})
	}
}

func handleMe(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		writeJSON(w, http.StatusOK, MeResponse{
			PlayerID:  p.ID,
			Name:      p.Name,
			CreatedAt: fmtTime(p.CreatedAt),
		})
	}
}
