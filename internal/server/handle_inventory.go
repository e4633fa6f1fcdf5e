package server

import "net/http"

type InventoryResponse struct {
	Resources map[string]int `json:"resources"`
}

func handleInventory(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		inv, err := store.Inventory(r.Context(), p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if inv == nil {
			inv = map[string]int{}
		}
		writeJSON(w, http.StatusOK, InventoryResponse{Resources: inv})
	}
}
