package server

import (
	"errors"
	"net/http"

	"github.com/earthlord-game/server/internal/building"
	"github.com/earthlord-game/server/internal/geo"
)

// ErrorResponse is returned for all error responses. MissingResources and
// Limit are populated only for the errors that carry them.
type ErrorResponse struct {
	Error            string         `json:"error"`
	MissingResources map[string]int `json:"missingResources,omitempty"`
	Limit            int            `json:"limit,omitempty"`
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Validation the player can fix gets 422, state conflicts get 409, unknown
// errors are opaque 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	var limitErr *building.TemplateLimitError
	var resErr *building.InsufficientResourcesError

	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, geo.ErrInsufficientPoints):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, building.ErrPointOutsideTerritory):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.As(err, &limitErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: limitErr.Error(), Limit: limitErr.Limit})
	case errors.As(err, &resErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "insufficient resources", MissingResources: resErr.Missing})
	case errors.Is(err, building.ErrMaxLevelReached),
		errors.Is(err, building.ErrInvalidStatus),
		errors.Is(err, building.ErrConcurrentModification),
		errors.Is(err, ErrTrackActive):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
