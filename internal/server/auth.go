package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid session")

// playerFromRequest resolves the Bearer session token to a player.
func playerFromRequest(r *http.Request, store Store) (Player, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return Player{}, errNoSession
	}
	p, err := store.PlayerFromToken(r.Context(), token)
	if errors.Is(err, ErrNotFound) {
		return Player{}, errNoSession
	}
	return p, err
}
