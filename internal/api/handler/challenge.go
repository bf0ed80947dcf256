package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ryabich/flarecloud/internal/challenge"
)

// Challenge serves HTTP-01 key authorizations to ACME validation probes.
// The endpoint is public and unauthenticated: the CA fetches it over plain
// HTTP while validating a domain.
type Challenge struct {
	bridge challenge.Bridge
}

func NewChallenge(bridge challenge.Bridge) *Challenge {
	return &Challenge{bridge: bridge}
}

// Resolve answers /.well-known/acme-challenge/{token}. The body is the
// stored key authorization verbatim; anything else fails validation.
func (h *Challenge) Resolve(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		http.NotFound(w, r)
		return
	}

	keyAuth, err := h.bridge.Resolve(r.Context(), token)
	if err != nil {
		if !errors.Is(err, challenge.ErrNotFound) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("challenge lookup failed")
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(keyAuth))
}
