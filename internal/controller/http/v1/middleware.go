package v1

import (
	"crypto/subtle"
	"net/http"
)

const (
	headerAPIKey = "X-API-Key"
	headerUser   = "X-User"
)

const (
	keyStatusValid       = "valid"
	keyStatusInvalid     = "invalid"
	keyStatusNotProvided = "not_provided"
)

func (h *Handler) keyStatus(r *http.Request) string {
	key := r.Header.Get(headerAPIKey)

	switch {
	case key == "":
		return keyStatusNotProvided
	case h.opts.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.opts.APIKey)) == 1:
		return keyStatusValid
	default:
		return keyStatusInvalid
	}
}

// RequireAPIKey rejects requests without the configured key. With no key
// configured every request passes.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.APIKey != "" && h.keyStatus(r) != keyStatusValid {
			h.writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "invalid or missing API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
