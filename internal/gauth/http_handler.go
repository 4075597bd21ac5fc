package gauth

import (
	"context"
	"fmt"
	"log"
	"net/http"
)

type authorizer interface {
	AuthorizeCode(ctx context.Context, code, state string) error
	RedirectURL() (string, error)
}

// HTTPHandler serves the OAuth2 consent callback endpoint.
type HTTPHandler struct {
	prv authorizer
}

// NewHTTPHandler creates the HTTP surface for the OAuth2 flow.
func NewHTTPHandler(prv authorizer) *HTTPHandler {
	return &HTTPHandler{prv: prv}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("redirect") != "" {
		u, err := h.prv.RedirectURL()
		if err != nil {
			log.Println("prv.RedirectURL failed", err)
			http.Error(w, "Unable to start authorization", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, u, http.StatusMovedPermanently)
		return
	}

	if code := r.URL.Query().Get("code"); code != "" {
		state := r.URL.Query().Get("state")
		if err := h.prv.AuthorizeCode(r.Context(), code, state); err != nil {
			log.Println("prv.AuthorizeCode failed", err)
			http.Error(w, "Unable to authorize provided code", http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "Authorized, you can close this window")
		return
	}

	http.Error(w, "Missing code parameter", http.StatusBadRequest)
}
