package http

import (
	"net/http"

	"github.com/google/uuid"
)

func (h *Handler) oauthAuthorize(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	redirectURI := r.URL.Query().Get("redirect_uri")

	redirectURL, err := h.service.OAuthAuthorize(r.Context(), provider, redirectURI)
	if err != nil {
		writeMappedError(r.Context(), w, "oauth_authorize", err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// oauthLink starts the settings-page linking flow for the active account.
// The resulting callback attaches the provider identity without touching
// any session.
func (h *Handler) oauthLink(w http.ResponseWriter, r *http.Request) {
	current, ok := currentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
		return
	}
	provider := r.URL.Query().Get("provider")
	redirectURI := r.URL.Query().Get("redirect_uri")

	redirectURL, err := h.service.OAuthAuthorizeLink(r.Context(), provider, redirectURI, current.User.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "oauth_link", err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	res, err := h.service.OAuthCallback(r.Context(), code, state, clientMeta(r))
	h.metrics.recordLogin("oauth", err)
	if err != nil {
		writeMappedError(r.Context(), w, "oauth_callback", err)
		return
	}
	h.applyCookies(w, res.SetCookies)
	// Link-flow callbacks carry no session; both shapes answer JSON and the
	// frontend decides where to navigate.
	if res.Session.SessionID == uuid.Nil {
		writeMessage(w, http.StatusOK, "Provider account linked")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":       userView(res.User),
		"session_id": res.Session.SessionID,
		"expires_at": res.Session.ExpiresAt,
	})
}
