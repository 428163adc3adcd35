package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	current, ok := currentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
		return
	}
	items, err := h.service.ListActiveSessions(r.Context(), current.User.UserID, current.Session.SessionID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": items})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	current, ok := currentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid session_id")
		return
	}
	if err := h.service.RevokeSession(r.Context(), current.User.UserID, sessionID); err != nil {
		writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "Session revoked successfully")
}

func (h *Handler) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	current, ok := currentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
		return
	}
	if err := h.service.InvalidateAllAuthSessions(r.Context(), current.User.UserID); err != nil {
		writeMappedError(r.Context(), w, "revoke_all_sessions", err)
		return
	}
	// This browser's own channel cookie is now dead too; clear it eagerly
	// instead of waiting for the next aggregation pass.
	h.applyCookies(w, h.clearChannelInstructions(current.User.UserID))
	writeMessage(w, http.StatusOK, "All sessions revoked successfully")
}
