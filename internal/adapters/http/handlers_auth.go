package http

import (
	"net/http"
)

func (h *Handler) sendLoginCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "send_login_code", err)
		return
	}
	if err := h.service.SendLoginCode(r.Context(), req.Email, readIP(r)); err != nil {
		writeMappedError(r.Context(), w, "send_login_code", err)
		return
	}
	writeMessage(w, http.StatusOK, "If the email is valid, a login code has been sent")
}

func (h *Handler) verifyLoginCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_login_code", err)
		return
	}

	res, err := h.service.VerifyLoginCode(r.Context(), req.Email, req.Code, clientMeta(r))
	h.metrics.recordLogin("otp", err)
	if err != nil {
		writeMappedError(r.Context(), w, "verify_login_code", err)
		return
	}
	h.applyCookies(w, res.SetCookies)
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":       userView(res.User),
		"session_id": res.Session.SessionID,
		"expires_at": res.Session.ExpiresAt,
	})
}

// logout tears down one account's channel. The target defaults to the
// active account; a body can name any other logged-in account instead.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	cookieHeader := r.Header.Get("Cookie")

	var req struct {
		UserID string `json:"user_id"`
	}
	// An empty body means "log out the active account".
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, "logout", err)
			return
		}
	}

	userID, err := resolveTargetUser(r, h, cookieHeader, req.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}

	instructions, err := h.service.Logout(r.Context(), cookieHeader, userID)
	if err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	h.applyCookies(w, instructions)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
