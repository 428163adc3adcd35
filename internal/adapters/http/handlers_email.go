package http

import (
	"net/http"
)

func (h *Handler) emailChangeRequest(w http.ResponseWriter, r *http.Request) {
	current, ok := currentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
		return
	}
	var req struct {
		NewEmail string `json:"new_email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "email_change_request", err)
		return
	}
	if err := h.service.RequestEmailChange(r.Context(), current.User.UserID, req.NewEmail); err != nil {
		writeMappedError(r.Context(), w, "email_change_request", err)
		return
	}
	writeMessage(w, http.StatusOK, "A confirmation code has been sent to the new address")
}

func (h *Handler) emailChangeVerify(w http.ResponseWriter, r *http.Request) {
	current, ok := currentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in")
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "email_change_verify", err)
		return
	}
	if err := h.service.VerifyEmailChange(r.Context(), current.User.UserID, req.Code); err != nil {
		writeMappedError(r.Context(), w, "email_change_verify", err)
		return
	}
	writeMessage(w, http.StatusOK, "Email address updated")
}
