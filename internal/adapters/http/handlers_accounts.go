package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/application"
	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// listAccounts returns every account logged into this browser, invalidating
// dead channels as a side effect. Unauthenticated callers get an empty
// list, not an error; the switcher UI renders fine with zero accounts.
func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.Sessions(r.Context(), r.Header.Get("Cookie"), clientMeta(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_accounts", err)
		return
	}
	h.applyCookies(w, agg.SetCookies)
	writeSuccess(w, http.StatusOK, map[string]any{
		"accounts": accountViews(agg),
	})
}

func (h *Handler) switchAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "switch_account", err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeValidationError(r.Context(), w, "switch_account", fmt.Errorf("invalid user_id"))
		return
	}

	instruction, err := h.service.SwitchActiveAccount(r.Context(), r.Header.Get("Cookie"), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "switch_account", err)
		return
	}
	h.applyCookies(w, []application.CookieInstruction{instruction})
	writeMessage(w, http.StatusOK, "Active account switched")
}

// resolveTargetUser picks the user an operation applies to: the explicit
// body value when present, otherwise the browser's active account.
func resolveTargetUser(r *http.Request, h *Handler, cookieHeader, explicit string) (uuid.UUID, error) {
	if explicit != "" {
		userID, err := uuid.Parse(explicit)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: invalid user_id", domain.ErrInvalidInput)
		}
		return userID, nil
	}
	current, _, err := h.service.GetUserFromSession(r.Context(), cookieHeader, domain.ClientMetadata{})
	if err != nil {
		return uuid.Nil, err
	}
	return current.User.UserID, nil
}
