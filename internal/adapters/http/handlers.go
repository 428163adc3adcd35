package http

import (
	"net/http"

	"github.com/nimbusboard/nimbusboard/internal/application"
	"github.com/nimbusboard/nimbusboard/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

type accountView struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Active        bool   `json:"active"`
}

func accountViews(agg application.Aggregation) []accountView {
	views := make([]accountView, 0, len(agg.Users))
	for _, u := range agg.Users {
		views = append(views, accountView{
			UserID:        u.User.UserID.String(),
			Email:         u.User.Email,
			Name:          u.User.Name,
			EmailVerified: u.User.EmailVerified,
			Active:        u.User.UserID == agg.ActiveUserID,
		})
	}
	return views
}

func userView(user domain.User) map[string]any {
	return map[string]any{
		"user_id":        user.UserID,
		"email":          user.Email,
		"name":           user.Name,
		"email_verified": user.EmailVerified,
	}
}

// me returns the active account plus its customer profile, creating the
// profile if a prior partial signup left it missing.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	current, profile, setCookies, err := h.service.RequireCustomer(r.Context(), r.Header.Get("Cookie"), clientMeta(r))
	h.applyCookies(w, setCookies)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":        userView(current.User),
		"customer_id": profile.CustomerID,
	})
}
