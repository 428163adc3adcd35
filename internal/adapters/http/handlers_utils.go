package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/adapters/security"
	"github.com/nimbusboard/nimbusboard/internal/application"
	"github.com/nimbusboard/nimbusboard/internal/domain"
)

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func readIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func clientMeta(r *http.Request) domain.ClientMetadata {
	return security.ParseClientMetadata(readIP(r), r.UserAgent())
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := "VALIDATION_ERROR"
	msg := err.Error()
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, code, msg, err)
	writeError(w, http.StatusBadRequest, code, msg)
}

func (h *Handler) clearChannelInstructions(userID uuid.UUID) []application.CookieInstruction {
	return []application.CookieInstruction{
		{Name: application.SessionCookieName(userID), Clear: true},
	}
}

// applyCookies turns transport-neutral cookie instructions into Set-Cookie
// headers. Channel and pointer cookies share the same attribute contract:
// HttpOnly, SameSite=Lax, host-wide path.
func (h *Handler) applyCookies(w http.ResponseWriter, instructions []application.CookieInstruction) {
	for _, in := range instructions {
		cookie := &http.Cookie{
			Name:     in.Name,
			Value:    in.Value,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		}
		if in.Clear {
			cookie.Value = ""
			cookie.MaxAge = -1
			cookie.Expires = time.Unix(0, 0)
		} else {
			cookie.Expires = in.ExpiresAt
		}
		http.SetCookie(w, cookie)
	}
}
