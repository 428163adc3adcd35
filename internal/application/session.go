package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
	"github.com/nimbusboard/nimbusboard/internal/ports"
)

// Cookie names are contract, not incidental: other parts of the dashboard
// and its frontend read them by these exact names.
const (
	// ActiveAccountCookie holds the user id currently rendered. It is a UI
	// convenience only and is never an authorization signal by itself.
	ActiveAccountCookie = "current_user"
	// sessionCookiePrefix + userID names one channel. The value is the
	// sealed session id, nothing more.
	sessionCookiePrefix = "session-"
)

// SessionCookieName returns the channel cookie name for a user.
func SessionCookieName(userID uuid.UUID) string {
	return sessionCookiePrefix + userID.String()
}

// channelUserID extracts the embedded user id from a channel cookie name.
// Names are matched by parsing the suffix as a UUID, never by prefix alone,
// so unrelated cookies that happen to start with "session-" are ignored.
func channelUserID(cookieName string) (uuid.UUID, bool) {
	suffix, ok := strings.CutPrefix(cookieName, sessionCookiePrefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(suffix)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// channelState is the outcome of one channel read.
type channelState int

const (
	channelAbsent channelState = iota
	channelValid
	channelExpired
)

type channelResult struct {
	state   channelState
	session domain.Session
	// setCookie carries the refresh re-issue or the expiry clear.
	setCookie *CookieInstruction
}

// CreateSession is the single session-creation primitive. Both login paths
// terminate here so the session shape cannot diverge between them.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID, meta domain.ClientMetadata) (domain.Session, []CookieInstruction, error) {
	if userID == uuid.Nil {
		return domain.Session{}, nil, fmt.Errorf("%w: userID", domain.ErrMissingRequiredField)
	}

	if s.geo != nil && meta.GeoCity == "" && meta.GeoCountry == "" {
		meta.GeoCity, meta.GeoRegion, meta.GeoCountry = s.geo.Resolve(ctx, meta.IPAddress)
	}

	now := s.nowFn()
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		SessionID: uuid.New(),
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.SessionLifetime),
		Metadata:  meta,
		CreatedAt: now,
	})
	if err != nil {
		return domain.Session{}, nil, err
	}

	sealed, err := s.sealer.Seal(session.SessionID)
	if err != nil {
		return domain.Session{}, nil, fmt.Errorf("seal session cookie: %w", err)
	}
	cookies := []CookieInstruction{
		{Name: SessionCookieName(userID), Value: sealed, ExpiresAt: session.ExpiresAt},
		{Name: ActiveAccountCookie, Value: userID.String(), ExpiresAt: now.Add(365 * 24 * time.Hour)},
	}
	return session, cookies, nil
}

// readChannel runs the per-request state machine for one user's channel:
//
//	Absent    — no cookie, undecodable payload, or no stored row to trust.
//	Expired   — row missing or past expiry, or owned by a different user
//	            than the channel claims; the row is destroyed and a
//	            clear-cookie instruction is emitted.
//	Valid     — row present and unexpired; past half the lifetime the
//	            expiry is extended and the cookie re-issued. Geo fields are
//	            excluded from the refresh write: the refresh request's
//	            network context must not overwrite the login's.
func (s *Service) readChannel(ctx context.Context, userID uuid.UUID, sealedValue string, meta domain.ClientMetadata) channelResult {
	sessionID, err := s.sealer.Open(sealedValue)
	if err != nil {
		// Undecodable cookies are cleared rather than left to fail forever.
		return channelResult{state: channelExpired, setCookie: clearCookie(SessionCookieName(userID))}
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return channelResult{state: channelExpired, setCookie: clearCookie(SessionCookieName(userID))}
		}
		// Store failures degrade to logged-out for this channel only; the
		// cookie is kept so a transient outage does not log anyone out.
		return channelResult{state: channelAbsent}
	}

	// The cookie name's user id built the channel, but ownership comes from
	// the stored row. A forged name never resolves to another user's session.
	if session.UserID != userID {
		return channelResult{state: channelExpired, setCookie: clearCookie(SessionCookieName(userID))}
	}

	now := s.nowFn()
	if !session.ExpiresAt.After(now) {
		_ = s.sessions.Delete(ctx, session.SessionID)
		return channelResult{state: channelExpired, setCookie: clearCookie(SessionCookieName(userID))}
	}

	issuedAt := session.ExpiresAt.Add(-s.cfg.SessionLifetime)
	if now.Sub(issuedAt) > s.cfg.SessionLifetime/2 {
		newExpiry := now.Add(s.cfg.SessionLifetime)
		update := ports.SessionUpdateParams{ExpiresAt: &newExpiry, UpdatedAt: now}
		if meta.IPAddress != "" {
			update.IPAddress = &meta.IPAddress
		}
		if meta.Browser != "" {
			update.Browser = &meta.Browser
			update.OS = &meta.OS
			update.UserAgent = &meta.UserAgent
		}
		if err := s.sessions.Update(ctx, session.SessionID, update); err == nil {
			session.ExpiresAt = newExpiry
			session.UpdatedAt = now
			return channelResult{
				state:   channelValid,
				session: session,
				setCookie: &CookieInstruction{
					Name:      SessionCookieName(userID),
					Value:     sealedValue,
					ExpiresAt: newExpiry,
				},
			}
		}
		// A failed refresh write is benign: the session is still valid on
		// its old expiry, and the next read retries.
	}

	return channelResult{state: channelValid, session: session}
}

// establishLogin is the convergence point of the OTP and OAuth paths.
func (s *Service) establishLogin(ctx context.Context, user domain.User, meta domain.ClientMetadata) (LoginResult, error) {
	session, cookies, err := s.CreateSession(ctx, user.UserID, meta)
	if err != nil {
		return LoginResult{}, err
	}
	payload, _ := json.Marshal(map[string]any{
		"user_id":    user.UserID,
		"session_id": session.SessionID,
		"expires_at": session.ExpiresAt,
	})
	s.enqueueEvent(ctx, "auth.session.created", user.UserID.String(), payload)
	return LoginResult{User: user, Session: session, SetCookies: cookies}, nil
}

// Logout destroys one account's channel regardless of its expiry state and
// clears the cookie. If the active pointer referenced that account it is
// re-aimed at the most recently authenticated survivor, or cleared.
func (s *Service) Logout(ctx context.Context, cookieHeader string, userID uuid.UUID) ([]CookieInstruction, error) {
	cookies := parseCookieHeader(cookieHeader)
	instructions := []CookieInstruction{*clearCookie(SessionCookieName(userID))}

	if sealed, ok := cookies[SessionCookieName(userID)]; ok {
		if sessionID, err := s.sealer.Open(sealed); err == nil {
			session, err := s.sessions.GetByID(ctx, sessionID)
			if err == nil && session.UserID == userID {
				if err := s.sessions.Delete(ctx, sessionID); err != nil {
					return nil, err
				}
			}
		}
	}

	if cookies[ActiveAccountCookie] == userID.String() {
		agg, err := s.Sessions(ctx, cookieHeaderWithout(cookieHeader, SessionCookieName(userID)), domain.ClientMetadata{})
		if err == nil && len(agg.Users) > 0 {
			instructions = append(instructions, CookieInstruction{
				Name:      ActiveAccountCookie,
				Value:     agg.Users[0].User.UserID.String(),
				ExpiresAt: s.nowFn().Add(365 * 24 * time.Hour),
			})
		} else {
			instructions = append(instructions, *clearCookie(ActiveAccountCookie))
		}
	}
	return instructions, nil
}

// RevokeSession deletes one session row by id after checking it belongs to
// the requesting user. Used by the "other sessions" revocation UI.
func (s *Service) RevokeSession(ctx context.Context, ownerID, sessionID uuid.UUID) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if session.UserID != ownerID {
		return domain.ErrUnauthorized
	}
	return s.sessions.Delete(ctx, sessionID)
}

// ListActiveSessions returns the user's unexpired sessions, most recently
// updated first, marking the one backing the current request.
func (s *Service) ListActiveSessions(ctx context.Context, userID, currentSessionID uuid.UUID) ([]SessionItem, error) {
	sessions, err := s.sessions.ListActiveForUser(ctx, userID, s.nowFn())
	if err != nil {
		return nil, err
	}
	items := make([]SessionItem, 0, len(sessions))
	for _, it := range sessions {
		items = append(items, SessionItem{
			SessionID:  it.SessionID,
			Current:    it.SessionID == currentSessionID,
			IPAddress:  it.IPAddress,
			Browser:    it.Browser,
			OS:         it.OS,
			GeoCity:    it.GeoCity,
			GeoCountry: it.GeoCountry,
			CreatedAt:  it.CreatedAt,
			UpdatedAt:  it.UpdatedAt,
			ExpiresAt:  it.ExpiresAt,
		})
	}
	return items, nil
}

// InvalidateAllAuthSessions deletes every session row for a user. Browsers
// still holding channel cookies find them dead on the next read and clean
// up lazily.
func (s *Service) InvalidateAllAuthSessions(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	payload, _ := json.Marshal(map[string]any{
		"user_id":    userID,
		"revoked_at": s.nowFn(),
	})
	s.enqueueEvent(ctx, "auth.sessions.revoked_all", userID.String(), payload)
	return nil
}

func clearCookie(name string) *CookieInstruction {
	return &CookieInstruction{Name: name, Clear: true}
}
