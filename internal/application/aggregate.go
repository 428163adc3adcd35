package application

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// parseCookieHeader decodes a raw Cookie header into name→value pairs.
// http.ParseCookie does the RFC 6265 splitting; later duplicates win, which
// matches what browsers send for shadowed cookies.
func parseCookieHeader(header string) map[string]string {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out
}

// cookieHeaderWithout rebuilds a cookie header minus one cookie. Used when
// an operation needs to re-aggregate as if a channel were already gone.
func cookieHeaderWithout(header, name string) string {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == name {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Sessions resolves every logged-in account in one browser. Candidate
// channels come from cookie names whose suffix parses as a user id; each is
// read concurrently, dead ones are destroyed and queued for cookie
// clearing, and survivors are ordered most freshly authenticated first.
// One channel failing its user lookup never aborts the others — that
// channel alone degrades to expired.
func (s *Service) Sessions(ctx context.Context, cookieHeader string, meta domain.ClientMetadata) (Aggregation, error) {
	cookies := parseCookieHeader(cookieHeader)

	type candidate struct {
		userID uuid.UUID
		sealed string
	}
	candidates := make([]candidate, 0, len(cookies))
	for name, value := range cookies {
		if userID, ok := channelUserID(name); ok {
			candidates = append(candidates, candidate{userID: userID, sealed: value})
		}
	}

	type slot struct {
		user      domain.User
		session   domain.Session
		valid     bool
		setCookie *CookieInstruction
	}
	slots := make([]slot, len(candidates))

	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand candidate) {
			defer wg.Done()
			res := s.readChannel(ctx, cand.userID, cand.sealed, meta)
			slots[i].setCookie = res.setCookie
			if res.state != channelValid {
				return
			}
			user, err := s.users.QueryUser(ctx, cand.userID)
			if err != nil {
				// Deleted account or lookup failure: tear the channel down
				// exactly like an expired session.
				if errors.Is(err, domain.ErrNotFound) {
					_ = s.sessions.Delete(ctx, res.session.SessionID)
				}
				slots[i].setCookie = clearCookie(SessionCookieName(cand.userID))
				return
			}
			slots[i].user = user
			slots[i].session = res.session
			slots[i].valid = true
		}(i, cand)
	}
	wg.Wait()

	agg := Aggregation{}
	for _, sl := range slots {
		if sl.setCookie != nil {
			agg.SetCookies = append(agg.SetCookies, *sl.setCookie)
		}
		if sl.valid {
			agg.Users = append(agg.Users, LoggedInUser{User: sl.user, Session: sl.session})
		}
	}
	sort.SliceStable(agg.Users, func(i, j int) bool {
		return agg.Users[i].Session.ExpiresAt.After(agg.Users[j].Session.ExpiresAt)
	})

	agg.ActiveUserID = s.selectActive(cookies[ActiveAccountCookie], agg.Users)
	return agg, nil
}

// selectActive honors the pointer cookie only when it references a
// currently valid account; otherwise the most freshly authenticated
// account wins.
func (s *Service) selectActive(pointer string, users []LoggedInUser) uuid.UUID {
	if pointed, err := uuid.Parse(pointer); err == nil {
		for _, u := range users {
			if u.User.UserID == pointed {
				return pointed
			}
		}
	}
	if len(users) > 0 {
		return users[0].User.UserID
	}
	return uuid.Nil
}

// GetUserFromSession resolves the active account for a request. The pointer
// cookie picks which channel to trust, but authorization always flows
// through the channel read — a pointer with no valid channel behind it is
// simply logged out.
func (s *Service) GetUserFromSession(ctx context.Context, cookieHeader string, meta domain.ClientMetadata) (LoggedInUser, []CookieInstruction, error) {
	agg, err := s.Sessions(ctx, cookieHeader, meta)
	if err != nil {
		return LoggedInUser{}, nil, err
	}
	for _, u := range agg.Users {
		if u.User.UserID == agg.ActiveUserID {
			return u, agg.SetCookies, nil
		}
	}
	return LoggedInUser{}, agg.SetCookies, domain.ErrUnauthorized
}

// RequireCustomer resolves the active account and its customer profile,
// creating the profile when it is missing.
func (s *Service) RequireCustomer(ctx context.Context, cookieHeader string, meta domain.ClientMetadata) (LoggedInUser, domain.CustomerProfile, []CookieInstruction, error) {
	current, cookies, err := s.GetUserFromSession(ctx, cookieHeader, meta)
	if err != nil {
		return LoggedInUser{}, domain.CustomerProfile{}, cookies, err
	}
	profile, err := s.ensureCustomer(ctx, current.User.UserID)
	if err != nil {
		return LoggedInUser{}, domain.CustomerProfile{}, cookies, err
	}
	return current, profile, cookies, nil
}

// CheckIfSessionExistsForUserID reports whether the browser holds a valid
// channel for the given user. The channel read is the ordinary one: an
// expired row is destroyed, a session past half its lifetime is refreshed,
// and the resulting cookie instructions are returned for the caller to
// apply.
func (s *Service) CheckIfSessionExistsForUserID(ctx context.Context, cookieHeader string, userID uuid.UUID) (bool, []CookieInstruction, error) {
	cookies := parseCookieHeader(cookieHeader)
	sealed, ok := cookies[SessionCookieName(userID)]
	if !ok {
		return false, nil, nil
	}
	res := s.readChannel(ctx, userID, sealed, domain.ClientMetadata{})
	var instructions []CookieInstruction
	if res.setCookie != nil {
		instructions = append(instructions, *res.setCookie)
	}
	return res.state == channelValid, instructions, nil
}

// SwitchActiveAccount re-aims the pointer cookie at another logged-in
// account. It refuses to point at an account with no valid channel.
func (s *Service) SwitchActiveAccount(ctx context.Context, cookieHeader string, userID uuid.UUID) (CookieInstruction, error) {
	valid, _, err := s.CheckIfSessionExistsForUserID(ctx, cookieHeader, userID)
	if err != nil {
		return CookieInstruction{}, err
	}
	if !valid {
		return CookieInstruction{}, domain.ErrUnauthorized
	}
	return CookieInstruction{
		Name:      ActiveAccountCookie,
		Value:     userID.String(),
		ExpiresAt: s.nowFn().Add(365 * 24 * time.Hour),
	}, nil
}
