package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
	"github.com/nimbusboard/nimbusboard/internal/ports"
)

// OAuthAuthorize begins a provider login: state and PKCE verifier are
// generated server-side, stashed in the state store, and the provider's
// authorize URL is returned for the redirect.
func (s *Service) OAuthAuthorize(ctx context.Context, provider, redirectURI string) (string, error) {
	return s.beginOAuth(ctx, provider, redirectURI, uuid.Nil)
}

// OAuthAuthorizeLink begins the account-settings linking flow for an
// already-logged-in user. The callback for this state links only; it never
// creates a session.
func (s *Service) OAuthAuthorizeLink(ctx context.Context, provider, redirectURI string, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("%w: userID", domain.ErrMissingRequiredField)
	}
	return s.beginOAuth(ctx, provider, redirectURI, userID)
}

func (s *Service) beginOAuth(ctx context.Context, provider, redirectURI string, linkUserID uuid.UUID) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", fmt.Errorf("%w: provider is required", domain.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return "", fmt.Errorf("%w: invalid redirect_uri", domain.ErrInvalidInput)
	}

	state := randomURLToken(24)
	verifier, challenge := generatePKCE()
	now := s.nowFn()
	if err := s.oauthState.Put(ctx, state, ports.OAuthState{
		Provider:     provider,
		RedirectURI:  redirectURI,
		CodeVerifier: verifier,
		LinkUserID:   linkUserID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.OAuthStateTTL),
	}, s.cfg.OAuthStateTTL); err != nil {
		return "", err
	}
	return s.provider.BuildAuthorizeURL(provider, redirectURI, state, challenge)
}

// OAuthCallback completes a provider flow. Login states fall into three
// cases that all funnel into establishLogin:
//
//  1. the (provider, subject) pair is already linked — log that user in,
//     healing a missing customer profile on the way;
//  2. no link, but the provider-verified email matches a local user —
//     auto-link and log in (trust decision specific to the provider);
//  3. no link, no match — create user, profile and link, then log in.
//
// Link states (started by OAuthAuthorizeLink) only insert the link row.
func (s *Service) OAuthCallback(ctx context.Context, code, state string, meta domain.ClientMetadata) (LoginResult, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return LoginResult{}, fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}
	authState, err := s.oauthState.Get(ctx, state)
	if err != nil {
		return LoginResult{}, err
	}
	if authState == nil || authState.ExpiresAt.Before(s.nowFn()) {
		return LoginResult{}, domain.ErrUnauthorized
	}
	// One-shot state: a replayed callback must not reach the provider again.
	_ = s.oauthState.Delete(ctx, state)

	profile, err := s.provider.ExchangeCode(ctx, authState.Provider, code, authState.CodeVerifier)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", domain.ErrProviderFetchFailed, err)
	}
	if profile.Subject == "" {
		return LoginResult{}, fmt.Errorf("%w: empty subject", domain.ErrProviderFetchFailed)
	}

	if authState.LinkUserID != uuid.Nil {
		err := s.oauthAccounts.CreateOAuthAccount(ctx, authState.LinkUserID, authState.Provider, profile.Subject, profile.Email, s.nowFn())
		return LoginResult{}, err
	}

	user, err := s.resolveProviderUser(ctx, authState.Provider, profile)
	if err != nil {
		return LoginResult{}, err
	}
	if _, err := s.ensureCustomer(ctx, user.UserID); err != nil {
		return LoginResult{}, err
	}
	return s.establishLogin(ctx, user, meta)
}

func (s *Service) resolveProviderUser(ctx context.Context, provider string, profile domain.ProviderProfile) (domain.User, error) {
	link, err := s.oauthAccounts.QueryOAuthAccount(ctx, provider, profile.Subject)
	if err == nil {
		user, err := s.users.QueryUser(ctx, link.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.User{}, domain.ErrUserNotFound
			}
			return domain.User{}, err
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return domain.User{}, fmt.Errorf("%w: provider returned no email", domain.ErrProviderFetchFailed)
	}
	// Every email-based path below trusts the address to identify a local
	// account. Providers let account holders set arbitrary unverified
	// addresses, so an unverified one must not match or mint anything.
	if !profile.EmailVerified {
		return domain.User{}, fmt.Errorf("%w: provider email not verified", domain.ErrUnauthorized)
	}

	if existing, err := s.users.QueryUserWithEmail(ctx, email); err == nil {
		if err := s.oauthAccounts.CreateOAuthAccount(ctx, existing.UserID, provider, profile.Subject, email, s.nowFn()); err != nil {
			return domain.User{}, err
		}
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	user, err := s.findOrCreateUser(ctx, email, profile.Name)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.oauthAccounts.CreateOAuthAccount(ctx, user.UserID, provider, profile.Subject, email, s.nowFn()); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func randomURLToken(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func generatePKCE() (string, string) {
	verifier := randomURLToken(32)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge
}
