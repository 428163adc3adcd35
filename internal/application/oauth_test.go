package application_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// beginLogin starts a provider flow and returns the state parameter the
// browser would carry to the callback.
func beginLogin(t *testing.T, f *fixture, provider string) string {
	t.Helper()
	authorizeURL, err := f.service.OAuthAuthorize(context.Background(), provider, "https://app.test/callback")
	if err != nil {
		t.Fatalf("oauth authorize failed: %v", err)
	}
	return stateFromURL(t, authorizeURL)
}

func stateFromURL(t *testing.T, authorizeURL string) string {
	t.Helper()
	parsed, err := url.Parse(authorizeURL)
	if err != nil {
		t.Fatalf("authorize url unparseable: %v", err)
	}
	state := parsed.Query().Get("state")
	if state == "" {
		t.Fatalf("authorize url carries no state: %q", authorizeURL)
	}
	return state
}

func TestOAuthLoginExistingLink(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	user := f.users.seed("linked@example.com")
	if err := f.links.CreateOAuthAccount(ctx, user.UserID, "google", "sub-1", "linked@example.com", f.clock.now()); err != nil {
		t.Fatalf("seed link failed: %v", err)
	}
	f.provider.profiles["code-ok"] = domain.ProviderProfile{
		Provider: "google", Subject: "sub-1", Email: "linked@example.com", EmailVerified: true,
	}

	state := beginLogin(t, f, "google")
	res, err := f.service.OAuthCallback(ctx, "code-ok", state, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if res.User.UserID != user.UserID {
		t.Fatalf("expected login as the linked user")
	}
	if !hasCookie(res.SetCookies, "session-"+user.UserID.String()) {
		t.Fatalf("expected channel cookie from provider login")
	}
}

func TestOAuthAutoLinksVerifiedEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	user := f.users.seed("match@example.com")
	f.provider.profiles["code-ok"] = domain.ProviderProfile{
		Provider: "google", Subject: "sub-2", Email: "Match@Example.com", EmailVerified: true,
	}

	state := beginLogin(t, f, "google")
	res, err := f.service.OAuthCallback(ctx, "code-ok", state, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if res.User.UserID != user.UserID {
		t.Fatalf("expected login as the existing user via verified email")
	}
	if _, err := f.links.QueryOAuthAccount(ctx, "google", "sub-2"); err != nil {
		t.Fatalf("expected auto-created link: %v", err)
	}
}

func TestOAuthCreatesNewUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.provider.profiles["code-ok"] = domain.ProviderProfile{
		Provider: "github", Subject: "sub-3", Email: "fresh@example.com", EmailVerified: true, Name: "Fresh",
	}

	state := beginLogin(t, f, "github")
	res, err := f.service.OAuthCallback(ctx, "code-ok", state, domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if res.User.Email != "fresh@example.com" {
		t.Fatalf("expected new user with provider email, got %q", res.User.Email)
	}
	link, err := f.links.QueryOAuthAccount(ctx, "github", "sub-3")
	if err != nil {
		t.Fatalf("expected link for new user: %v", err)
	}
	if link.UserID != res.User.UserID {
		t.Fatalf("link points at the wrong user")
	}
	stored, err := f.users.QueryUser(ctx, res.User.UserID)
	if err != nil {
		t.Fatalf("user lookup failed: %v", err)
	}
	if stored.Name != "Fresh" {
		t.Fatalf("expected provider name persisted, got %q", stored.Name)
	}
	if _, err := f.customers.QueryCustomerByUserID(ctx, res.User.UserID); err != nil {
		t.Fatalf("expected customer profile for new user: %v", err)
	}
}

func TestOAuthRejectsUnverifiedEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	victim := f.users.seed("victim@example.com")
	f.provider.profiles["code-ok"] = domain.ProviderProfile{
		Provider: "github", Subject: "sub-7", Email: "victim@example.com", EmailVerified: false,
	}

	state := beginLogin(t, f, "github")
	if _, err := f.service.OAuthCallback(ctx, "code-ok", state, domain.ClientMetadata{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unverified provider email must not log in, got %v", err)
	}
	if _, err := f.links.QueryOAuthAccount(ctx, "github", "sub-7"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unverified provider email must not create a link")
	}
	sessions, err := f.sessions.ListActiveForUser(ctx, victim.UserID, f.clock.now())
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("unverified provider email must not open a session for the matching account")
	}
}

func TestOAuthStateIsOneShot(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.provider.profiles["code-ok"] = domain.ProviderProfile{
		Provider: "google", Subject: "sub-4", Email: "oneshot@example.com", EmailVerified: true,
	}

	state := beginLogin(t, f, "google")
	if _, err := f.service.OAuthCallback(ctx, "code-ok", state, domain.ClientMetadata{}); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	if _, err := f.service.OAuthCallback(ctx, "code-ok", state, domain.ClientMetadata{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected replayed state rejected, got %v", err)
	}
}

func TestOAuthExpiredState(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.provider.profiles["code-ok"] = domain.ProviderProfile{
		Provider: "google", Subject: "sub-5", Email: "late@example.com", EmailVerified: true,
	}

	state := beginLogin(t, f, "google")
	f.clock.advance(11 * time.Minute)
	if _, err := f.service.OAuthCallback(context.Background(), "code-ok", state, domain.ClientMetadata{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired state rejected, got %v", err)
	}
}

func TestOAuthExchangeFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	state := beginLogin(t, f, "google")
	if _, err := f.service.OAuthCallback(context.Background(), "code-bad", state, domain.ClientMetadata{}); !errors.Is(err, domain.ErrProviderFetchFailed) {
		t.Fatalf("expected ErrProviderFetchFailed, got %v", err)
	}
}

func TestOAuthLinkFlowOnlyLinks(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	user := f.users.seed("settings@example.com")
	f.provider.profiles["code-ok"] = domain.ProviderProfile{
		Provider: "github", Subject: "sub-6", Email: "other@elsewhere.com", EmailVerified: true,
	}

	authorizeURL, err := f.service.OAuthAuthorizeLink(ctx, "github", "https://app.test/callback", user.UserID)
	if err != nil {
		t.Fatalf("authorize link failed: %v", err)
	}
	res, err := f.service.OAuthCallback(ctx, "code-ok", stateFromURL(t, authorizeURL), domain.ClientMetadata{})
	if err != nil {
		t.Fatalf("link callback failed: %v", err)
	}
	if res.Session.SessionID != uuid.Nil || len(res.SetCookies) != 0 {
		t.Fatalf("link flow must not establish a session")
	}
	link, err := f.links.QueryOAuthAccount(ctx, "github", "sub-6")
	if err != nil {
		t.Fatalf("expected link row: %v", err)
	}
	if link.UserID != user.UserID {
		t.Fatalf("link attached to the wrong user")
	}
}

func TestOAuthAuthorizeValidation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	if _, err := f.service.OAuthAuthorize(ctx, "  ", "https://app.test/callback"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank provider, got %v", err)
	}
	if _, err := f.service.OAuthAuthorize(ctx, "google", "not a uri"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad redirect, got %v", err)
	}
}

func TestOAuthAuthorizeCarriesPKCEChallenge(t *testing.T) {
	t.Parallel()

	f := newFixture()
	authorizeURL, err := f.service.OAuthAuthorize(context.Background(), "Google", "https://app.test/callback")
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !strings.Contains(authorizeURL, "provider=google") {
		t.Fatalf("expected provider name lowercased, got %q", authorizeURL)
	}
	parsed, _ := url.Parse(authorizeURL)
	if parsed.Query().Get("challenge") == "" {
		t.Fatalf("expected PKCE challenge forwarded to the provider")
	}
}
