package security

import (
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func testOAuthClient() *OAuthClient {
	return NewOAuthClient(OAuthClientConfig{
		Providers: map[string]ProviderConfig{
			"Google": {
				AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
				TokenURL:     "https://oauth2.googleapis.com/token",
				ClientID:     "client-123",
				Scopes:       []string{"openid", "email"},
			},
			"bare": {
				AuthorizeURL: "https://bare.test/authorize",
				TokenURL:     "https://bare.test/token",
			},
		},
	})
}

func TestBuildAuthorizeURL(t *testing.T) {
	t.Parallel()

	client := testOAuthClient()
	raw, err := client.BuildAuthorizeURL("GOOGLE", "https://app.test/callback", "state-1", "challenge-1")
	if err != nil {
		t.Fatalf("build authorize url failed: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("authorize url unparseable: %v", err)
	}
	if !strings.HasPrefix(raw, "https://accounts.google.com/o/oauth2/v2/auth?") {
		t.Fatalf("unexpected endpoint: %q", raw)
	}

	q := parsed.Query()
	if q.Get("client_id") != "client-123" || q.Get("response_type") != "code" {
		t.Fatalf("client params missing: %v", q)
	}
	if q.Get("redirect_uri") != "https://app.test/callback" || q.Get("state") != "state-1" {
		t.Fatalf("redirect/state params missing: %v", q)
	}
	if q.Get("scope") != "openid email" {
		t.Fatalf("unexpected scope: %q", q.Get("scope"))
	}
	if q.Get("code_challenge") != "challenge-1" || q.Get("code_challenge_method") != "S256" {
		t.Fatalf("PKCE params missing: %v", q)
	}
}

func TestBuildAuthorizeURLWithoutChallenge(t *testing.T) {
	t.Parallel()

	client := testOAuthClient()
	raw, err := client.BuildAuthorizeURL("google", "https://app.test/callback", "state-1", "")
	if err != nil {
		t.Fatalf("build authorize url failed: %v", err)
	}
	parsed, _ := url.Parse(raw)
	if parsed.Query().Has("code_challenge") || parsed.Query().Has("code_challenge_method") {
		t.Fatalf("blank challenge must not emit PKCE params: %q", raw)
	}
}

func TestBuildAuthorizeURLRejectsBadInput(t *testing.T) {
	t.Parallel()

	client := testOAuthClient()
	if _, err := client.BuildAuthorizeURL("unknown", "https://app.test/cb", "s", "c"); err == nil {
		t.Fatalf("expected unknown provider rejected")
	}
	// "bare" has endpoints but no client_id.
	if _, err := client.BuildAuthorizeURL("bare", "https://app.test/cb", "s", "c"); err == nil {
		t.Fatalf("expected unconfigured provider rejected")
	}
	if _, err := client.BuildAuthorizeURL("google", "", "s", "c"); err == nil {
		t.Fatalf("expected blank redirect_uri rejected")
	}
	if _, err := client.BuildAuthorizeURL("google", "https://app.test/cb", "", "c"); err == nil {
		t.Fatalf("expected blank state rejected")
	}
}

func TestProfileFromIDToken(t *testing.T) {
	t.Parallel()

	signed := func(claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return raw
	}

	profile, err := profileFromIDToken(signed(jwt.MapClaims{
		"sub":            "subject-1",
		"email":          " User@Example.COM ",
		"email_verified": true,
		"name":           " Jo ",
	}))
	if err != nil {
		t.Fatalf("profile extraction failed: %v", err)
	}
	if profile.Subject != "subject-1" || profile.Email != "user@example.com" || profile.Name != "Jo" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if !profile.EmailVerified {
		t.Fatalf("expected verified email")
	}

	// Some providers encode email_verified as a string claim.
	profile, err = profileFromIDToken(signed(jwt.MapClaims{
		"sub":            "subject-2",
		"email":          "other@example.com",
		"email_verified": "false",
	}))
	if err != nil {
		t.Fatalf("profile extraction failed: %v", err)
	}
	if profile.EmailVerified {
		t.Fatalf("string false must read as unverified")
	}

	if _, err := profileFromIDToken(signed(jwt.MapClaims{"email": "x@y.com"})); err == nil {
		t.Fatalf("expected token without sub rejected")
	}
}
