package security

import (
	"context"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// ParseClientMetadata turns the raw request attributes into the client
// fingerprint stored on each login session. Geo fields are filled in by
// the resolver later, at session-creation time.
func ParseClientMetadata(ip, rawUserAgent string) domain.ClientMetadata {
	meta := domain.ClientMetadata{
		IPAddress: strings.TrimSpace(ip),
		UserAgent: rawUserAgent,
	}
	if strings.TrimSpace(rawUserAgent) == "" {
		return meta
	}
	ua := useragent.Parse(rawUserAgent)
	meta.Browser = strings.TrimSpace(ua.Name + " " + ua.Version)
	meta.OS = strings.TrimSpace(ua.OS + " " + ua.OSVersion)
	return meta
}

// StaticGeoResolver answers every lookup with the configured location.
// Deployments without a geo database still get consistent session rows.
type StaticGeoResolver struct {
	City    string
	Region  string
	Country string
}

func (r StaticGeoResolver) Resolve(_ context.Context, _ string) (string, string, string) {
	return r.City, r.Region, r.Country
}
