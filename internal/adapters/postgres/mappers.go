package postgres

import "github.com/nimbusboard/nimbusboard/internal/domain"

func toDomainUser(m userModel) domain.User {
	return domain.User{
		UserID:        m.UserID,
		Email:         m.Email,
		Name:          m.Name,
		EmailVerified: m.EmailVerified,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toDomainCustomer(m customerModel) domain.CustomerProfile {
	return domain.CustomerProfile{
		CustomerID: m.CustomerID,
		UserID:     m.UserID,
		CreatedAt:  m.CreatedAt,
	}
}

func toDomainSession(m sessionModel) domain.Session {
	return domain.Session{
		SessionID:  m.SessionID,
		UserID:     m.UserID,
		IPAddress:  derefString(m.IPAddress),
		Browser:    m.Browser,
		OS:         m.OS,
		UserAgent:  m.UserAgent,
		GeoCity:    m.GeoCity,
		GeoRegion:  m.GeoRegion,
		GeoCountry: m.GeoCountry,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		ExpiresAt:  m.ExpiresAt,
	}
}

func toDomainLoginCode(m loginCodeModel) domain.LoginCode {
	return domain.LoginCode{
		CodeID:    m.CodeID,
		Email:     m.Email,
		CodeHash:  m.CodeHash,
		CreatedAt: m.CreatedAt,
	}
}

func toDomainEmailChangeCode(m emailChangeCodeModel) domain.EmailChangeCode {
	return domain.EmailChangeCode{
		CodeID:    m.CodeID,
		UserID:    m.UserID,
		NewEmail:  m.NewEmail,
		CodeHash:  m.CodeHash,
		CreatedAt: m.CreatedAt,
	}
}

func toDomainOAuthAccount(m oauthAccountModel) domain.OAuthAccount {
	return domain.OAuthAccount{
		LinkID:        m.LinkID,
		UserID:        m.UserID,
		Provider:      m.Provider,
		Subject:       m.Subject,
		ProviderEmail: m.ProviderEmail,
		LinkedAt:      m.LinkedAt,
	}
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
