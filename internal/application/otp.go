package application

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nimbusboard/nimbusboard/internal/domain"
)

// codeAlphabet has exactly 32 symbols; I, O, 0 and 1 are excluded because
// users retype these codes from email on another screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode produces a human-enterable one-time code: length characters
// from the unambiguous alphabet, split into two hyphenated groups. Each
// character is drawn independently from a cryptographically secure source.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	code := make([]byte, 0, length+1)
	for i, b := range raw {
		if i == length/2 {
			code = append(code, '-')
		}
		code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return string(code), nil
}

// SendLoginCode generates, stores and mails a login code. The plaintext
// only exists in the outgoing email; storage sees the hash.
func (s *Service) SendLoginCode(ctx context.Context, email, clientIP string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	if s.throttle != nil {
		for _, key := range []string{"send:email:" + normalized, "send:ip:" + clientIP} {
			ok, throttleErr := s.throttle.Allow(ctx, key, s.cfg.SendThreshold, s.cfg.SendWindow)
			if throttleErr != nil {
				return throttleErr
			}
			if !ok {
				return domain.ErrRateLimited
			}
		}
	}

	code, err := GenerateCode(s.cfg.CodeLength)
	if err != nil {
		return err
	}
	if err := s.codes.CreateLoginCode(ctx, normalized, HashCode(code), s.nowFn()); err != nil {
		return err
	}
	return s.email.SendTemplate(ctx, "login-code", normalized, s.cfg.EmailFrom, map[string]string{
		"code": code,
	})
}

// VerifyLoginCode checks a login code and, on success, logs the account in:
// the user is found or created, the customer profile invariant is enforced,
// and a fresh per-user channel is established. The code record is left in
// place on purpose — some mail scanners "use" codes on the user's behalf,
// so a second entry within the validity window must still work. The worker
// sweep bounds how long such records live.
func (s *Service) VerifyLoginCode(ctx context.Context, email, code string, meta domain.ClientMetadata) (LoginResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return LoginResult{}, err
	}

	record, err := s.codes.GetLoginCode(ctx, normalized, HashCode(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResult{}, domain.ErrInvalidCode
		}
		return LoginResult{}, err
	}
	if s.nowFn().Sub(record.CreatedAt) > s.cfg.CodeValidity {
		return LoginResult{}, domain.ErrExpiredCode
	}

	user, err := s.findOrCreateUser(ctx, normalized, "")
	if err != nil {
		return LoginResult{}, err
	}
	if _, err := s.ensureCustomer(ctx, user.UserID); err != nil {
		return LoginResult{}, err
	}
	return s.establishLogin(ctx, user, meta)
}

// findOrCreateUser resolves an email to a user id. Creation leans on the
// directory's unique email constraint: a duplicate-key failure means a
// concurrent verification won the race, so we requery instead of erroring.
func (s *Service) findOrCreateUser(ctx context.Context, email, name string) (domain.User, error) {
	user, err := s.users.QueryUserWithEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	now := s.nowFn()
	created, err := s.users.CreateUser(ctx, email, name, true, now)
	if err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyInUse) {
			return s.users.QueryUserWithEmail(ctx, email)
		}
		return domain.User{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"user_id":       created.UserID,
		"email":         email,
		"registered_at": now,
	})
	s.enqueueEvent(ctx, "user.registered", email, payload)
	return created, nil
}

// RequestEmailChange issues a single-use confirmation code to the new
// address, scoped to the requesting user.
func (s *Service) RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error {
	normalized, err := normalizeEmail(newEmail)
	if err != nil {
		return err
	}
	if existing, err := s.users.QueryUserWithEmail(ctx, normalized); err == nil && existing.UserID != userID {
		return domain.ErrEmailAlreadyInUse
	}

	code, err := GenerateCode(s.cfg.CodeLength)
	if err != nil {
		return err
	}
	if err := s.codes.CreateEmailChangeCode(ctx, userID, normalized, HashCode(code), s.nowFn()); err != nil {
		return err
	}
	return s.email.SendTemplate(ctx, "email-change-code", normalized, s.cfg.EmailFrom, map[string]string{
		"code": code,
	})
}

// VerifyEmailChange consumes an email-change code. Unlike login codes these
// are deleted on success and on expiry: a stale record must not linger once
// its outcome is decided.
func (s *Service) VerifyEmailChange(ctx context.Context, userID uuid.UUID, code string) error {
	record, err := s.codes.GetEmailChangeCode(ctx, userID, HashCode(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidCode
		}
		return err
	}
	if s.nowFn().Sub(record.CreatedAt) > s.cfg.CodeValidity {
		_ = s.codes.DeleteEmailChangeCode(ctx, record.CodeID)
		return domain.ErrExpiredCode
	}

	if existing, err := s.users.QueryUserWithEmail(ctx, record.NewEmail); err == nil && existing.UserID != userID {
		return domain.ErrEmailAlreadyInUse
	}
	if err := s.users.UpdateEmail(ctx, userID, record.NewEmail, s.nowFn()); err != nil {
		return err
	}
	return s.codes.DeleteEmailChangeCode(ctx, record.CodeID)
}

// SweepExpiredLoginCodes deletes login codes past the validity window.
// This is the storage-growth bound for the keep-codes-after-use policy.
func (s *Service) SweepExpiredLoginCodes(ctx context.Context) (int64, error) {
	cutoff := s.nowFn().Add(-s.cfg.CodeValidity)
	return s.codes.DeleteLoginCodesOlderThan(ctx, cutoff)
}
