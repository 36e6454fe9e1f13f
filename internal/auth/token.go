// Package auth supplies the bearer token cloud sync requests carry. The token
// is issued by the sync service; this package only stores it and inspects its
// claims without verifying the signature.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/kv"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource hands out the current session token. A token stored through
// SetToken takes precedence over the static fallback from configuration.
type TokenSource struct {
	store    kv.Store
	fallback string
	now      func() time.Time
}

// NewTokenSource returns a TokenSource backed by store.
func NewTokenSource(store kv.Store, fallback string) *TokenSource {
	return &TokenSource{store: store, fallback: strings.TrimSpace(fallback), now: time.Now}
}

// WithClock overrides the clock used for expiry checks.
func (s *TokenSource) WithClock(now func() time.Time) *TokenSource {
	s.now = now
	return s
}

// Token returns a usable token or ErrAuthRequired when there is none or the
// stored JWT has expired.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	token, ok, err := s.store.Get(ctx, kv.KeySessionToken)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if !ok || strings.TrimSpace(token) == "" {
		token = s.fallback
	}
	if token == "" {
		return "", apperrors.ErrAuthRequired
	}
	if expired(token, s.now()) {
		return "", apperrors.WithMessage(apperrors.ErrAuthRequired, "Session expired, sign in again")
	}
	return token, nil
}

// Authenticated reports whether Token would succeed.
func (s *TokenSource) Authenticated(ctx context.Context) bool {
	_, err := s.Token(ctx)
	return err == nil
}

// SetToken stores a new session token.
func (s *TokenSource) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "token is required")
	}
	if expired(token, s.now()) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "token has expired")
	}
	if err := s.store.Set(ctx, kv.KeySessionToken, token); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

// ClearToken forgets the stored session token. The static fallback, if any,
// remains in effect.
func (s *TokenSource) ClearToken(ctx context.Context) error {
	if err := s.store.Delete(ctx, kv.KeySessionToken); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

// Subject returns the "sub" claim of a JWT token, or "" for opaque tokens.
func Subject(token string) string {
	claims, err := parseClaims(token)
	if err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// expired reports whether token is a JWT whose exp claim lies before now.
// Opaque tokens never expire locally; the server decides.
func expired(token string, now time.Time) bool {
	claims, err := parseClaims(token)
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

var errOpaque = errors.New("not a jwt")

func parseClaims(token string) (jwt.MapClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, errOpaque
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
