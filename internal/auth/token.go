package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aqanja/blog-api/internal/shared"
)

// DefaultTokenTTL mirrors the lifetime the identity provider issues.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the canonical token payload. Only the snake_case is_admin claim
// grants admin rights.
type Claims struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Verifier turns a raw credential into a verified principal.
type Verifier interface {
	Verify(raw string) (shared.Principal, error)
}

// TokenService verifies HS256 tokens signed with a shared secret. Issue exists
// for tooling and tests; production tokens come from the identity provider.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Verify validates signature, algorithm and expiry.
func (s *TokenService) Verify(raw string) (shared.Principal, error) {
	if raw == "" {
		return shared.Principal{}, shared.ErrUnauthenticated
	}
	if len(s.secret) == 0 {
		return shared.Principal{}, errors.New("auth: token secret not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return shared.Principal{}, fmt.Errorf("%w: %v", shared.ErrInvalidCredential, err)
	}
	if !token.Valid || claims.ID <= 0 {
		return shared.Principal{}, shared.ErrInvalidCredential
	}
	return shared.Principal{
		ID:       claims.ID,
		Username: claims.Username,
		IsAdmin:  claims.IsAdmin,
	}, nil
}

// Issue signs a token for the principal.
func (s *TokenService) Issue(p shared.Principal) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("auth: token secret not configured")
	}
	now := s.now()
	claims := Claims{
		ID:       p.ID,
		Username: p.Username,
		IsAdmin:  p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

var _ Verifier = (*TokenService)(nil)
