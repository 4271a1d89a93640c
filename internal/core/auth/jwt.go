package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
)

type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// Identity is what a verified session token asserts.
type Identity struct {
	PrincipalID string
	IssuedAt    time.Time
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{Secret: []byte(secret), Issuer: issuer, TTL: ttl, Now: time.Now}
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) Issue(principalID string) (string, error) {
	return s.IssueAt(principalID, s.now())
}

// IssueAt signs a token whose iat is at and whose exp is at plus the TTL.
func (s *TokenService) IssueAt(principalID string, at time.Time) (string, error) {
	if principalID == "" {
		return "", errors.New("empty principal id")
	}
	claims := Claims{
		ID: principalID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(s.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.ID == "" || c.IssuedAt == nil {
		return Identity{}, ErrTokenMalformed
	}
	return Identity{PrincipalID: c.ID, IssuedAt: c.IssuedAt.Time}, nil
}
