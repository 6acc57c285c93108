// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type identityClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenVerifier resolves HS256 bearer tokens issued by the identity provider
// into user IDs.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier returns nil when secret is empty, meaning every request
// is anonymous.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// UserID validates the token and returns its user_id claim, falling back to sub.
func (v *TokenVerifier) UserID(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims identityClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", errors.Join(ErrInvalidToken, errors.New("token has no subject"))
	}
	return userID, nil
}

// Issue signs a token for userID. Used by local tooling and tests; production
// tokens come from the identity provider.
func (v *TokenVerifier) Issue(userID string, ttl time.Duration, now time.Time) (string, error) {
	claims := identityClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
