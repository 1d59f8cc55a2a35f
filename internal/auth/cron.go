// Package auth authenticates the internal cron endpoints. Callers present
// either the raw shared trigger secret or a short-lived HS256 service token
// minted from it; both arrive as bearer credentials.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeCron is the scope claim required on cron service tokens.
const ScopeCron = "cron"

// CronAuthenticator validates cron trigger credentials.
type CronAuthenticator struct {
	secret []byte
	issuer string
}

// NewCronAuthenticator creates an authenticator. secret must be at least
// 32 characters for HS256 security.
func NewCronAuthenticator(secret, issuer string) *CronAuthenticator {
	return &CronAuthenticator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// cronClaims extends standard JWT claims with the token's scope.
type cronClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Authenticate accepts a bearer credential: the raw shared secret compared in
// constant time, or a signed service token carrying the cron scope.
func (a *CronAuthenticator) Authenticate(credential string) error {
	if credential == "" {
		return fmt.Errorf("credential is empty")
	}

	if subtle.ConstantTimeCompare([]byte(credential), a.secret) == 1 {
		return nil
	}

	// Anything that is not the raw secret must be a service token. JWTs are
	// dot-separated; reject early so a wrong secret never reaches the parser.
	if strings.Count(credential, ".") != 2 {
		return fmt.Errorf("invalid credential")
	}
	return a.validateToken(credential)
}

// GenerateToken mints a short-lived cron service token signed with the
// shared secret. Used by operators who prefer not to place the raw secret in
// scheduler configuration.
func (a *CronAuthenticator) GenerateToken(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := cronClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Scope: ScopeCron,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *CronAuthenticator) validateToken(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &cronClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*cronClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid token claims")
	}
	if claims.Issuer != a.issuer {
		return fmt.Errorf("invalid issuer: expected %s, got %s", a.issuer, claims.Issuer)
	}
	if claims.Scope != ScopeCron {
		return fmt.Errorf("invalid scope: expected %s, got %s", ScopeCron, claims.Scope)
	}
	return nil
}
