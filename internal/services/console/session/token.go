package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the console can learn from a session token without the
// backend's signing key.
type TokenInfo struct {
	// JWT is false for opaque tokens.
	JWT       bool
	Subject   string
	ExpiresAt time.Time
}

// InspectToken reads registered claims from a JWT without verifying its
// signature. Tokens that do not parse as a JWT are reported as opaque.
func InspectToken(token string) TokenInfo {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenInfo{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}
	info := TokenInfo{JWT: true, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}

// TokenValid reports whether token can still authenticate at now. Empty
// tokens are invalid, JWTs are invalid from their exp onwards, and opaque
// tokens are left for the backend to judge.
func TokenValid(token string, now time.Time) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	info := InspectToken(token)
	if !info.JWT || info.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(info.ExpiresAt)
}
