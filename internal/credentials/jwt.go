package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryHint reads the exp claim of a JWT access token without verifying its
// signature. The client never trusts the value for authorization; it only
// schedules proactive refreshes with it.
func ExpiryHint(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
