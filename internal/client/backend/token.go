package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims are the access-token claims the client relies on. The token is
// never verified here; the backend does that on every request.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func parseAccessToken(token string) (*accessClaims, bool) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// tokenExpiry returns the exp claim of an access token.
func tokenExpiry(token string) (time.Time, bool) {
	claims, ok := parseAccessToken(token)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
