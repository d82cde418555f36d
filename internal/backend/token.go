package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type accessTokenClaims struct {
	jwt.RegisteredClaims
}

// parseAccessToken extracts the subject and expiry from the backend's
// access token. When a backend JWT secret is configured the signature is
// verified; otherwise the claims are decoded unverified, since token
// verification is the backend's job and the client only needs exp and sub
// to schedule refreshes and cross-check the principal.
func (c *Client) parseAccessToken(accessToken string) (string, time.Time, error) {
	claims := &accessTokenClaims{}

	if c.jwtSecret != "" {
		token, err := jwt.ParseWithClaims(accessToken, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(c.jwtSecret), nil
		})
		if err != nil {
			return "", time.Time{}, err
		}
		if !token.Valid {
			return "", time.Time{}, jwt.ErrTokenInvalidClaims
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
			return "", time.Time{}, err
		}
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return claims.Subject, expiresAt, nil
}
