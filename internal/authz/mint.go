package authz

import (
	"time"

	"casetrack/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Mint issues an HS256 bearer token for the given user and role. Intended for
// the operator CLI and local development; production tokens come from the
// organisation's identity provider signed with the same shared secret.
func Mint(secret, issuer string, id domain.UserID, role domain.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  issuer,
		"sub":  id.String(),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return tok.SignedString([]byte(secret))
}
