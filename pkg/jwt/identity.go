package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// identityClaims is the ordered list of claim names consulted when resolving
// the caller's user id from a raw claim set. Earlier names win.
var identityClaims = []string{"sub", "user_id", "uid", "nameid"}

// UserIDFromClaims resolves a user id from an arbitrary claim map by walking
// an ordered fallback list of claim names. It returns false when no claim
// holds a parseable UUID, rather than a sentinel value.
func UserIDFromClaims(claims jwt.MapClaims) (uuid.UUID, bool) {
	for _, name := range identityClaims {
		raw, ok := claims[name]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}
