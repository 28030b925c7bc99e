package httpapi

import (
	"strings"

	"github.com/dgrijalva/jwt-go"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
)

// JWTVerifier verifies bearer tokens issued by an external auth system for
// the customer-facing job API (spec §4.7 jobapi); the core only verifies,
// it never issues tokens.
type JWTVerifier struct {
	signingKey []byte
}

// NewJWTVerifier builds a verifier around a shared HMAC signing key.
func NewJWTVerifier(signingKey string) *JWTVerifier {
	return &JWTVerifier{signingKey: []byte(signingKey)}
}

// Claims is the subset of the external auth token's claims the core cares
// about: which customer address is making the request.
type Claims struct {
	jwt.StandardClaims
	CustomerAddress string `json:"customer_address"`
}

// VerifyBearer extracts and verifies the bearer token from an Authorization
// header value, returning the authenticated customer address.
func (v *JWTVerifier) VerifyBearer(authHeader string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", apierrors.Unauthorized("missing bearer token")
	}
	tokenString := strings.TrimPrefix(authHeader, prefix)

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierrors.Unauthorized("unexpected signing method")
		}
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", apierrors.Unauthorized("invalid or expired token")
	}
	if claims.CustomerAddress == "" {
		return "", apierrors.Unauthorized("token missing customer_address claim")
	}
	return claims.CustomerAddress, nil
}
