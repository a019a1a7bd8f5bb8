package util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("token has no subject")

// Claims are the Supabase access token claims the backend reads.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func parsePublicKey(pemKey string) (any, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}

// keyFor picks the verification key for alg. HMAC algorithms use keyMaterial as the
// shared secret; RSA and ECDSA algorithms expect a PEM encoded public key.
func keyFor(alg, keyMaterial string) (any, error) {
	switch alg {
	case "HS256", "HS384", "HS512":
		return []byte(keyMaterial), nil
	case "RS256", "RS384", "RS512":
		pub, err := parsePublicKey(keyMaterial)
		if err != nil {
			return nil, err
		}
		if _, ok := pub.(*rsa.PublicKey); !ok {
			return nil, errors.New("public key is not RSA")
		}
		return pub, nil
	case "ES256", "ES384", "ES512":
		pub, err := parsePublicKey(keyMaterial)
		if err != nil {
			return nil, err
		}
		if _, ok := pub.(*ecdsa.PublicKey); !ok {
			return nil, errors.New("public key is not ECDSA")
		}
		return pub, nil
	}
	return nil, fmt.Errorf("unsupported signing algorithm: %s", alg)
}

// ValidateJWT verifies tokenString and returns its claims. The token must carry a subject,
// which is the user id everywhere else in the backend.
func ValidateJWT(tokenString, keyMaterial string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		alg, _ := t.Header["alg"].(string)
		return keyFor(alg, keyMaterial)
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}))
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
