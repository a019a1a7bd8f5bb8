package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// JWKS is a JSON Web Key Set as served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	Kid string `json:"kid"`
	X   string `json:"x"`
	Y   string `json:"y"`
	Alg string `json:"alg"`
	Use string `json:"use"`
}

var ErrUnsupportedKey = errors.New("expected an EC P-256 (ES256) key")

// JWKSToPEM converts the first ES256 key of a JWKS document into a PEM public key
// that ValidateJWT accepts as key material.
func JWKSToPEM(doc []byte) (string, error) {
	var set JWKS
	if err := json.Unmarshal(doc, &set); err != nil {
		return "", fmt.Errorf("parsing JWKS: %w", err)
	}
	for _, key := range set.Keys {
		if key.Kty == "EC" && (key.Alg == "ES256" || key.Crv == "P-256") {
			return key.PEM()
		}
	}
	return "", ErrUnsupportedKey
}

// PEM encodes the key as a PKIX "PUBLIC KEY" block.
func (k JWK) PEM() (string, error) {
	if k.Kty != "EC" {
		return "", ErrUnsupportedKey
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return "", fmt.Errorf("decoding x coordinate: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return "", fmt.Errorf("decoding y coordinate: %w", err)
	}

	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshaling public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
