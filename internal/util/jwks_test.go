package util_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/heic2pdf/backend/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWKSToPEMRoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	doc, err := json.Marshal(util.JWKS{Keys: []util.JWK{{
		Kty: "EC",
		Crv: "P-256",
		Alg: "ES256",
		X:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.X.FillBytes(make([]byte, 32))),
		Y:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.Y.FillBytes(make([]byte, 32))),
	}}})
	require.NoError(t, err)

	pubPEM, err := util.JWKSToPEM(doc)
	require.NoError(t, err)
	assert.Contains(t, pubPEM, "BEGIN PUBLIC KEY")

	tok := sign(t, jwt.SigningMethodES256, priv, jwt.RegisteredClaims{Subject: "user-3"})
	claims, err := util.ValidateJWT(tok, pubPEM)
	require.NoError(t, err)
	assert.Equal(t, "user-3", claims.Subject)
}

func TestJWKSToPEMRejectsRSA(t *testing.T) {
	_, err := util.JWKSToPEM([]byte(`{"keys":[{"kty":"RSA","alg":"RS256","n":"x","e":"AQAB"}]}`))
	assert.ErrorIs(t, err, util.ErrUnsupportedKey)

	_, err = util.JWKSToPEM([]byte(`not json`))
	assert.Error(t, err)
}
