package util

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by access tokens. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var supportedAlgs = []string{
	"HS256", "HS384", "HS512",
	"RS256", "RS384", "RS512",
	"ES256", "ES384", "ES512",
}

// parsePublicKey decodes a PEM-encoded PKIX public key.
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

// verificationKey picks the key type that matches the token's signing method.
func verificationKey(keyMaterial string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if strings.Contains(keyMaterial, "-----BEGIN") {
				return nil, errors.New("HMAC token presented but a public key is configured")
			}
			return []byte(keyMaterial), nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return parsePublicKey(keyMaterial)
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}
}

// ValidateJWT verifies tokenString against keyMaterial, which is an HMAC
// secret for HS* tokens or a PEM public key for RS*/ES* tokens.
func ValidateJWT(tokenString string, keyMaterial string) (*Claims, error) {
	if keyMaterial == "" {
		return nil, errors.New("no verification key configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, verificationKey(keyMaterial),
		jwt.WithValidMethods(supportedAlgs))
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
