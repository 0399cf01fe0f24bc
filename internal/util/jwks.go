package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// JWKS is a JSON Web Key Set as served by an identity provider.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK holds the public parts of an EC or RSA key.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Find returns the key with the given kid, or the first signing key when kid
// is empty.
func (s JWKS) Find(kid string) (*JWK, error) {
	for i := range s.Keys {
		k := &s.Keys[i]
		if kid != "" && k.Kid == kid {
			return k, nil
		}
		if kid == "" && (k.Use == "" || k.Use == "sig") {
			return k, nil
		}
	}
	if kid != "" {
		return nil, fmt.Errorf("no key with kid %q", kid)
	}
	return nil, errors.New("no signing key in key set")
}

// PEM encodes the key as a PKIX public key, the format ValidateJWT accepts.
func (k *JWK) PEM() (string, error) {
	var pub any
	switch k.Kty {
	case "EC":
		curve, err := ellipticCurve(k.Crv)
		if err != nil {
			return "", err
		}
		x, err := decodeBigInt(k.X)
		if err != nil {
			return "", fmt.Errorf("decode x: %w", err)
		}
		y, err := decodeBigInt(k.Y)
		if err != nil {
			return "", fmt.Errorf("decode y: %w", err)
		}
		pub = &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	case "RSA":
		n, err := decodeBigInt(k.N)
		if err != nil {
			return "", fmt.Errorf("decode n: %w", err)
		}
		e, err := decodeBigInt(k.E)
		if err != nil {
			return "", fmt.Errorf("decode e: %w", err)
		}
		pub = &rsa.PublicKey{N: n, E: int(e.Int64())}
	default:
		return "", fmt.Errorf("unsupported key type %q", k.Kty)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func ellipticCurve(crv string) (elliptic.Curve, error) {
	switch crv {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	}
	return nil, fmt.Errorf("unsupported curve %q", crv)
}

func decodeBigInt(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
