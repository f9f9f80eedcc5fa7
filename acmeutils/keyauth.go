// Package acmeutils provides key, CSR, and key-authorization helpers used
// alongside the acmeclient request engine: generating an account or domain
// key, building the CSR an order's finalize step needs, and computing the
// key authorizations RFC 8555 §8 challenge responses are built from.
package acmeutils

import (
	"crypto"
	"crypto/sha256"
	"encoding/base64"

	jose "gopkg.in/square/go-jose.v2"
)

// Thumbprint calculates the RFC 7638 base64url SHA-256 thumbprint of a
// public or private key. Adapted from the teacher's Base64Thumbprint
// (acmeutils/keyauth.go), ported from gopkg.in/square/go-jose.v1 to v2.
func Thumbprint(key interface{}) (string, error) {
	k := jose.JSONWebKey{Key: key}
	thumbprint, err := k.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(thumbprint), nil
}

// KeyAuthorization computes the key authorization for token using
// accountKey, per RFC 8555 §8.1: token + "." + Thumbprint(accountKey).
func KeyAuthorization(accountKey interface{}, token string) (string, error) {
	thumbprint, err := Thumbprint(accountKey)
	if err != nil {
		return "", err
	}

	return token + "." + thumbprint, nil
}

// DNSKeyAuthorization computes the value a dns-01 challenge's
// _acme-challenge TXT record must hold: the base64url SHA-256 digest of the
// key authorization (RFC 8555 §8.4).
func DNSKeyAuthorization(accountKey interface{}, token string) (string, error) {
	ka, err := KeyAuthorization(accountKey, token)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(sha256Bytes([]byte(ka))), nil
}

func sha256Bytes(b []byte) []byte {
	h := sha256.New()
	h.Write(b)
	return h.Sum(nil)
}
