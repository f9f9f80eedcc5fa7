package acmeclient

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	jose "gopkg.in/square/go-jose.v2"
)

func TestSignJWSEmbedsJWKWhenUnbound(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	payload := []byte(`{"termsOfServiceAgreed":true,"contact":["mailto:cert-admin@example.org","mailto:admin@example.org"]}`)

	raw, err := signJWS(key, "", "1234", "12345", payload)
	if err != nil {
		t.Fatalf("signJWS: %v", err)
	}

	var parsed struct {
		Protected string `json:"protected"`
		Payload   string `json:"payload"`
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("decoding flattened JWS: %v", err)
	}

	sig, err := jose.ParseSigned(raw)
	if err != nil {
		t.Fatalf("reparsing JWS: %v", err)
	}
	if len(sig.Signatures) != 1 {
		t.Fatalf("expected exactly one signature, got %d", len(sig.Signatures))
	}

	hdr := sig.Signatures[0].Protected
	if hdr.Algorithm != string(jose.RS256) {
		t.Fatalf("expected alg RS256, got %q", hdr.Algorithm)
	}
	if hdr.JSONWebKey == nil {
		t.Fatal("expected an embedded jwk for an unbound (kid-less) signature")
	}
	if hdr.KeyID != "" {
		t.Fatalf("did not expect a kid when signing unbound, got %q", hdr.KeyID)
	}

	extraURL, _ := hdr.ExtraHeaders["url"].(string)
	if extraURL != "1234" {
		t.Fatalf("expected url header %q, got %q", "1234", extraURL)
	}

	out, err := sig.Verify(key.Public())
	if err != nil {
		t.Fatalf("verifying signature: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("payload mismatch: got %q", out)
	}
}

func TestSignJWSUsesKIDWhenBound(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	raw, err := signJWS(key, "https://example.org/acct/1", "https://example.org/order/1", "nonce-value", []byte("{}"))
	if err != nil {
		t.Fatalf("signJWS: %v", err)
	}

	sig, err := jose.ParseSigned(raw)
	if err != nil {
		t.Fatalf("reparsing JWS: %v", err)
	}

	hdr := sig.Signatures[0].Protected
	if hdr.JSONWebKey != nil {
		t.Fatal("did not expect an embedded jwk when signing with a kid")
	}
	if hdr.KeyID != "https://example.org/acct/1" {
		t.Fatalf("expected kid to be the account URL, got %q", hdr.KeyID)
	}
}

func TestSignEABUsesHMAC(t *testing.T) {
	accountKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating account key: %v", err)
	}
	pub := jose.JSONWebKey{Key: accountKey.Public()}

	hmacKey := []byte("test-eab-hmac-key-material-0123")
	raw, err := signEAB(&pub, "eab-kid-1", hmacKey, "https://example.org/acme/new-account")
	if err != nil {
		t.Fatalf("signEAB: %v", err)
	}

	sig, err := jose.ParseSigned(string(raw))
	if err != nil {
		t.Fatalf("reparsing EAB JWS: %v", err)
	}

	hdr := sig.Signatures[0].Protected
	if hdr.Algorithm != string(jose.HS256) {
		t.Fatalf("expected alg HS256, got %q", hdr.Algorithm)
	}
	if hdr.KeyID != "eab-kid-1" {
		t.Fatalf("expected kid eab-kid-1, got %q", hdr.KeyID)
	}

	out, err := sig.Verify(hmacKey)
	if err != nil {
		t.Fatalf("verifying EAB signature: %v", err)
	}

	var decodedPub jose.JSONWebKey
	if err := json.Unmarshal(out, &decodedPub); err != nil {
		t.Fatalf("decoding EAB payload: %v", err)
	}
}
