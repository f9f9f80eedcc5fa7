package acmeutils

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"
)

func TestGetKeyProducesRS256JWK(t *testing.T) {
	jwk, err := GetKey()
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if jwk.Algorithm != "RS256" {
		t.Fatalf("expected algorithm RS256, got %q", jwk.Algorithm)
	}
	if !jwk.Valid() {
		t.Fatal("expected a valid JWK")
	}
}

func TestGetDomainCSRParses(t *testing.T) {
	key, err := GetDomainPrivateKey()
	if err != nil {
		t.Fatalf("GetDomainPrivateKey: %v", err)
	}

	der, err := GetDomainCSR(key, "example.com", []string{"example.com", "www.example.com"})
	if err != nil {
		t.Fatalf("GetDomainCSR: %v", err)
	}

	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		t.Fatalf("parsing CSR: %v", err)
	}
	if csr.Subject.CommonName != "example.com" {
		t.Fatalf("expected CN example.com, got %q", csr.Subject.CommonName)
	}
	if len(csr.DNSNames) != 2 {
		t.Fatalf("expected 2 SANs, got %d", len(csr.DNSNames))
	}
	if err := csr.CheckSignature(); err != nil {
		t.Fatalf("CSR signature did not verify: %v", err)
	}
}

func TestGetSelfSignedCertificateMatchesCSRSubject(t *testing.T) {
	key, err := GetDomainPrivateKey()
	if err != nil {
		t.Fatalf("GetDomainPrivateKey: %v", err)
	}
	keyPEM, err := KeyToPEM(key)
	if err != nil {
		t.Fatalf("KeyToPEM: %v", err)
	}

	csrDER, err := GetDomainCSR(key, "example.com", []string{"example.com", "www.example.com"})
	if err != nil {
		t.Fatalf("GetDomainCSR: %v", err)
	}
	csrPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER})

	certPEM, err := GetSelfSignedCertificate(csrPEM, keyPEM, 10)
	if err != nil {
		t.Fatalf("GetSelfSignedCertificate: %v", err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatalf("expected a CERTIFICATE PEM block, got %v", block)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}
	if cert.Subject.CommonName != "example.com" {
		t.Fatalf("expected CN example.com, got %q", cert.Subject.CommonName)
	}
	if len(cert.DNSNames) != 2 {
		t.Fatalf("expected 2 SANs, got %d", len(cert.DNSNames))
	}
	if err := cert.CheckSignatureFrom(cert); err != nil {
		t.Fatalf("certificate is not self-signed: %v", err)
	}

	wantValidity := 10*24*time.Hour + time.Hour
	gotValidity := cert.NotAfter.Sub(cert.NotBefore)
	if gotValidity < wantValidity-time.Minute || gotValidity > wantValidity+time.Minute {
		t.Fatalf("unexpected validity period: %v, want ~%v", gotValidity, wantValidity)
	}
}

func TestKeyToPEMRoundTrip(t *testing.T) {
	key, err := GetDomainPrivateKey()
	if err != nil {
		t.Fatalf("GetDomainPrivateKey: %v", err)
	}

	pemBytes, err := KeyToPEM(key)
	if err != nil {
		t.Fatalf("KeyToPEM: %v", err)
	}

	key2, err := KeyFromPEM(pemBytes)
	if err != nil {
		t.Fatalf("KeyFromPEM: %v", err)
	}

	der1, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		t.Fatalf("marshaling original public key: %v", err)
	}
	der2, err := x509.MarshalPKIXPublicKey(key2.Public())
	if err != nil {
		t.Fatalf("marshaling round-tripped public key: %v", err)
	}
	if !bytes.Equal(der1, der2) {
		t.Fatal("public key did not survive PEM round trip")
	}
}
