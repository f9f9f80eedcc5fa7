package acmeutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	jose "gopkg.in/square/go-jose.v2"
)

// DefaultRSAKeySize is the RSA modulus size GetKey generates, matching the
// account-key size RFC 8555 implementations commonly default to.
const DefaultRSAKeySize = 2048

// GetKey generates a new RSA account key and wraps it as a *jose.JSONWebKey,
// the form acmeclient.Config.Key expects.
func GetKey() (*jose.JSONWebKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, DefaultRSAKeySize)
	if err != nil {
		return nil, err
	}
	return &jose.JSONWebKey{Key: key, Algorithm: string(jose.RS256)}, nil
}

// GetECDSAKey generates a new P-256 ECDSA key and wraps it as a
// *jose.JSONWebKey.
func GetECDSAKey() (*jose.JSONWebKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &jose.JSONWebKey{Key: key, Algorithm: string(jose.ES256)}, nil
}

// GetDomainPrivateKey generates a fresh key suitable for a leaf certificate
// (as opposed to an ACME account key): an ECDSA P-256 key, matching modern
// CA default issuance policy.
func GetDomainPrivateKey() (crypto.Signer, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// GetDomainCSR builds a DER-encoded PKCS#10 certificate signing request for
// the given primary common name and SANs, signed by key — the form
// Client.FinalizeAndWait and Client.Sign expect as csrDER.
func GetDomainCSR(key crypto.Signer, commonName string, names []string) ([]byte, error) {
	tmpl := &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: commonName},
		DNSNames:           names,
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}
	if _, ok := key.(*rsa.PrivateKey); ok {
		tmpl.SignatureAlgorithm = x509.SHA256WithRSA
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, key)
	if err != nil {
		return nil, fmt.Errorf("acmeutils: creating CSR: %w", err)
	}

	return der, nil
}

// GetSelfSignedCertificate emits a self-signed X.509 certificate, PEM
// encoded, from csrPEM and keyPEM: the subject (common name and SANs) is
// taken from the CSR, and the certificate is signed by keyPEM, which must be
// the CSR's own private key. It is a placeholder certificate to hold a
// position — e.g. in a TLS listener — before real issuance completes, not a
// challenge response; it carries no acmeIdentifier extension (RFC 8737 §3)
// and is unrelated to tls-alpn-01. Adapted from the teacher's
// acmeutils.CreateTLSSNICertificate (tls-sni-02), generalized from that
// challenge type's single hardcoded ".acme.invalid" SNI hostname to deriving
// the subject from an arbitrary caller-supplied CSR.
func GetSelfSignedCertificate(csrPEM, keyPEM []byte, validityDays int) ([]byte, error) {
	csrBlock, _ := pem.Decode(csrPEM)
	if csrBlock == nil {
		return nil, fmt.Errorf("acmeutils: no PEM block found in CSR")
	}
	csr, err := x509.ParseCertificateRequest(csrBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("acmeutils: parsing CSR: %w", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("acmeutils: CSR signature did not verify: %w", err)
	}

	key, err := KeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("acmeutils: parsing key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	crt := &x509.Certificate{
		Subject:               csr.Subject,
		SerialNumber:          serial,
		NotBefore:             now.Add(-1 * time.Hour),
		NotAfter:              now.Add(time.Duration(validityDays) * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              csr.DNSNames,
	}

	der, err := x509.CreateCertificate(rand.Reader, crt, crt, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("acmeutils: creating self-signed certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

// KeyToPEM encodes an RSA or ECDSA private key in PKCS#8 PEM form.
func KeyToPEM(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// KeyFromPEM decodes a PKCS#8 PEM private key produced by KeyToPEM.
func KeyFromPEM(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("acmeutils: no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("acmeutils: decoded key of type %T is not a crypto.Signer", key)
	}
	return signer, nil
}
