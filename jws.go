package acmeclient

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"fmt"

	jose "gopkg.in/square/go-jose.v2"
)

// algorithmFromKey derives the JWS signature algorithm for a private key,
// the same dispatch the teacher uses in api.go's algorithmFromKey.
func algorithmFromKey(key crypto.PrivateKey) (jose.SignatureAlgorithm, error) {
	switch v := key.(type) {
	case *rsa.PrivateKey:
		return jose.RS256, nil
	case *ecdsa.PrivateKey:
		switch v.Curve.Params().Name {
		case "P-256":
			return jose.ES256, nil
		case "P-384":
			return jose.ES384, nil
		case "P-521":
			return jose.ES512, nil
		default:
			return "", fmt.Errorf("acmeclient: unsupported ECDSA curve: %s", v.Curve.Params().Name)
		}
	default:
		return "", fmt.Errorf("acmeclient: unsupported private key type: %T", key)
	}
}

// staticNonceSource adapts a single nonce value to jose.NonceSource, so that
// go-jose's signer embeds exactly the nonce the request engine acquired
// rather than reaching back into shared, possibly-concurrently-mutated
// state while signing.
type staticNonceSource string

func (n staticNonceSource) Nonce() (string, error) { return string(n), nil }

// signJWS builds a flattened-JSON-serialized JWS over payload, bound to url
// and nonce, per spec.md §4.1. If kid is non-empty the protected header
// carries "kid"; otherwise it carries an embedded "jwk" of key's public half.
func signJWS(key crypto.PrivateKey, kid, url, nonce string, payload []byte) (string, error) {
	alg, err := algorithmFromKey(key)
	if err != nil {
		return "", err
	}

	signingKey := jose.SigningKey{Algorithm: alg, Key: key}
	opts := &jose.SignerOptions{
		NonceSource: staticNonceSource(nonce),
		EmbedJWK:    kid == "",
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	}
	if kid != "" {
		opts.ExtraHeaders["kid"] = kid
	}

	signer, err := jose.NewSigner(signingKey, opts)
	if err != nil {
		return "", err
	}

	sig, err := signer.Sign(payload)
	if err != nil {
		return "", err
	}

	return sig.FullSerialize(), nil
}

// signEAB builds the inner HMAC-SHA-256 JWS required for External Account
// Binding (RFC 8555 §7.3.4): the payload is the account's public JWK, the
// protected header carries kid=eabKID, alg=HS256, url=newAccountURL, and the
// whole thing is signed with the EAB HMAC key. Pure function: no I/O, no
// client state, per spec.md design note "EAB inner JWS".
func signEAB(accountPub *jose.JSONWebKey, eabKID string, eabKey []byte, newAccountURL string) (json.RawMessage, error) {
	payload, err := json.Marshal(accountPub)
	if err != nil {
		return nil, err
	}

	signingKey := jose.SigningKey{Algorithm: jose.HS256, Key: eabKey}
	opts := &jose.SignerOptions{
		EmbedJWK: false,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": newAccountURL,
			"kid": eabKID,
		},
	}

	signer, err := jose.NewSigner(signingKey, opts)
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(sig.FullSerialize()), nil
}
