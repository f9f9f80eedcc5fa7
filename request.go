package acmeclient

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"net/http"

	"github.com/peterhellberg/link"
)

// rawRequest performs a single, unsigned HTTP request (used for the plain
// directory GET and for nonce-refill HEADs), applying the client's
// configured timeout and user agent, and harvesting any Replay-Nonce on the
// response before returning. It maps transport failures to ErrKindConnect
// and context deadline exceeded to ErrKindTimeout, per spec.md §4.4.
func (c *Client) rawRequest(ctx context.Context, method, url string, body []byte) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeoutDuration())
	defer cancel()

	var rdr *bytes.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, nil, wrapError(ErrKindOther, err)
	}
	req.Header.Set("User-Agent", c.cfg.userAgent())
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/jose+json")
	}

	res, err := c.cfg.httpDoer().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, wrapError(ErrKindTimeout, ctx.Err())
		}
		return nil, nil, wrapError(ErrKindConnect, err)
	}
	respBody, err := readLimited(res, maxBodySize)
	if err != nil {
		return res, nil, wrapError(ErrKindConnect, err)
	}

	if nonce := res.Header.Get("Replay-Nonce"); nonce != "" {
		if err := c.nonces.harvest(nonce); err != nil {
			return res, respBody, err
		}
	}

	return res, respBody, nil
}

// headForNonce issues a HEAD against url purely to harvest a fresh
// Replay-Nonce, as required by noncePool.refill (spec.md §4.3).
func (c *Client) headForNonce(ctx context.Context, url string) error {
	_, _, err := c.rawRequest(ctx, http.MethodHead, url, nil)
	return err
}

// postOnce signs body (nil for POST-as-GET) and performs a single POST to
// url, with no bad-nonce retry. kid is the account URL to bind the JWS to,
// or empty to embed the account's public JWK instead (spec.md §4.1).
func (c *Client) postOnce(ctx context.Context, url, kid string, key crypto.PrivateKey, body []byte) (*http.Response, []byte, error) {
	nonceFallback := url
	if dir, err := c.getDirectory(ctx); err == nil && dir.NewNonce != "" {
		nonceFallback = dir.NewNonce
	}

	nonce, err := c.nonces.acquire(ctx, nonceFallback)
	if err != nil {
		return nil, nil, err
	}
	// nonces.acquire hands back the raw decoded bytes the pool keys on
	// (nonce.go's harvest); the wire form the protected header must carry is
	// the base64url encoding of those bytes (spec.md §4.1 "nonce=b64url(nonce)").
	encodedNonce := base64.RawURLEncoding.EncodeToString([]byte(nonce))

	if body == nil {
		body = []byte{}
	}

	jws, err := signJWS(key, kid, url, encodedNonce, body)
	if err != nil {
		return nil, nil, wrapError(ErrKindOther, err)
	}

	res, respBody, err := c.rawRequest(ctx, http.MethodPost, url, []byte(jws))
	if err != nil {
		return res, respBody, err
	}

	if err := classifyResponse(res, respBody); err != nil {
		return res, respBody, err
	}

	return res, respBody, nil
}

// signedPost performs a signed POST, retrying exactly once with a freshly
// acquired nonce if (and only if) the first attempt fails with a bad-nonce
// error (spec.md §4.4 step 5, §7 recovery policy, §8 testable property 3).
func (c *Client) signedPost(ctx context.Context, url, kid string, key crypto.PrivateKey, body []byte) (*http.Response, []byte, error) {
	res, respBody, err := c.postOnce(ctx, url, kid, key, body)
	if err == nil {
		return res, respBody, nil
	}

	if acmeErr, ok := asError(err); ok && acmeErr.Kind == ErrKindBadNonce {
		return c.postOnce(ctx, url, kid, key, body)
	}

	return res, respBody, err
}

// asError recovers an *Error from an arbitrary error value.
func asError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

// postAsGet performs the "POST-as-GET" idiom: a signed POST with an empty
// payload, used in lieu of an authenticated GET (spec.md GLOSSARY).
func (c *Client) postAsGet(ctx context.Context, url string) (*http.Response, []byte, error) {
	return c.signedPost(ctx, url, c.kid(), c.key, nil)
}

// termsOfServiceFromLink extracts an RFC 8288 Link header with
// rel="terms-of-service", if present (RFC 8555 §7.3; see SPEC_FULL.md §4).
func termsOfServiceFromLink(res *http.Response) string {
	if res == nil {
		return ""
	}
	if l := link.ParseResponse(res)["terms-of-service"]; l != nil {
		return l.URI
	}
	return ""
}
