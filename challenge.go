package acmeclient

import (
	"context"

	"github.com/letsimpl/acmeclient/acmeutils"
)

// HTTP01Fulfiller is implemented by a Config.Fulfiller that can complete
// http-01 challenges (RFC 8555 §8.3): serving keyAuthorization at
// http://domain/.well-known/acme-challenge/token. FulfillHTTP01 should
// return once the resource is being served and return false if it cannot
// serve it. Once FulfillHTTP01 has returned true, ClearHTTP01 is called
// afterward, whether or not validation succeeds, to remove the resource; it
// is not called for a challenge whose FulfillHTTP01 returned false.
type HTTP01Fulfiller interface {
	FulfillHTTP01(ctx context.Context, domain, token, keyAuthorization string) bool
	ClearHTTP01(ctx context.Context, domain, token, keyAuthorization string)
}

// DNS01Fulfiller is implemented by a Config.Fulfiller that can complete
// dns-01 challenges (RFC 8555 §8.4): publishing a TXT record for
// _acme-challenge.domain containing the (already-digested) value.
type DNS01Fulfiller interface {
	FulfillDNS01(ctx context.Context, domain, value string) bool
	ClearDNS01(ctx context.Context, domain, value string)
}

// TLSALPN01Fulfiller is implemented by a Config.Fulfiller that can complete
// tls-alpn-01 challenges (RFC 8737): serving a self-signed certificate
// carrying the acmeIdentifier extension over TLS-ALPN for domain.
type TLSALPN01Fulfiller interface {
	FulfillTLSALPN01(ctx context.Context, domain, keyAuthorization string) bool
	ClearTLSALPN01(ctx context.Context, domain, keyAuthorization string)
}

// GetKeyAuthorization computes the key authorization for a challenge token
// using this Client's account key (RFC 8555 §8.1).
func (c *Client) GetKeyAuthorization(token string) (string, error) {
	return acmeutils.KeyAuthorization(c.publicJWK().Key, token)
}

// fulfillChallenge dispatches to whichever capability interface
// cfg.Fulfiller implements for ch.Type, per spec.md design note 9 (the Go
// analogue of the Python original's subclass method-override dispatch in
// fulfill_challenge). It returns false, with no error, if Fulfiller is nil
// or implements no matching interface — the caller treats this challenge as
// unusable and tries another offered by the same authorization.
func (c *Client) fulfillChallenge(ctx context.Context, domain string, ch *Challenge) (bool, error) {
	switch ch.Type {
	case ChallengeTypeHTTP01:
		f, ok := c.cfg.Fulfiller.(HTTP01Fulfiller)
		if !ok {
			return false, nil
		}
		ka, err := c.GetKeyAuthorization(ch.Token)
		if err != nil {
			return false, wrapError(ErrKindOther, err)
		}
		return f.FulfillHTTP01(ctx, domain, ch.Token, ka), nil

	case ChallengeTypeDNS01:
		f, ok := c.cfg.Fulfiller.(DNS01Fulfiller)
		if !ok {
			return false, nil
		}
		value, err := acmeutils.DNSKeyAuthorization(c.publicJWK().Key, ch.Token)
		if err != nil {
			return false, wrapError(ErrKindOther, err)
		}
		return f.FulfillDNS01(ctx, domain, value), nil

	case ChallengeTypeTLSALPN01:
		f, ok := c.cfg.Fulfiller.(TLSALPN01Fulfiller)
		if !ok {
			return false, nil
		}
		ka, err := c.GetKeyAuthorization(ch.Token)
		if err != nil {
			return false, wrapError(ErrKindOther, err)
		}
		return f.FulfillTLSALPN01(ctx, domain, ka), nil

	default:
		return false, nil
	}
}

// clearChallenge undoes fulfillChallenge's effect, best-effort. Errors are
// not surfaced: cleanup failing should never fail an otherwise-successful
// Sign (matches the Python original's clear_challenge dispatch, which is a
// no-op by default and never raises).
func (c *Client) clearChallenge(ctx context.Context, domain string, ch *Challenge) {
	switch ch.Type {
	case ChallengeTypeHTTP01:
		if f, ok := c.cfg.Fulfiller.(HTTP01Fulfiller); ok {
			ka, err := c.GetKeyAuthorization(ch.Token)
			if err == nil {
				f.ClearHTTP01(ctx, domain, ch.Token, ka)
			}
		}
	case ChallengeTypeDNS01:
		if f, ok := c.cfg.Fulfiller.(DNS01Fulfiller); ok {
			value, err := acmeutils.DNSKeyAuthorization(c.publicJWK().Key, ch.Token)
			if err == nil {
				f.ClearDNS01(ctx, domain, value)
			}
		}
	case ChallengeTypeTLSALPN01:
		if f, ok := c.cfg.Fulfiller.(TLSALPN01Fulfiller); ok {
			ka, err := c.GetKeyAuthorization(ch.Token)
			if err == nil {
				f.ClearTLSALPN01(ctx, domain, ka)
			}
		}
	}
}
