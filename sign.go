package acmeclient

import (
	"context"
	"crypto/x509"
	"time"
)

// Sign runs the full RFC 8555 issuance flow for the given domains: create an
// order, authorize every identifier (fulfilling whichever offered challenge
// Config.Fulfiller supports, clearing it afterward), finalize with csrDER,
// and return the issued certificate chain as PEM text. The Client must
// already be bound (spec.md §4.8, the top-level orchestration the Python
// original's sign() performs).
//
// csrDER's public key need not match any particular key; it is the key the
// issued certificate will attest to, independent of the account key used to
// authorize the request.
func (c *Client) Sign(ctx context.Context, domains []string, csrDER []byte) (string, error) {
	if err := c.checkBound(); err != nil {
		return "", err
	}
	if _, err := x509.ParseCertificateRequest(csrDER); err != nil {
		return "", wrapError(ErrKindOther, err)
	}

	idents := make([]Identifier, len(domains))
	for i, d := range domains {
		idents[i] = Identifier{Type: IdentifierTypeDNS, Value: d}
	}

	order, err := c.NewOrder(ctx, idents)
	if err != nil {
		return "", err
	}

	for _, azURL := range order.AuthorizationURLs {
		if err := c.authorizeOne(ctx, azURL); err != nil {
			return "", err
		}
	}

	order, err = c.GetOrder(ctx, order.URL)
	if err != nil {
		return "", err
	}
	if order.Status == OrderProcessing {
		if err := c.waitOrderReady(ctx, order); err != nil {
			return "", err
		}
	}

	return c.FinalizeAndWait(ctx, order, csrDER)
}

// authorizeOne satisfies a single authorization: it loads the authorization,
// returns immediately if already valid, otherwise tries each offered
// challenge in turn until one's fulfiller reports success, submits the
// response, and waits for the authorization to finalize.
func (c *Client) authorizeOne(ctx context.Context, azURL string) error {
	az, err := c.GetAuthorization(ctx, azURL)
	if err != nil {
		return err
	}
	if az.Status == AuthorizationValid {
		return nil
	}

	domain := az.Identifier.Value
	var fulfilled *Challenge
	for i := range az.Challenges {
		ch := &az.Challenges[i]
		ok, err := c.fulfillChallenge(ctx, domain, ch)
		if err != nil {
			return err
		}
		if ok {
			fulfilled = ch
			break
		}
	}
	if fulfilled == nil {
		return newError(ErrKindFulfillmentFailed, "acmeclient: no challenge handler fulfilled any challenge offered for "+domain)
	}
	defer c.clearChallenge(ctx, domain, fulfilled)

	if err := c.RespondChallenge(ctx, fulfilled); err != nil {
		return err
	}

	return c.waitAuthorization(ctx, az)
}

// waitOrderReady polls order until it leaves the "processing" status
// (RFC 8555 §7.1.6 state diagram: an order may already be processing by the
// time all of its authorizations are satisfied).
func (c *Client) waitOrderReady(ctx context.Context, order *Order) error {
	deadline := time.Now().Add(pollDeadline)
	for order.Status == OrderProcessing {
		if time.Now().After(deadline) {
			return newError(ErrKindTimeout, "acmeclient: timed out waiting for order to leave processing")
		}

		select {
		case <-ctx.Done():
			return wrapError(ErrKindTimeout, ctx.Err())
		case <-time.After(randomDelay(500 * time.Millisecond, 1000 * time.Millisecond)):
		}

		reloaded, err := c.GetOrder(ctx, order.URL)
		if err != nil {
			return err
		}
		*order = *reloaded
	}
	return nil
}
