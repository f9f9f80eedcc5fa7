package acmeclient

import (
	"context"
	"encoding/json"
)

// ExternalAccountBinding carries the key identifier and HMAC key a CA
// issues out-of-band, binding a new ACME account to an existing CA account
// (RFC 8555 §7.3.4). Both fields are required when a realm's directory
// advertises meta.externalAccountRequired.
type ExternalAccountBinding struct {
	// KID is the key identifier the CA issued out-of-band.
	KID string
	// HMACKey is the raw (already base64url-decoded) MAC key the CA issued
	// alongside KID.
	HMACKey []byte
}

// accountPayload is the newAccount/account-update request body (RFC 8555
// §7.3).
type accountPayload struct {
	Contact                []string        `json:"contact,omitempty"`
	TermsOfServiceAgreed   bool            `json:"termsOfServiceAgreed,omitempty"`
	ExternalAccountBinding json.RawMessage `json:"externalAccountBinding,omitempty"`
	Status                 string          `json:"status,omitempty"`
}

// accountResource is the account object a successful newAccount/account
// fetch returns (RFC 8555 §7.1.2).
type accountResource struct {
	Status  string   `json:"status"`
	Contact []string `json:"contact,omitempty"`
}

// Account describes the account resource NewAccount created (RFC 8555
// §7.1.2), plus any terms-of-service URL the realm conveyed alongside it.
type Account struct {
	// URL is the account's resource URL, the "kid" this Client signs
	// subsequent requests with.
	URL string

	Status  string
	Contact []string

	// TermsOfServiceURL is the target of a rel="terms-of-service" Link
	// header on the new-account response, if the realm sent one (RFC 8555
	// §7.3 permits conveying ToS this way, e.g. when it has changed since
	// the directory's meta.termsOfService was last read). Empty if none was
	// present.
	TermsOfServiceURL string
}

// NewAccount creates a new account on the realm and binds this Client to it
// (spec.md §4.5). eab must be non-nil when the realm's directory advertises
// meta.externalAccountRequired (RFC 8555 §7.3.4); when it is non-nil it is
// sent whether or not the realm requires it.
// NewAccount fails with ErrKindAlreadyRegistered if the Client is already
// bound.
//
// termsOfServiceAgreed is always sent as true: this client has no
// interactive surface to present terms for acceptance, matching the
// teacher's RegisterAccount, which does the same (see DESIGN.md, Open
// Question "terms of service agreement").
func (c *Client) NewAccount(ctx context.Context, contact []string, eab *ExternalAccountBinding) (*Account, error) {
	if err := c.checkUnbound(); err != nil {
		return nil, err
	}

	dir, err := c.getDirectory(ctx)
	if err != nil {
		return nil, err
	}

	if dir.Meta.ExternalAccountRequired && eab == nil {
		return nil, newError(ErrKindExternalAccountRequired, "acmeclient: realm requires External Account Binding")
	}

	payload := accountPayload{
		Contact:              contact,
		TermsOfServiceAgreed: true,
	}
	if eab != nil {
		eabJWS, err := signEAB(c.publicJWK(), eab.KID, eab.HMACKey, dir.NewAccount)
		if err != nil {
			return nil, wrapError(ErrKindOther, err)
		}
		payload.ExternalAccountBinding = eabJWS
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wrapError(ErrKindOther, err)
	}

	res, respBody, err := c.signedPost(ctx, dir.NewAccount, "", c.key, body)
	if err != nil {
		return nil, err
	}

	var resource accountResource
	if err := json.Unmarshal(respBody, &resource); err != nil {
		return nil, wrapError(ErrKindUndecodable, err)
	}

	loc := res.Header.Get("Location")
	if loc == "" {
		return nil, newError(ErrKindOther, "acmeclient: newAccount response carried no Location header")
	}

	c.bind(loc)
	return &Account{
		URL:               loc,
		Status:            resource.Status,
		Contact:           resource.Contact,
		TermsOfServiceURL: termsOfServiceFromLink(res),
	}, nil
}

// DeactivateAccount deactivates the bound account and unbinds the Client
// (spec.md §4.5, RFC 8555 §7.3.6). Fails with ErrKindNotRegistered if the
// Client is not bound.
func (c *Client) DeactivateAccount(ctx context.Context) error {
	if err := c.checkBound(); err != nil {
		return err
	}

	body, err := json.Marshal(accountPayload{Status: "deactivated"})
	if err != nil {
		return wrapError(ErrKindOther, err)
	}

	_, _, err = c.signedPost(ctx, c.kid(), c.kid(), c.key, body)
	if err != nil {
		return err
	}

	c.unbind()
	return nil
}
