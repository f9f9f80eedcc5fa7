package acmeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	denet "github.com/hlandau/goutils/net"
)

// Identifier names a resource for which authorization is required (RFC 8555
// §9.7.7).
type Identifier struct {
	Type  IdentifierType `json:"type"`
	Value string         `json:"value"`
}

// IdentifierType is the type of an Identifier. DNS is presently the only
// type any ACME realm issues for.
type IdentifierType string

// IdentifierTypeDNS indicates Identifier.Value is a DNS name.
const IdentifierTypeDNS IdentifierType = "dns"

// OrderStatus is the lifecycle state of an Order (RFC 8555 §7.1.6).
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderReady      OrderStatus = "ready"
	OrderProcessing OrderStatus = "processing"
	OrderValid      OrderStatus = "valid"
	OrderInvalid    OrderStatus = "invalid"
)

// IsFinal reports whether s is a terminal order status.
func (s OrderStatus) IsFinal() bool {
	return s == OrderValid || s == OrderInvalid
}

// Order represents a request for a certificate (RFC 8555 §7.1.3).
type Order struct {
	URL string `json:"-"`

	Status            OrderStatus  `json:"status,omitempty"`
	Expires           time.Time    `json:"expires,omitempty"`
	Identifiers       []Identifier `json:"identifiers,omitempty"`
	NotBefore         time.Time    `json:"notBefore,omitempty"`
	NotAfter          time.Time    `json:"notAfter,omitempty"`
	Error             *Problem     `json:"error,omitempty"`
	AuthorizationURLs []string     `json:"authorizations,omitempty"`
	FinalizeURL       string       `json:"finalize,omitempty"`
	CertificateURL    string       `json:"certificate,omitempty"`
}

// AuthorizationStatus is the lifecycle state of an Authorization (RFC 8555
// §7.1.6).
type AuthorizationStatus string

const (
	AuthorizationPending     AuthorizationStatus = "pending"
	AuthorizationValid       AuthorizationStatus = "valid"
	AuthorizationInvalid     AuthorizationStatus = "invalid"
	AuthorizationDeactivated AuthorizationStatus = "deactivated"
	AuthorizationRevoked     AuthorizationStatus = "revoked"
	AuthorizationExpired     AuthorizationStatus = "expired"
)

// IsFinal reports whether s is a terminal authorization status.
func (s AuthorizationStatus) IsFinal() bool {
	switch s {
	case AuthorizationValid, AuthorizationInvalid, AuthorizationDeactivated, AuthorizationRevoked, AuthorizationExpired:
		return true
	default:
		return false
	}
}

// Authorization represents one identifier's authorization requirement
// within an order (RFC 8555 §7.1.4).
type Authorization struct {
	URL string `json:"-"`

	Identifier Identifier          `json:"identifier,omitempty"`
	Status     AuthorizationStatus `json:"status,omitempty"`
	Expires    time.Time           `json:"expires,omitempty"`
	Wildcard   bool                `json:"wildcard,omitempty"`
	Challenges []Challenge         `json:"challenges,omitempty"`
}

// ChallengeStatus is the lifecycle state of a Challenge (RFC 8555 §8).
type ChallengeStatus string

const (
	ChallengePending    ChallengeStatus = "pending"
	ChallengeProcessing ChallengeStatus = "processing"
	ChallengeValid      ChallengeStatus = "valid"
	ChallengeInvalid    ChallengeStatus = "invalid"
)

// IsFinal reports whether s is a terminal challenge status.
func (s ChallengeStatus) IsFinal() bool {
	return s == ChallengeValid || s == ChallengeInvalid
}

// Challenge represents a single way of satisfying an Authorization (RFC
// 8555 §8). The supported Type values are "http-01", "dns-01", and
// "tls-alpn-01" (RFC 8737); any other type is left to the caller to
// recognize and fulfill, or to ignore.
type Challenge struct {
	URL       string          `json:"url,omitempty"`
	Type      string          `json:"type,omitempty"`
	Status    ChallengeStatus `json:"status,omitempty"`
	Validated time.Time       `json:"validated,omitempty"`
	Error     *Problem        `json:"error,omitempty"`
	Token     string          `json:"token,omitempty"`
}

const (
	ChallengeTypeHTTP01    = "http-01"
	ChallengeTypeDNS01     = "dns-01"
	ChallengeTypeTLSALPN01 = "tls-alpn-01"
)

type orderRequest struct {
	Identifiers []Identifier `json:"identifiers,omitempty"`
	NotBefore   *time.Time   `json:"notBefore,omitempty"`
	NotAfter    *time.Time   `json:"notAfter,omitempty"`
}

// NewOrder creates a new order for the given identifiers (RFC 8555 §7.4).
// The Client must already be bound (spec.md §4.6).
func (c *Client) NewOrder(ctx context.Context, identifiers []Identifier) (*Order, error) {
	if err := c.checkBound(); err != nil {
		return nil, err
	}

	dir, err := c.getDirectory(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(orderRequest{Identifiers: identifiers})
	if err != nil {
		return nil, wrapError(ErrKindOther, err)
	}

	res, respBody, err := c.signedPost(ctx, dir.NewOrder, c.kid(), c.key, body)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, wrapError(ErrKindUndecodable, err)
	}

	loc := res.Header.Get("Location")
	if loc == "" {
		return nil, newError(ErrKindOther, "acmeclient: newOrder response carried no Location header")
	}
	order.URL = loc

	return &order, nil
}

// GetOrder reloads an order by URL (supplemented feature; RFC 8555 §7.1.3,
// "GET or POST-as-GET"). Useful for resuming a Sign flow across process
// restarts once the order URL has been persisted by the caller.
func (c *Client) GetOrder(ctx context.Context, url string) (*Order, error) {
	if err := c.checkBound(); err != nil {
		return nil, err
	}

	_, respBody, err := c.postAsGet(ctx, url)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, wrapError(ErrKindUndecodable, err)
	}
	order.URL = url
	return &order, nil
}

// GetAuthorization reloads an authorization by URL (RFC 8555 §7.5).
func (c *Client) GetAuthorization(ctx context.Context, url string) (*Authorization, error) {
	if err := c.checkBound(); err != nil {
		return nil, err
	}

	_, respBody, err := c.postAsGet(ctx, url)
	if err != nil {
		return nil, err
	}

	var az Authorization
	if err := json.Unmarshal(respBody, &az); err != nil {
		return nil, wrapError(ErrKindUndecodable, err)
	}
	az.URL = url

	if len(az.Challenges) == 0 {
		return nil, newError(ErrKindAuthorization, "acmeclient: authorization offered no challenges")
	}

	return &az, nil
}

// RespondChallenge signals readiness for the server to validate ch,
// submitting an empty JSON object as the response body per RFC 8555 §7.5.1
// (the teacher's RespondToChallenge takes an explicit response payload;
// this client always submits {} since none of the three supported
// challenge types require any other payload).
func (c *Client) RespondChallenge(ctx context.Context, ch *Challenge) error {
	if err := c.checkBound(); err != nil {
		return err
	}

	_, respBody, err := c.signedPost(ctx, ch.URL, c.kid(), c.key, []byte("{}"))
	if err != nil {
		return err
	}

	var updated Challenge
	if err := json.Unmarshal(respBody, &updated); err != nil {
		return wrapError(ErrKindUndecodable, err)
	}
	*ch = updated
	return nil
}

// pollDeadline bounds how long waitAuthorization, FinalizeAndWait and
// waitOrderReady will each poll before
// giving up (spec.md §4.7, REDESIGN FLAGS: the fixed 10-iteration cap the
// original implementation layered on top of this deadline is dropped as
// redundant — see DESIGN.md).
const pollDeadline = 60 * time.Second

// randomDelay returns a random duration in [min, max), the jittered
// inter-poll delay spec.md §4.7 requires to avoid every client in a large
// fleet polling in lockstep.
func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// waitAuthorization polls az's URL until it reaches a final status or
// pollDeadline elapses, sleeping a random delay between polls (spec.md
// §4.7c).
func (c *Client) waitAuthorization(ctx context.Context, az *Authorization) error {
	deadline := time.Now().Add(pollDeadline)

	for {
		if az.Status.IsFinal() {
			break
		}
		if time.Now().After(deadline) {
			return newError(ErrKindTimeout, "acmeclient: timed out waiting for authorization")
		}

		select {
		case <-ctx.Done():
			return wrapError(ErrKindTimeout, ctx.Err())
		case <-time.After(randomDelay(1500*time.Millisecond, 3000*time.Millisecond)):
		}

		reloaded, err := c.GetAuthorization(ctx, az.URL)
		if err != nil {
			return err
		}
		*az = *reloaded
	}

	if az.Status != AuthorizationValid {
		return newError(ErrKindAuthorization, fmt.Sprintf("acmeclient: authorization %s reached non-valid status %q", az.URL, az.Status))
	}
	return nil
}

type finalizeRequest struct {
	// CSR is the DER-encoded CSR, marshaled as unpadded base64url per RFC
	// 8555 §7.4 (the teacher's finalizeReq in api-res.go uses the same
	// denet.Base64up type for this field).
	CSR denet.Base64up `json:"csr"`
}

// FinalizeAndWait submits csrDER (a DER-encoded CSR) to order's finalize
// endpoint, then polls the order until it reaches the "valid" or "invalid"
// status, and downloads and returns the issued certificate chain as
// PEM-encoded text (RFC 8555 §7.4.2, §7.4.2 "Downloading the Certificate").
func (c *Client) FinalizeAndWait(ctx context.Context, order *Order, csrDER []byte) (string, error) {
	if err := c.checkBound(); err != nil {
		return "", err
	}
	if order.Status != OrderReady {
		return "", newError(ErrKindOther, fmt.Sprintf("acmeclient: order is not ready (status %q)", order.Status))
	}

	body, err := json.Marshal(finalizeRequest{CSR: denet.Base64up(csrDER)})
	if err != nil {
		return "", wrapError(ErrKindOther, err)
	}

	_, respBody, err := c.signedPost(ctx, order.FinalizeURL, c.kid(), c.key, body)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(respBody, order); err != nil {
		return "", wrapError(ErrKindUndecodable, err)
	}

	deadline := time.Now().Add(pollDeadline)
	for !order.Status.IsFinal() {
		if time.Now().After(deadline) {
			return "", newError(ErrKindTimeout, "acmeclient: timed out waiting for order finalization")
		}

		select {
		case <-ctx.Done():
			return "", wrapError(ErrKindTimeout, ctx.Err())
		case <-time.After(randomDelay(500*time.Millisecond, 1000*time.Millisecond)):
		}

		reloaded, err := c.GetOrder(ctx, order.URL)
		if err != nil {
			return "", err
		}
		*order = *reloaded
	}

	if order.Status != OrderValid || order.CertificateURL == "" {
		msg := fmt.Sprintf("acmeclient: order %s finalized to non-valid status %q", order.URL, order.Status)
		if order.Error != nil {
			msg = fmt.Sprintf("%s: %s", msg, order.Error.Detail)
		}
		return "", newError(ErrKindCertificate, msg)
	}

	_, certBody, err := c.postAsGet(ctx, order.CertificateURL)
	if err != nil {
		return "", err
	}

	return string(certBody), nil
}
