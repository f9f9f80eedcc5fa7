// Package acmeclient implements the client side of the Automatic
// Certificate Management Environment protocol (RFC 8555), including
// optional External Account Binding (RFC 8555 §7.3.4).
//
// The hard engineering this package covers is the ACME protocol engine: the
// JOSE/JWS-signed request pipeline, nonce lifecycle management, the
// order/authorization/challenge state machine, bounded polling, retry on bad
// nonce, and dispatch to pluggable challenge fulfillment. It deliberately
// does not implement concrete challenge fulfillers (WebDAV, filesystem, DNS
// provider APIs) — see the Fulfiller interfaces — nor is it a CA, a
// persistent certificate store, or a renewal scheduler.
//
// Typical use:
//
//	key, _ := acmeutils.GetKey()
//	client, _ := acmeclient.NewClient(acmeclient.Config{
//		DirectoryURL: acmeendpoints.LetsEncryptStagingV2.DirectoryURL,
//		Key:          key,
//	})
//	acct, _ := client.NewAccount(ctx, []string{"mailto:admin@example.org"}, nil)
//	cert, _ := client.Sign(ctx, []string{"example.org"}, csrDER)
package acmeclient

import (
	"crypto"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/hlandau/xlog"
	jose "gopkg.in/square/go-jose.v2"
)

var log, Log = xlog.NewQuiet("acmeclient")

const (
	// DefaultTimeout is the default per-HTTP-request timeout (spec.md §6).
	DefaultTimeout = 40.0

	version = "1.0.0"
)

// Fulfiller is implemented by callers who want Client.Sign to actually
// complete challenges. It is checked for HTTP01Fulfiller/DNS01Fulfiller/
// TLSALPN01Fulfiller conformance per challenge type (spec.md §4.8, design
// note 9); a nil Fulfiller, or one implementing none of those interfaces,
// behaves as if every fulfill call returned false.
type Fulfiller interface{}

// Config configures a Client (spec.md §6).
type Config struct {
	// DirectoryURL is the ACME realm's directory URL. Required.
	DirectoryURL string

	// Key is the account's JWK private key. Required. Generate one with
	// acmeutils.GetKey.
	Key *jose.JSONWebKey

	// Algorithm is not used for signing: the JWS signature algorithm is
	// always inferred from Key's private key type (RS256 for RSA, ES256/
	// ES384/ES512 for ECDSA). When Algorithm is empty, NewClient checks that
	// such an algorithm exists for Key; when it is set, that check is skipped.
	Algorithm jose.SignatureAlgorithm

	// AccountURL optionally pre-binds the client to an existing account,
	// equivalent to having already called NewAccount in a prior session.
	AccountURL string

	// Timeout is the per-HTTP-request timeout, in seconds. Defaults to
	// DefaultTimeout.
	Timeout float64

	// UserAgent, if set, is prepended to the default User-Agent header.
	UserAgent string

	// HTTPClient overrides the HTTP transport. Defaults to http.DefaultClient.
	// Any type implementing HTTPDoer (which *http.Client satisfies) may be
	// supplied — this is how tests substitute a stub transport.
	HTTPClient HTTPDoer

	// Fulfiller receives challenge fulfillment callbacks during Sign. See
	// the Fulfiller interface and the HTTP01Fulfiller/DNS01Fulfiller/
	// TLSALPN01Fulfiller interfaces.
	Fulfiller Fulfiller
}

func (cfg *Config) timeoutDuration() time.Duration {
	secs := cfg.Timeout
	if secs <= 0 {
		secs = DefaultTimeout
	}
	return time.Duration(secs * float64(time.Second))
}

func (cfg *Config) userAgent() string {
	ua := cfg.UserAgent
	if ua != "" {
		ua += " "
	}
	return fmt.Sprintf("%sacmeclient/%s Go-http-client/1.1 %s/%s", ua, version, runtime.GOOS, runtime.GOARCH)
}

func (cfg *Config) httpDoer() HTTPDoer {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return http.DefaultClient
}

// Client accesses and mutates the resources of a single ACME realm. A
// Client is safe for concurrent use: its NoncePool and directory cache are
// guarded, and it holds no references to Orders/Authorizations/Challenges
// returned to callers (spec.md §3 "Ownership").
//
// A Client is bound exactly when its account URL is known, either because
// AccountURL was supplied in Config or because NewAccount succeeded
// (spec.md §8 testable property 1, "Bind invariant"). DeactivateAccount is
// the only transition back to unbound.
type Client struct {
	cfg Config
	key crypto.Signer

	mu         sync.RWMutex
	accountURL string

	nonces   *noncePool
	dirCache *directoryCache
}

// NewClient constructs a Client bound to cfg's realm. It performs no network
// I/O itself: the directory is fetched lazily on first use via the client's
// directoryCache (spec.md §4.2), matching the teacher's RealmClient, which
// likewise defers the first directory GET.
func NewClient(cfg Config) (*Client, error) {
	if cfg.DirectoryURL == "" {
		return nil, newError(ErrKindOther, "acmeclient: Config.DirectoryURL is required")
	}
	if cfg.Key == nil {
		return nil, newError(ErrKindOther, "acmeclient: Config.Key is required")
	}

	signer, ok := cfg.Key.Key.(crypto.Signer)
	if !ok {
		return nil, newError(ErrKindOther, fmt.Sprintf("acmeclient: Config.Key holds a %T, which is not a crypto.Signer", cfg.Key.Key))
	}
	if cfg.Algorithm == "" {
		if _, err := algorithmFromKey(signer); err != nil {
			return nil, wrapError(ErrKindOther, err)
		}
	}

	c := &Client{
		cfg:        cfg,
		key:        signer,
		accountURL: cfg.AccountURL,
	}
	c.nonces = newNoncePool()
	c.nonces.refill = c.headForNonce
	c.dirCache = newDirectoryCache(cfg.DirectoryURL, c.fetchDirectory)

	return c, nil
}

// IsBound reports whether the client has a known account URL, either because
// NewAccount already succeeded or Config.AccountURL pre-bound it (spec.md §8
// testable property 1).
func (c *Client) IsBound() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountURL != ""
}

// checkBound returns an error unless the client is bound. Called by every
// account-scoped and order-scoped operation (spec.md §4.5, §4.6).
func (c *Client) checkBound() error {
	if !c.IsBound() {
		return newError(ErrKindNotRegistered, "acmeclient: client is not bound to an account")
	}
	return nil
}

// checkUnbound returns an error if the client is already bound. Called by
// NewAccount, which must not be used to rebind an already-bound client
// (spec.md §4.5).
func (c *Client) checkUnbound() error {
	if c.IsBound() {
		return newError(ErrKindAlreadyRegistered, "acmeclient: client is already bound to an account")
	}
	return nil
}

// kid returns the account URL to sign requests with, or "" if unbound (in
// which case the account's public JWK is embedded instead; spec.md §4.1).
func (c *Client) kid() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountURL
}

// bind records a newly obtained account URL, transitioning the client from
// unbound to bound (spec.md §4.5).
func (c *Client) bind(accountURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountURL = accountURL
}

// unbind clears the account URL, transitioning the client back to unbound
// (spec.md §4.5, DeactivateAccount).
func (c *Client) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountURL = ""
}

// publicJWK returns the account key's public half, used as the EAB inner
// payload (RFC 8555 §7.3.4).
func (c *Client) publicJWK() *jose.JSONWebKey {
	pub := c.cfg.Key.Public()
	return &pub
}
