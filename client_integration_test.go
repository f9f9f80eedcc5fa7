// +build integration

package acmeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/letsimpl/acmeclient/acmeutils"
	"github.com/letsimpl/acmeclient/actestutil"
)

// pebbleChallTestSrvFulfiller drives letsencrypt/challtestsrv's remote HTTP
// API (the same add-http01/del-http01 endpoints Pebble's companion
// challenge test server exposes on :8055) to satisfy http-01 challenges,
// adapted from the challtestsrv remote-control client pattern.
type pebbleChallTestSrvFulfiller struct {
	client *http.Client
	addr   string // e.g. "http://localhost:8055"
}

func (f *pebbleChallTestSrvFulfiller) post(path string, req interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	res, err := f.client.Post(f.addr+"/"+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return res.Body.Close()
}

func (f *pebbleChallTestSrvFulfiller) FulfillHTTP01(ctx context.Context, domain, token, keyAuthorization string) bool {
	err := f.post("add-http01", struct {
		Token   string
		Content string
	}{Token: token, Content: keyAuthorization})
	return err == nil
}

func (f *pebbleChallTestSrvFulfiller) ClearHTTP01(ctx context.Context, domain, token, keyAuthorization string) {
	f.post("del-http01", struct{ Token string }{Token: token})
}

// TestRealmClientAgainstPebble exercises the full account/order/authorization
// /finalize flow against a locally running Pebble ACME test server
// (https://github.com/letsencrypt/pebble) plus its companion
// challtestsrv-compatible challenge server, matching the teacher's
// TestRealmClient end-to-end flow.
//
// Run with: go test -tags=integration ./... after starting both
// `pebble -config test/config/pebble-config.json` (port 14000) and
// `pebble-challtestsrv` (HTTP control port 8055, DNS on 8053) locally.
func TestRealmClientAgainstPebble(t *testing.T) {
	key, err := acmeutils.GetECDSAKey()
	if err != nil {
		t.Fatalf("generating account key: %v", err)
	}

	fulfiller := &pebbleChallTestSrvFulfiller{
		client: actestutil.InsecureHTTPClient(),
		addr:   "http://localhost:8055",
	}

	c, err := NewClient(Config{
		DirectoryURL: "https://localhost:14000/dir",
		Key:          key,
		HTTPClient:   actestutil.InsecureHTTPClient(),
		Fulfiller:    fulfiller,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx := context.Background()

	acct, err := c.NewAccount(ctx, []string{"mailto:integration-test@example.org"}, nil)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if acct.URL == "" {
		t.Fatal("expected a non-empty account URL")
	}
	if !c.IsBound() {
		t.Fatal("client should be bound after NewAccount")
	}
	t.Logf("account terms of service: %q", acct.TermsOfServiceURL)

	domainKey, err := acmeutils.GetDomainPrivateKey()
	if err != nil {
		t.Fatalf("generating domain key: %v", err)
	}
	csr, err := acmeutils.GetDomainCSR(domainKey, "integration.example", []string{"integration.example"})
	if err != nil {
		t.Fatalf("GetDomainCSR: %v", err)
	}

	certPEM, err := c.Sign(ctx, []string{"integration.example"}, csr)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if certPEM == "" {
		t.Fatal("expected a non-empty issued certificate")
	}
	t.Logf("issued certificate:\n%s", certPEM)

	if err := c.DeactivateAccount(ctx); err != nil {
		t.Fatalf("DeactivateAccount: %v", err)
	}
	if c.IsBound() {
		t.Fatal("client should be unbound after DeactivateAccount")
	}

	// A fresh client whose directory has not yet been fetched, pre-bound to
	// the now-deactivated account, must get an error when asked to load the
	// account URL as an order, matching the teacher's second-RealmClient
	// check.
	c2, err := NewClient(Config{
		DirectoryURL: "https://localhost:14000/dir",
		Key:          key,
		AccountURL:   acct.URL,
		HTTPClient:   actestutil.InsecureHTTPClient(),
	})
	if err != nil {
		t.Fatalf("NewClient (second client): %v", err)
	}
	if _, err := c2.GetOrder(ctx, acct.URL); err == nil {
		t.Fatal("expected loading the account URL as an order to fail")
	}
}
