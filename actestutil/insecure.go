// Package actestutil provides facilities for exercising acmeclient against a
// local ACME test server (e.g. Pebble) or, via StubTransport, without any
// server at all.
package actestutil

import (
	"crypto/tls"
	"net/http"
)

// InsecureHTTPClient is an http.Client with certificate verification
// disabled, for talking to a local test CA (such as Pebble) that presents a
// certificate no production trust store would accept. Adapted from the
// teacher's pebbletest package, generalized from a package-level
// init()-constructed singleton to a constructor so tests can each get their
// own *http.Client.
func InsecureHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	return &http.Client{Transport: transport}
}
