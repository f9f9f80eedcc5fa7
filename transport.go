package acmeclient

import "net/http"

// HTTPDoer is the abstract HTTP transport this client drives every ACME
// request through (spec.md §2 component 3). *http.Client satisfies it
// directly, so production code needs no adapter; tests substitute a stub
// that never touches the network.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
