package acmeclient

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	denet "github.com/hlandau/goutils/net"
)

// ErrorKind classifies the failure modes an ACME operation can surface, per
// RFC 8555 error semantics plus the transport- and protocol-level failures
// this client itself can detect.
type ErrorKind int

const (
	// ErrKindOther is a generic, unclassified error.
	ErrKindOther ErrorKind = iota
	// ErrKindConnect indicates a transport failure reaching the server.
	ErrKindConnect
	// ErrKindTimeout indicates a per-request or per-phase deadline was exceeded.
	ErrKindTimeout
	// ErrKindBadNonce indicates the server rejected the nonce used to sign a
	// request. Recovered internally by exactly one retry; surfaced only if
	// the retry also fails.
	ErrKindBadNonce
	// ErrKindUndecodable indicates an error response could not be parsed as
	// an RFC 7807 problem document.
	ErrKindUndecodable
	// ErrKindRateLimit indicates the server returned urn:...:rateLimited.
	ErrKindRateLimit
	// ErrKindUnauthorized indicates the server returned urn:...:unauthorized.
	ErrKindUnauthorized
	// ErrKindExternalAccountRequired indicates the realm requires External
	// Account Binding and none was supplied.
	ErrKindExternalAccountRequired
	// ErrKindNotRegistered indicates an operation that requires a bound
	// client was called on an unbound one.
	ErrKindNotRegistered
	// ErrKindAlreadyRegistered indicates new-account was called on an
	// already-bound client.
	ErrKindAlreadyRegistered
	// ErrKindAuthorization indicates an authorization reached a non-valid
	// terminal state.
	ErrKindAuthorization
	// ErrKindFulfillmentFailed indicates no challenge handler fulfilled any
	// challenge offered for an authorization.
	ErrKindFulfillmentFailed
	// ErrKindCertificate indicates finalize or order polling reported the
	// order invalid.
	ErrKindCertificate
	// ErrKindGenericACME indicates any other RFC 8555 problem document.
	ErrKindGenericACME
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindConnect:
		return "connect"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindBadNonce:
		return "bad-nonce"
	case ErrKindUndecodable:
		return "undecodable"
	case ErrKindRateLimit:
		return "rate-limit"
	case ErrKindUnauthorized:
		return "unauthorized"
	case ErrKindExternalAccountRequired:
		return "external-account-required"
	case ErrKindNotRegistered:
		return "not-registered"
	case ErrKindAlreadyRegistered:
		return "already-registered"
	case ErrKindAuthorization:
		return "authorization"
	case ErrKindFulfillmentFailed:
		return "fulfillment-failed"
	case ErrKindCertificate:
		return "certificate"
	case ErrKindGenericACME:
		return "generic-acme"
	default:
		return "other"
	}
}

// Problem is an RFC 7807 problem document as returned by an ACME endpoint.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Error is the error type returned by every fallible operation in this
// package. Callers should use errors.As to recover it and inspect Kind.
type Error struct {
	Kind ErrorKind

	// Problem is the parsed RFC 7807 problem document, if the failure
	// originated from an ACME error response.
	Problem *Problem

	// Status is the HTTP status code of the response, if any.
	Status int

	msg string
	err error
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg
	}
	if e.Problem != nil {
		return fmt.Sprintf("[%d] %s %s", e.Status, e.Problem.Type, e.Problem.Detail)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.err }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func wrapError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

const acmeErrorNS = "urn:ietf:params:acme:error:"

// classifyResponse inspects an HTTP response and, if it represents an ACME
// failure (status >= 400), decodes the RFC 7807 problem document and maps it
// to an *Error of the appropriate ErrorKind. Returns nil for a successful
// response.
func classifyResponse(res *http.Response, body []byte) error {
	if res.StatusCode < 400 {
		return nil
	}

	mimeType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if mimeType != "application/problem+json" && mimeType != "application/json" {
		return &Error{Kind: ErrKindUndecodable, Status: res.StatusCode,
			msg: fmt.Sprintf("undecodable error response: status %d, content-type %q", res.StatusCode, res.Header.Get("Content-Type"))}
	}

	var p Problem
	if err := json.Unmarshal(body, &p); err != nil {
		return &Error{Kind: ErrKindUndecodable, Status: res.StatusCode, err: err,
			msg: fmt.Sprintf("undecodable error response: status %d: %v", res.StatusCode, err)}
	}

	switch p.Type {
	case acmeErrorNS + "badNonce":
		return &Error{Kind: ErrKindBadNonce, Problem: &p, Status: res.StatusCode}
	case acmeErrorNS + "rateLimited":
		return &Error{Kind: ErrKindRateLimit, Problem: &p, Status: res.StatusCode}
	case acmeErrorNS + "unauthorized":
		return &Error{Kind: ErrKindUnauthorized, Problem: &p, Status: res.StatusCode}
	case acmeErrorNS + "externalAccountRequired":
		return &Error{Kind: ErrKindExternalAccountRequired, Problem: &p, Status: res.StatusCode}
	default:
		return &Error{Kind: ErrKindGenericACME, Problem: &p, Status: res.StatusCode}
	}
}

// readLimited reads the body of res, bounding it the same way the teacher's
// util-errors.go and api-res.go do with denet.LimitReader, to avoid a
// misbehaving or hostile server exhausting memory.
func readLimited(res *http.Response, max int64) ([]byte, error) {
	defer res.Body.Close()
	return readAll(denet.LimitReader(res.Body, max))
}
