package acmeclient

import (
	"net/http"
	"testing"
)

func TestClassifyResponseRateLimited(t *testing.T) {
	res := &http.Response{
		StatusCode: 429,
		Header:     http.Header{"Content-Type": []string{"application/problem+json"}},
	}
	body := []byte(`{"type":"urn:ietf:params:acme:error:rateLimited","detail":"too many requests"}`)

	err := classifyResponse(res, body)
	if err == nil {
		t.Fatal("expected an error")
	}

	acmeErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if acmeErr.Kind != ErrKindRateLimit {
		t.Fatalf("expected ErrKindRateLimit, got %v", acmeErr.Kind)
	}
}

func TestClassifyResponseBadNonce(t *testing.T) {
	res := &http.Response{
		StatusCode: 400,
		Header:     http.Header{"Content-Type": []string{"application/problem+json"}},
	}
	body := []byte(`{"type":"urn:ietf:params:acme:error:badNonce"}`)

	err := classifyResponse(res, body)
	acmeErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if acmeErr.Kind != ErrKindBadNonce {
		t.Fatalf("expected ErrKindBadNonce, got %v", acmeErr.Kind)
	}
}

func TestClassifyResponseSuccessIsNil(t *testing.T) {
	res := &http.Response{StatusCode: 200}
	if err := classifyResponse(res, []byte(`{}`)); err != nil {
		t.Fatalf("expected nil error for status 200, got %v", err)
	}
}

func TestClassifyResponseUndecodable(t *testing.T) {
	res := &http.Response{
		StatusCode: 500,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
	}

	err := classifyResponse(res, []byte(`<html>oops</html>`))
	acmeErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if acmeErr.Kind != ErrKindUndecodable {
		t.Fatalf("expected ErrKindUndecodable, got %v", acmeErr.Kind)
	}
}
