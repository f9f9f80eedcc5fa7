package actestutil

import (
	"bytes"
	"io"
	"net/http"
)

// StubResponse describes one canned HTTP response a StubTransport hands
// back in sequence.
type StubResponse struct {
	Status  int
	Header  http.Header
	Body    []byte
	ErrResp error // if non-nil, Do returns this error instead of a response
}

// StubTransport is an acmeclient.HTTPDoer that replays a fixed script of
// responses, recording every request it saw. It never touches the network.
// This is the stub transport spec.md's HTTP Transport interface component
// is explicitly designed to make possible.
type StubTransport struct {
	script   []StubResponse
	pos      int
	Requests []*http.Request
}

// NewStubTransport builds a StubTransport that returns each of responses in
// order, one per call to Do, and panics if Do is called more times than
// there are scripted responses.
func NewStubTransport(responses ...StubResponse) *StubTransport {
	return &StubTransport{script: responses}
}

func (s *StubTransport) Do(req *http.Request) (*http.Response, error) {
	s.Requests = append(s.Requests, req)

	if req.Body != nil {
		// Drain and replace so callers inspecting s.Requests can still read
		// the body afterward.
		body, _ := io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	if s.pos >= len(s.script) {
		panic("actestutil: StubTransport script exhausted")
	}
	r := s.script[s.pos]
	s.pos++

	if r.ErrResp != nil {
		return nil, r.ErrResp
	}

	header := r.Header
	if header == nil {
		header = http.Header{}
	}

	return &http.Response{
		StatusCode: r.Status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(r.Body)),
	}, nil
}
