package acmeclient

import (
	"encoding/json"

	jose "gopkg.in/square/go-jose.v2"
)

// state is the JSON-serializable form of everything a Client needs to
// resume a session: which realm, which account key, and (if bound) which
// account. It deliberately excludes the nonce pool and directory cache,
// which are both safe and cheap to rebuild from scratch (spec.md §8
// testable property 6, "state round-trip").
type state struct {
	DirectoryURL string           `json:"directoryUrl"`
	Key          *jose.JSONWebKey `json:"key"`
	AccountURL   string           `json:"accountUrl,omitempty"`
}

// ExportState serializes everything needed to reconstruct an equivalent
// Client later via ImportState: the directory URL, the account private key,
// and the account URL if bound.
func (c *Client) ExportState() ([]byte, error) {
	s := state{
		DirectoryURL: c.cfg.DirectoryURL,
		Key:          c.cfg.Key,
		AccountURL:   c.kid(),
	}
	data, err := json.Marshal(&s)
	if err != nil {
		return nil, wrapError(ErrKindOther, err)
	}
	return data, nil
}

// ImportState reconstructs a Client from a blob produced by ExportState.
// Any Config fields other than DirectoryURL, Key, and AccountURL (HTTP
// transport, timeout, user agent, fulfiller) must be supplied fresh via
// overrides, since none of those are persisted.
func ImportState(data []byte, overrides Config) (*Client, error) {
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, wrapError(ErrKindUndecodable, err)
	}

	cfg := overrides
	cfg.DirectoryURL = s.DirectoryURL
	cfg.Key = s.Key
	cfg.AccountURL = s.AccountURL

	return NewClient(cfg)
}
