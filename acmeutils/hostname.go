package acmeutils

import (
	"errors"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeHostname validates and punycode-normalizes a DNS identifier
// before it is used in an order's Identifiers list (RFC 8555 §7.1.3): a
// trailing root dot is stripped, non-ASCII labels are converted via IDNA,
// and at most one leading "*" wildcard label is accepted.
func NormalizeHostname(h string) (string, error) {
	h = strings.TrimSuffix(h, ".")
	if h == "" {
		return "", errors.New("acmeutils: empty hostname")
	}

	labels := strings.Split(h, ".")
	out := make([]string, len(labels))
	for i, label := range labels {
		if label == "" {
			return "", errors.New("acmeutils: empty label in hostname")
		}
		if label == "*" {
			if i != 0 {
				return "", errors.New("acmeutils: wildcard label must be leftmost")
			}
			out[i] = "*"
			continue
		}
		if strings.ContainsRune(label, '*') {
			return "", errors.New("acmeutils: wildcard must occupy an entire label")
		}

		a, err := idna.Lookup.ToASCII(label)
		if err != nil {
			return "", err
		}
		out[i] = a
	}

	return strings.Join(out, "."), nil
}
