package acmeclient

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/hlandau/xlog"
)

var nonceLog, _ = xlog.NewQuiet("acmeclient.nonce")

// noncePool is an in-memory set of unused replay-nonces harvested from every
// server response (spec.md §3 "NoncePool", §4.3). Acquire/harvest are
// serialized under a single mutex so that, even under concurrent signed
// requests, no nonce is ever handed out twice (spec.md §8 testable property
// 2). Adapted from the teacher's nonceSource (nonce.go), generalized to
// allow the HEAD-refill fallback URL spec.md §4.3 requires, and changed to
// reject a duplicate Replay-Nonce rather than silently ignoring it.
type noncePool struct {
	mu   sync.Mutex
	pool map[string]struct{}

	// refill is called when the pool is empty and a nonce is needed. It must
	// perform a HEAD request and call harvest with whatever Replay-Nonce it
	// receives. Set by the Client to HEAD directory.newNonce, falling back to
	// the request's own target URL when the directory has none (spec.md
	// §4.3).
	refill func(ctx context.Context, fallbackURL string) error
}

func newNoncePool() *noncePool {
	return &noncePool{pool: map[string]struct{}{}}
}

// acquire removes and returns one nonce from the pool, refilling via refill
// if the pool is empty.
func (np *noncePool) acquire(ctx context.Context, fallbackURL string) (string, error) {
	np.mu.Lock()
	if n, ok := np.tryPopLocked(); ok {
		np.mu.Unlock()
		return n, nil
	}
	np.mu.Unlock()

	if err := np.refill(ctx, fallbackURL); err != nil {
		return "", err
	}

	np.mu.Lock()
	defer np.mu.Unlock()
	if n, ok := np.tryPopLocked(); ok {
		return n, nil
	}
	return "", newError(ErrKindOther, "acmeclient: refill did not yield a usable nonce")
}

func (np *noncePool) tryPopLocked() (string, bool) {
	for k := range np.pool {
		delete(np.pool, k)
		return k, true
	}
	return "", false
}

// harvest decodes and inserts a Replay-Nonce header value. A malformed value
// is a bad-nonce error (spec.md §4.3 "Decode failure"); a value already
// present in the pool is an error (spec.md §8 testable property 2 / scenario
// S3) since the server should never reissue a nonce it has already given
// out.
func (np *noncePool) harvest(raw string) error {
	if raw == "" {
		return nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		nonceLog.Errorf("bad nonce %q: %v", raw, err)
		return &Error{Kind: ErrKindBadNonce, err: err, msg: "acmeclient: malformed Replay-Nonce"}
	}
	key := string(decoded)

	np.mu.Lock()
	defer np.mu.Unlock()

	if _, dup := np.pool[key]; dup {
		return newError(ErrKindOther, "acmeclient: duplicate Replay-Nonce received from server")
	}
	np.pool[key] = struct{}{}
	return nil
}
