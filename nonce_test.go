package acmeclient

import (
	"context"
	"testing"
)

func TestNoncePoolHarvestDuplicateErrors(t *testing.T) {
	np := newNoncePool()

	if err := np.harvest("oFvnlFP1wIhRlYS2jTaXbA"); err != nil {
		t.Fatalf("first harvest: unexpected error: %v", err)
	}

	err := np.harvest("oFvnlFP1wIhRlYS2jTaXbA")
	if err == nil {
		t.Fatal("expected an error inserting a duplicate nonce")
	}
}

func TestNoncePoolAcquireRefillsWhenEmpty(t *testing.T) {
	np := newNoncePool()
	refillCalls := 0
	np.refill = func(ctx context.Context, fallbackURL string) error {
		refillCalls++
		return np.harvest("c29tZS1ub25jZQ")
	}

	n, err := np.acquire(context.Background(), "https://example.org/acme/new-nonce")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if n == "" {
		t.Fatal("expected a non-empty nonce")
	}
	if refillCalls != 1 {
		t.Fatalf("expected exactly one refill call, got %d", refillCalls)
	}

	// The pool is now empty again; acquiring must refill a second time.
	if _, err := np.acquire(context.Background(), "https://example.org/acme/new-nonce"); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if refillCalls != 2 {
		t.Fatalf("expected two refill calls total, got %d", refillCalls)
	}
}

func TestNoncePoolHarvestEmptyIsNoop(t *testing.T) {
	np := newNoncePool()
	if err := np.harvest(""); err != nil {
		t.Fatalf("harvesting an empty nonce should be a no-op, got: %v", err)
	}
}
