package acmeclient

import (
	"testing"
)

func TestExportImportStateRoundTrip(t *testing.T) {
	c := newTestClient(t)
	c.bind("https://example.org/acme/acct/1")

	data, err := c.ExportState()
	if err != nil {
		t.Fatalf("ExportState: %v", err)
	}

	c2, err := ImportState(data, Config{})
	if err != nil {
		t.Fatalf("ImportState: %v", err)
	}

	if c2.cfg.DirectoryURL != c.cfg.DirectoryURL {
		t.Fatalf("directory URL mismatch: got %q, want %q", c2.cfg.DirectoryURL, c.cfg.DirectoryURL)
	}
	if !c2.IsBound() || c2.kid() != c.kid() {
		t.Fatalf("account URL did not round-trip: got %q, want %q", c2.kid(), c.kid())
	}
}

func TestImportStateRejectsGarbage(t *testing.T) {
	if _, err := ImportState([]byte("not json"), Config{}); err == nil {
		t.Fatal("expected an error importing garbage state")
	}
}
