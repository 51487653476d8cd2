package util

import (
	"strings"
	"testing"
)

func TestHashOwnerKeyDeterministic(t *testing.T) {
	a := HashOwnerKey("owner-1")
	b := HashOwnerKey("owner-1")
	if a != b {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("unexpected hash length: %d", len(a))
	}
	if a == HashOwnerKey("owner-2") {
		t.Fatal("different inputs produced the same hash")
	}
}

func TestHashReaderMatchesKnownDigest(t *testing.T) {
	got, err := HashReader(strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("digest = %s, want %s", got, want)
	}
}

func TestHashReaderLargeInput(t *testing.T) {
	big := strings.Repeat("paragraph of text\n", 4096)
	first, err := HashReader(strings.NewReader(big))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	second, err := HashReader(strings.NewReader(big))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if first != second {
		t.Fatal("digest not stable across reads")
	}
}
