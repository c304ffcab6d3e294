package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("sale")
	b := New("sale")
	if !strings.HasPrefix(a, "sale-") {
		t.Fatalf("expected sale- prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if !Valid(a) {
		t.Fatalf("expected %q to be valid", a)
	}
	if Valid("sale-123") {
		t.Fatalf("expected short id to be invalid")
	}
	if !Valid(New("")) {
		t.Fatalf("expected bare uuid to be valid")
	}
}
