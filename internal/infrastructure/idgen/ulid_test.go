package idgen

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestULIDGenerator(t *testing.T) {
	gen := NewULIDGenerator()

	first := gen.Generate()
	second := gen.Generate()

	if first == second {
		t.Fatalf("expected unique ids, got %s twice", first)
	}

	if _, err := ulid.ParseStrict(first); err != nil {
		t.Fatalf("expected a valid ULID, got %q: %v", first, err)
	}
}
