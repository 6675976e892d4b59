package idgen

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates ULID-based IDs.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID. ULIDs sort by creation time, so run ids
// published to Redis list in run order.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
