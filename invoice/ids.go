package invoice

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// =============================================================================
// ID GENERATORS
// =============================================================================

// UUIDGenerator generates random UUIDv4 ids. The production default.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// SequenceGenerator generates deterministic ids ("it-1", "it-2", ...).
// For tests that need to reference sub-entity ids without capturing them.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Int64
}

func (g *SequenceGenerator) NewID() string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, g.n.Add(1))
}
