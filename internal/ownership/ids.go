package ownership

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/crossbind/internal/ir"
)

// IDGenerator produces wrapper ids.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type IDGenerator interface {
	Generate() ir.WrapperID
}

// UUIDv7Generator generates time-sortable UUIDv7 wrapper ids, so journal
// rows sort by wrapper creation.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() ir.WrapperID {
	return ir.WrapperID(uuid.Must(uuid.NewV7()).String())
}

// SequenceGenerator returns "<prefix>-1", "<prefix>-2", ... for
// deterministic tests and golden traces.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix becomes "w".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "w"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
func (g *SequenceGenerator) Generate() ir.WrapperID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return ir.WrapperID(fmt.Sprintf("%s-%d", g.prefix, g.n))
}

// Reset restarts the sequence at 1.
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
