package journal

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator issues run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// UUIDGenerator issues UUIDv7 identifiers. Time-ordered, so journal IDs
// sort by creation even across machines.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// FixedIDGenerator issues sequential identifiers for tests.
type FixedIDGenerator struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (g *FixedIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	prefix := g.Prefix
	if prefix == "" {
		prefix = "run"
	}
	return fmt.Sprintf("%s-%04d", prefix, g.n), nil
}
