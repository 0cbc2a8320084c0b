package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces lexicographically sortable ULIDs. Monotonic entropy
// keeps ids ordered even when several are minted in the same millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

func DefaultGenerator() *Generator {
	defaultOnce.Do(func() {
		defaultGen = NewGenerator()
	})
	return defaultGen
}

func NewULID() string {
	return DefaultGenerator().New()
}
