package account

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// NumberLength is the fixed length of generated account numbers.
const NumberLength = 16

// NumberGenerator draws random fixed-length numeric account number
// candidates. Randomness is injected so tests can force collisions;
// uniqueness itself is the store's job.
type NumberGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNumberGenerator builds a generator. A nil rng falls back to a
// time-seeded source.
func NewNumberGenerator(rng *rand.Rand) *NumberGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &NumberGenerator{rng: rng}
}

// Next returns a candidate 16-digit numeric account number.
func (g *NumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var b strings.Builder
	b.Grow(NumberLength)
	for i := 0; i < NumberLength; i++ {
		b.WriteByte(byte('0' + g.rng.Intn(10)))
	}
	return b.String()
}
