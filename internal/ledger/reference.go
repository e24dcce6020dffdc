package ledger

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

const referencePrefix = "TXN"

// ReferenceGenerator produces transaction reference numbers from the
// current time at millisecond resolution plus a random four digit suffix.
// That makes collisions unlikely, not impossible; the log's uniqueness
// constraint is the real guarantee, and the engine regenerates on
// collision.
type ReferenceGenerator struct {
	mu  sync.Mutex
	now func() time.Time
	rng *rand.Rand
}

// NewReferenceGenerator builds a generator. Nil arguments fall back to the
// wall clock and a time-seeded random source; tests inject both.
func NewReferenceGenerator(now func() time.Time, rng *rand.Rand) *ReferenceGenerator {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ReferenceGenerator{now: now, rng: rng}
}

// Next returns a new reference candidate.
func (g *ReferenceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	suffix := 1000 + g.rng.Intn(9000)
	return fmt.Sprintf("%s%d%04d", referencePrefix, g.now().UnixMilli(), suffix)
}
