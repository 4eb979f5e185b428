// Package proptest runs seeded property checks. A property is a
// predicate over randomly generated inputs; the seed is printed on
// failure and can be pinned with the PROPTEST_SEED environment
// variable to replay a failing run.
//
//	proptest.QuickCheck(t, "range stays in bounds", func(g *proptest.Generator) bool {
//	    n := g.IntRange(1, 100)
//	    return n >= 1 && n <= 100
//	})
package proptest

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// Generator produces random test inputs from a single seeded source,
// so a whole trial is reproducible from one seed.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// New returns a Generator for the given seed. Seed 0 picks a
// time-based seed.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the seed this generator was built with.
func (g *Generator) Seed() int64 { return g.seed }

// Intn returns a random int in [0, n). Panics if n <= 0.
func (g *Generator) Intn(n int) int { return g.rng.Intn(n) }

// Float64 returns a random float64 in [0, 1).
func (g *Generator) Float64() float64 { return g.rng.Float64() }

// Bool returns true or false with equal probability.
func (g *Generator) Bool() bool { return g.rng.Intn(2) == 1 }

// IntRange returns a random int in [min, max]. Panics if min > max.
func (g *Generator) IntRange(min, max int) int {
	if min > max {
		panic("proptest: IntRange min > max")
	}
	return min + g.rng.Intn(max-min+1)
}

const (
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	identChars = lowerChars + "0123456789_"
)

// IdentifierLower returns a lowercase identifier of length [1, maxLen]:
// a letter followed by letters, digits, or underscores.
func (g *Generator) IdentifierLower(maxLen int) string {
	if maxLen < 1 {
		maxLen = 1
	}
	b := make([]byte, g.IntRange(1, maxLen))
	b[0] = lowerChars[g.Intn(len(lowerChars))]
	for i := 1; i < len(b); i++ {
		b[i] = identChars[g.Intn(len(identChars))]
	}
	return string(b)
}

// StringFrom returns a string of length [0, maxLen] drawn from charset.
func (g *Generator) StringFrom(charset string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	b := make([]byte, g.Intn(maxLen+1))
	for i := range b {
		b[i] = charset[g.Intn(len(charset))]
	}
	return string(b)
}

// Check runs the property for the given number of trials and reports
// the first failure through t.Error, together with the seed needed to
// replay it.
func Check(t *testing.T, name string, trials int, prop func(g *Generator) bool) {
	t.Helper()
	if trials <= 0 {
		trials = 100
	}

	seed := time.Now().UnixNano()
	if env := os.Getenv("PROPTEST_SEED"); env != "" {
		if pinned, err := strconv.ParseInt(env, 10, 64); err == nil {
			seed = pinned
		}
	}
	g := New(seed)

	for i := 0; i < trials; i++ {
		if !prop(g) {
			t.Errorf("property %q failed on trial %d (replay with PROPTEST_SEED=%d)",
				name, i+1, seed)
			return
		}
	}
}

// QuickCheck is Check with the default 100 trials.
func QuickCheck(t *testing.T, name string, prop func(g *Generator) bool) {
	t.Helper()
	Check(t, name, 100, prop)
}
