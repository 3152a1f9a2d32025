package mondrian

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

/*
RandomGenerator is the sole source of randomness for a forest. It is
seedable and produces identical sequences for identical seeds, which
makes forest growth fully deterministic given a seed and a sample
order.
*/
type RandomGenerator struct {
	src rand.Source
	rnd *rand.Rand
}

// DefaultSeed is used when the configured seed is zero.
const DefaultSeed uint64 = 1

/*
NewRandomGenerator returns a generator seeded with the given seed.
A zero seed selects DefaultSeed.
*/
func NewRandomGenerator(seed uint64) *RandomGenerator {
	if seed == 0 {
		seed = DefaultSeed
	}
	src := rand.NewSource(seed)
	return &RandomGenerator{src: src, rnd: rand.New(src)}
}

/*
Uniform returns a value uniformly distributed between the two given
bounds. The bounds may be given in either order.
*/
func (g *RandomGenerator) Uniform(a, b float64) float64 {
	if a > b {
		a, b = b, a
	}
	if a == b {
		return a
	}
	return distuv.Uniform{Min: a, Max: b, Src: g.src}.Rand()
}

/*
Exponential returns a draw from an exponential distribution with the
given rate.
*/
func (g *RandomGenerator) Exponential(rate float64) float64 {
	return distuv.Exponential{Rate: rate, Src: g.src}.Rand()
}

/*
Discrete returns an index drawn from a categorical distribution with
probabilities proportional to the given scores. Negative scores count
as zero; when no score is positive the index is drawn uniformly.
*/
func (g *RandomGenerator) Discrete(scores []float64) int {
	w := make([]float64, len(scores))
	var total float64
	for i, s := range scores {
		if s > 0 {
			w[i] = s
			total += s
		}
	}
	if total <= 0 {
		return g.rnd.Intn(len(scores))
	}
	c := distuv.NewCategorical(w, g.src)
	return int(c.Rand())
}
