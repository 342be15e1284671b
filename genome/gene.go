// Package genome holds the genetic material of a bot: fixed-length genes
// of signed byte values grouped into a variable-length DNA.
package genome

import "math/rand"

// Gene is a fixed-length sequence of signed byte values, read left to
// right as an instruction stream. A Gene is owned by exactly one DNA.
type Gene struct {
	values []int8
}

func newGene(length int) *Gene {
	return &Gene{values: make([]int8, length)}
}

// Len returns the number of values in the gene.
func (g *Gene) Len() int {
	return len(g.values)
}

// Value returns the value at index i.
func (g *Gene) Value(i int) int8 {
	return g.values[i]
}

// SetValue overwrites the value at index i.
func (g *Gene) SetValue(i int, v int8) {
	g.values[i] = v
}

// Set copies values into the start of the gene. Values beyond the gene
// length are ignored; positions not covered keep their current value.
func (g *Gene) Set(values ...int8) {
	copy(g.values, values)
}

// Values returns a copy of the gene values.
func (g *Gene) Values() []int8 {
	out := make([]int8, len(g.values))
	copy(out, g.values)
	return out
}

// CopyFrom overwrites g with the values of other.
func (g *Gene) CopyFrom(other *Gene) {
	copy(g.values, other.values)
}

func (g *Gene) randomize(rng *rand.Rand) {
	for i := range g.values {
		g.values[i] = RandomValue(rng)
	}
}

// mutate replaces one random value.
func (g *Gene) mutate(rng *rand.Rand) {
	g.values[rng.Intn(len(g.values))] = RandomValue(rng)
}

func (g *Gene) reset() {
	clear(g.values)
}

// RandomValue returns a uniformly distributed gene value.
func RandomValue(rng *rand.Rand) int8 {
	return int8(rng.Intn(256) - 128)
}

// RandomRange returns a uniformly distributed value in [lo, hi].
// The bounds may be given in either order.
func RandomRange(rng *rand.Rand, lo, hi int8) int8 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return int8(int(lo) + rng.Intn(int(hi)-int(lo)+1))
}
