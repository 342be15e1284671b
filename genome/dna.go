package genome

import (
	"fmt"
	"math/rand"
)

// valueMutationShare is the share of mutations that always touch a single
// value, even when a gene count change would otherwise be rolled.
const valueMutationShare = 0.01

// DNA is the ordered gene list of one bot. Its length stays within
// [MinGenes, MaxGenes] of the owning pool's configuration.
type DNA struct {
	pool  *Pool
	genes []*Gene
}

// Len returns the gene count.
func (d *DNA) Len() int {
	return len(d.genes)
}

// Gene returns the gene at index i.
func (d *DNA) Gene(i int) *Gene {
	return d.genes[i]
}

// GeneLength returns the number of values in every gene.
func (d *DNA) GeneLength() int {
	return d.pool.cfg.GeneLength
}

// Randomize fills every gene with random values.
func (d *DNA) Randomize(rng *rand.Rand) {
	for _, g := range d.genes {
		g.randomize(rng)
	}
}

// Reset zeroes every gene without changing the gene count.
func (d *DNA) Reset() {
	for _, g := range d.genes {
		g.reset()
	}
}

// CopyFrom makes d an exact copy of other, growing or shrinking d as
// needed.
func (d *DNA) CopyFrom(other *DNA) {
	d.copyGenes(other.genes)
}

// Crossover rebuilds d from two parents. For every index up to the longer
// parent's gene count one parent is picked uniformly; when that parent has
// a gene at the index it becomes the next gene of d. d must be distinct
// from both parents.
func (d *DNA) Crossover(p1, p2 *DNA, rng *rand.Rand) {
	n := max(len(p1.genes), len(p2.genes))
	picked := make([]*Gene, 0, n)
	for i := 0; i < n; i++ {
		parent := p1
		if rng.Intn(2) == 1 {
			parent = p2
		}
		if i < len(parent.genes) {
			picked = append(picked, parent.genes[i])
		}
	}
	d.copyGenes(picked)
}

// Mutate runs one mutation pass. Each gene mutates with a chance that
// starts at MutationChance and halves after every mutating gene. A
// mutating gene either gets one random value or, with
// GeneCountChangeChance, is removed or duplicated. Duplicates are appended
// after the pass; the gene count never leaves [MinGenes, MaxGenes].
func (d *DNA) Mutate(rng *rand.Rand) {
	cfg := d.pool.cfg
	chance := cfg.MutationChance
	total := len(d.genes)
	removed := 0
	var added []*Gene

	kept := d.genes[:0]
	for _, g := range d.genes {
		if rng.Float64() >= chance {
			kept = append(kept, g)
			continue
		}
		chance /= 2

		r := rng.Float64()
		if r < valueMutationShare || r >= cfg.GeneCountChangeChance {
			g.mutate(rng)
			kept = append(kept, g)
			continue
		}

		live := total - removed + len(added)
		canRemove := live > cfg.MinGenes
		canAdd := live < cfg.MaxGenes
		switch {
		case canRemove && (!canAdd || rng.Float64() >= cfg.GeneDuplicateChance):
			d.pool.releaseGene(g)
			removed++
		case canAdd:
			dup := d.pool.gene()
			dup.CopyFrom(g)
			dup.mutate(rng)
			added = append(added, dup)
			kept = append(kept, g)
		default:
			g.mutate(rng)
			kept = append(kept, g)
		}
	}
	clear(d.genes[len(kept):total])
	d.genes = append(kept, added...)
}

// Genes returns a copy of all gene values.
func (d *DNA) Genes() [][]int8 {
	out := make([][]int8, len(d.genes))
	for i, g := range d.genes {
		out[i] = g.Values()
	}
	return out
}

// SetGenes replaces the DNA content with raw values. The gene count must
// be within the configured bounds and every gene must have the configured
// length.
func (d *DNA) SetGenes(values [][]int8) error {
	cfg := d.pool.cfg
	if len(values) < cfg.MinGenes || len(values) > cfg.MaxGenes {
		return fmt.Errorf("genome: gene count %d outside [%d,%d]", len(values), cfg.MinGenes, cfg.MaxGenes)
	}
	for i, v := range values {
		if len(v) != cfg.GeneLength {
			return fmt.Errorf("genome: gene %d has %d values, want %d", i, len(v), cfg.GeneLength)
		}
	}
	d.resize(len(values))
	for i, v := range values {
		d.genes[i].Set(v...)
	}
	return nil
}

// Equal reports whether d and other hold the same genes.
func (d *DNA) Equal(other *DNA) bool {
	if len(d.genes) != len(other.genes) {
		return false
	}
	for i, g := range d.genes {
		o := other.genes[i]
		for j, v := range g.values {
			if o.values[j] != v {
				return false
			}
		}
	}
	return true
}

// Distance counts the values that differ between d and other. Genes
// present in only one of them count as entirely different.
func (d *DNA) Distance(other *DNA) int {
	short, long := d.genes, other.genes
	if len(short) > len(long) {
		short, long = long, short
	}
	dist := 0
	for i, g := range short {
		o := long[i]
		for j, v := range g.values {
			if o.values[j] != v {
				dist++
			}
		}
	}
	for _, g := range long[len(short):] {
		dist += len(g.values)
	}
	return dist
}

func (d *DNA) copyGenes(src []*Gene) {
	d.resize(len(src))
	for i, g := range src {
		d.genes[i].CopyFrom(g)
	}
}

func (d *DNA) resize(n int) {
	for len(d.genes) < n {
		d.genes = append(d.genes, d.pool.gene())
	}
	for len(d.genes) > n {
		last := len(d.genes) - 1
		d.pool.releaseGene(d.genes[last])
		d.genes[last] = nil
		d.genes = d.genes[:last]
	}
}
