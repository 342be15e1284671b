package genome

import "fmt"

// Config holds the DNA shape and mutation rates.
type Config struct {
	GeneLength            int     // values per gene
	MinGenes              int     // lower bound of the gene count
	MaxGenes              int     // upper bound of the gene count
	MutationChance        float64 // chance of the first gene in a pass to mutate
	GeneCountChangeChance float64 // share of mutations that add or remove a gene
	GeneDuplicateChance   float64 // chance a count change duplicates instead of removing
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		GeneLength:            16,
		MinGenes:              4,
		MaxGenes:              16,
		MutationChance:        0.1,
		GeneCountChangeChance: 0.1,
		GeneDuplicateChance:   0.6,
	}
}

// Validate reports an inconsistent configuration.
func (c Config) Validate() error {
	switch {
	case c.GeneLength < 2:
		return fmt.Errorf("genome: gene length %d is below 2", c.GeneLength)
	case c.MinGenes < 1:
		return fmt.Errorf("genome: min gene count %d is below 1", c.MinGenes)
	case c.MaxGenes < c.MinGenes:
		return fmt.Errorf("genome: max gene count %d is below min %d", c.MaxGenes, c.MinGenes)
	case c.MutationChance < 0 || c.MutationChance > 1:
		return fmt.Errorf("genome: mutation chance %v outside [0,1]", c.MutationChance)
	}
	return nil
}

// Pool recycles DNA and gene storage. A Pool is not safe for concurrent
// use; every world owns its own.
type Pool struct {
	cfg   Config
	dnas  []*DNA
	genes []*Gene
}

// NewPool creates a pool producing DNA of the given shape.
func NewPool(cfg Config) *Pool {
	return &Pool{cfg: cfg}
}

// Config returns the pool configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// NewDNA returns a DNA with MinGenes zeroed genes.
func (p *Pool) NewDNA() *DNA {
	var d *DNA
	if n := len(p.dnas); n > 0 {
		d = p.dnas[n-1]
		p.dnas = p.dnas[:n-1]
	} else {
		d = &DNA{pool: p}
	}
	for len(d.genes) < p.cfg.MinGenes {
		d.genes = append(d.genes, p.gene())
	}
	return d
}

// Release zeroes d and returns it, genes included, to the pool. d must
// not be used afterwards.
func (p *Pool) Release(d *DNA) {
	d.resize(p.cfg.MinGenes)
	d.Reset()
	p.dnas = append(p.dnas, d)
}

// Idle returns the number of pooled DNA and genes waiting for reuse.
func (p *Pool) Idle() (dnas, genes int) {
	return len(p.dnas), len(p.genes)
}

func (p *Pool) gene() *Gene {
	if n := len(p.genes); n > 0 {
		g := p.genes[n-1]
		p.genes = p.genes[:n-1]
		return g
	}
	return newGene(p.cfg.GeneLength)
}

func (p *Pool) releaseGene(g *Gene) {
	g.reset()
	p.genes = append(p.genes, g)
}
