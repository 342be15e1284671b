package opcode

import (
	"math/rand"

	"github.com/Gordon-from-Blumberg/evo-cell/genome"
)

// ActionDef describes one action-registry opcode.
type ActionDef struct {
	Code        int8
	Category    Category
	Name        string
	Description string
	Tag         string // counter tag shared by related actions
	Parameters  []ParameterDef
	Embryo      bool // also registered in the embryo set

	Action ActionKind // valid when Category == CategoryAction
	Spec   SpecKind   // valid otherwise
}

// CounterTag returns the key of the per-run invocation counter. Actions
// without a tag count on their own name.
func (d *ActionDef) CounterTag() string {
	if d.Tag != "" {
		return d.Tag
	}
	return d.Name
}

// Is reports whether d is the given control-flow opcode.
func (d *ActionDef) Is(k SpecKind) bool {
	return d.Category != CategoryAction && d.Spec == k
}

func (d *ActionDef) String() string {
	return d.Name
}

// ParameterDef describes one action parameter.
type ParameterDef struct {
	Name    string
	Default DefaultValue
}

// DefaultValue fills a parameter the genome does not provide: either a
// constant or a random value in [Min, Max].
type DefaultValue struct {
	Random   bool
	Value    int8
	Min, Max int8
}

// Get returns the default for one parameter.
func (v DefaultValue) Get(rng *rand.Rand) int8 {
	if v.Random {
		return genome.RandomRange(rng, v.Min, v.Max)
	}
	return v.Value
}

// ExpressionDef describes a value-producing operator. The operator takes
// one operand per default parameter.
type ExpressionDef struct {
	Code              int8
	Name              string
	Kind              ExprKind
	DefaultParameters []int8
}

// Arity returns the number of operands.
func (d *ExpressionDef) Arity() int {
	return len(d.DefaultParameters)
}

func (d *ExpressionDef) String() string {
	return d.Name
}
