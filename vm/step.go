package vm

import (
	"fmt"

	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
)

// StepType tags a decoded node.
type StepType uint8

const (
	StepAction      StepType = iota // one action, its parameter as child
	StepActionGroup                 // ordered children, stops on first stop
	StepIf                          // condition, then, optional else
	StepGoto                        // goto or gotoGene, target decoded on demand
	StepExpression                  // literal or operator with operands
)

var stepTypeNames = [...]string{
	StepAction:      "action",
	StepActionGroup: "group",
	StepIf:          "if",
	StepGoto:        "goto",
	StepExpression:  "expression",
}

func (t StepType) String() string {
	if int(t) < len(stepTypeNames) {
		return stepTypeNames[t]
	}
	return fmt.Sprintf("StepType(%d)", t)
}

// StepID addresses a node in the arena. IDs are only meaningful until the
// end of the run that allocated them.
type StepID int32

const noStep StepID = -1

// Step is one decoded instruction or operand.
type Step struct {
	Type     StepType
	Value    int8
	Action   *opcode.ActionDef     // action, group, if and goto steps
	Expr     *opcode.ExpressionDef // operator expressions; nil for literals
	Children []StepID
	Gene     int
	Offset   int // -1 for default-filled operands
	Stop     bool

	target gotoTarget
}

// IsLiteral reports whether s is a plain numeric value.
func (s *Step) IsLiteral() bool {
	return s.Type == StepExpression && s.Expr == nil
}

// ---------------------------------------------------------------------------
// Goto targets
// ---------------------------------------------------------------------------

type targetKind uint8

const (
	targetLocal targetKind = iota + 1 // offset within a gene
	targetGene                        // a whole gene
)

// gotoTarget keys decoded subtrees, goto visit counts and visited genes.
type gotoTarget struct {
	kind   targetKind
	gene   int
	offset int
}

func localTarget(gene, offset int) gotoTarget {
	return gotoTarget{kind: targetLocal, gene: gene, offset: offset}
}

func geneTarget(gene int) gotoTarget {
	return gotoTarget{kind: targetGene, gene: gene}
}

// ---------------------------------------------------------------------------
// Arena
// ---------------------------------------------------------------------------

// arena hands out Step slots by index. Release makes every slot reusable
// at once; a slot keeps its children backing array between runs.
type arena struct {
	steps []Step
	used  int
}

func (a *arena) alloc(t StepType, gene, offset int) StepID {
	if a.used == len(a.steps) {
		a.steps = append(a.steps, Step{})
	}
	id := StepID(a.used)
	a.used++

	s := &a.steps[id]
	*s = Step{Type: t, Gene: gene, Offset: offset, Children: s.Children[:0]}
	return id
}

// get returns the slot for id. The pointer is invalidated by the next
// alloc.
func (a *arena) get(id StepID) *Step {
	return &a.steps[id]
}

func (a *arena) release() {
	a.used = 0
}

func (a *arena) outstanding() int {
	return a.used
}

func (a *arena) capacity() int {
	return len(a.steps)
}
