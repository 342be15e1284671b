package vm

import (
	"fmt"

	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
)

// exec runs a statement step and reports whether the enclosing sequence
// must stop.
func (st *runState) exec(id StepID) bool {
	// Copy: decoding a jump target may grow the arena.
	s := *st.arena.get(id)

	switch s.Type {
	case StepAction:
		return st.execAction(&s)

	case StepActionGroup:
		for _, child := range s.Children {
			if st.exec(child) {
				return true
			}
		}
		return false

	case StepIf:
		if len(s.Children) < 2 {
			return false
		}
		if st.evaluate(s.Children[0]) > 0 {
			return st.exec(s.Children[1])
		}
		if len(s.Children) > 2 {
			return st.exec(s.Children[2])
		}
		return false

	case StepGoto:
		return st.execGoto(&s)

	case StepExpression:
		panic(fmt.Sprintf("vm: expression at %d:%d executed as a statement", s.Gene, s.Offset))
	}
	panic(fmt.Sprintf("vm: unknown step type %v", s.Type))
}

func (st *runState) execAction(s *Step) bool {
	def := s.Action
	if def == nil {
		return false
	}
	if def.Is(opcode.SpecStop) {
		return true
	}

	param := 0
	if len(s.Children) > 0 {
		param = st.evaluate(s.Children[0])
	}
	tag := def.CounterTag()
	counter := st.counters[tag]
	st.counters[tag] = counter + 1
	st.executed++

	st.host.Act(st.bot, def.Action, counter, param)
	if !st.bot.Viable() {
		st.bot.Kill()
		return true
	}
	return false
}

func (st *runState) execGoto(s *Step) bool {
	t := s.target
	switch t.kind {
	case targetLocal:
		if st.visits[t] >= st.cfg.GotoLimit {
			return false
		}
		st.visits[t]++
	case targetGene:
		if st.visitedGenes[t.gene] {
			return false
		}
		st.visitedGenes[t.gene] = true
	default:
		panic(fmt.Sprintf("vm: goto at %d:%d has no target", s.Gene, s.Offset))
	}
	st.exec(st.resolve(t))
	return true
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Operand is a lazily evaluated expression argument. Sensor handlers
// evaluate only the operands they need.
type Operand struct {
	st *runState
	id StepID
}

// Present reports whether the operand was decoded.
func (o Operand) Present() bool {
	return o.st != nil && o.id != noStep
}

// Number evaluates the operand. A missing operand is 0.
func (o Operand) Number() int {
	if !o.Present() {
		return 0
	}
	return o.st.evaluate(o.id)
}

// Bool evaluates the operand as a condition.
func (o Operand) Bool() bool {
	return o.Number() > 0
}

// evaluate computes the value of an expression step.
func (st *runState) evaluate(id StepID) int {
	s := *st.arena.get(id)
	if s.Type != StepExpression {
		panic(fmt.Sprintf("vm: %v step at %d:%d evaluated as an expression", s.Type, s.Gene, s.Offset))
	}
	if s.Expr == nil {
		return int(s.Value)
	}

	x := Operand{st: st, id: noStep}
	y := Operand{st: st, id: noStep}
	if len(s.Children) > 0 {
		x.id = s.Children[0]
	}
	if len(s.Children) > 1 {
		y.id = s.Children[1]
	}

	if s.Expr.Kind.IsSensor() {
		return st.host.Evaluate(st.bot, s.Expr.Kind, x, y)
	}
	return st.pure(s.Expr.Kind, x, y)
}

func (st *runState) pure(kind opcode.ExprKind, x, y Operand) int {
	switch kind {
	case opcode.ExprEquals:
		return boolInt(x.Number() == y.Number())
	case opcode.ExprNot:
		return boolInt(!x.Bool())
	case opcode.ExprGt:
		return boolInt(x.Number() > y.Number())
	case opcode.ExprLt:
		return boolInt(x.Number() < y.Number())
	case opcode.ExprAnd:
		return boolInt(x.Bool() && y.Bool())
	case opcode.ExprOr:
		return boolInt(x.Bool() || y.Bool())
	case opcode.ExprSum:
		return int(int8(x.Number() + y.Number()))
	case opcode.ExprSub:
		return int(int8(x.Number() - y.Number()))
	case opcode.ExprMod:
		a, b := x.Number(), y.Number()
		if b == 0 {
			return 0
		}
		return wrap(a, abs(b))
	case opcode.ExprRandom:
		lo, hi := x.Number(), y.Number()
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo + st.rng.Intn(hi-lo+1)
	}
	panic("vm: no evaluator for " + kind.String())
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
