package vm

import "github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"

// readGene decodes a whole gene as one action sequence. The result is
// shared with gotoGene jumps to the same gene.
func (st *runState) readGene(gene int) StepID {
	return st.resolve(geneTarget(gene))
}

// resolve returns the decoded subtree for a jump target, decoding it on
// first use.
func (st *runState) resolve(t gotoTarget) StepID {
	if id, ok := st.memo[t]; ok {
		return id
	}
	id := st.readSequence(t.gene, t.offset)
	st.memo[t] = id
	return id
}

// readSequence decodes actions from offset until the gene ends or an
// action stops the sequence.
func (st *runState) readSequence(gene, offset int) StepID {
	id := st.arena.alloc(StepActionGroup, gene, offset)
	for {
		child, next := st.readAction(gene, offset)
		if child == noStep {
			return id
		}
		st.addChild(id, child)
		if st.arena.get(child).Stop {
			return id
		}
		offset = next
	}
}

// readAction decodes the first registered opcode at or after offset and
// returns it with the offset that follows it. Unregistered values are
// skipped. It returns noStep when the gene ends first.
func (st *runState) readAction(gene, offset int) (StepID, int) {
	g := st.dna.Gene(gene)
	for ; offset < g.Len(); offset++ {
		if def, ok := st.actions.Lookup(g.Value(offset)); ok {
			return st.decodeAction(def, gene, offset)
		}
	}
	return noStep, offset
}

func (st *runState) decodeAction(def *opcode.ActionDef, gene, offset int) (StepID, int) {
	switch def.Category {
	case opcode.CategoryAction:
		return st.decodePlain(def, gene, offset)
	case opcode.CategorySpecAction:
		return st.decodeGroup(def, gene, offset)
	}

	switch def.Spec {
	case opcode.SpecIf:
		return st.decodeIf(def, gene, offset)
	case opcode.SpecGoto:
		return st.decodeGoto(def, gene, offset)
	case opcode.SpecGotoGene:
		return st.decodeGotoGene(def, gene, offset)
	case opcode.SpecStop:
		id := st.newActionStep(StepAction, def, gene, offset)
		st.arena.get(id).Stop = true
		return id, offset + 1
	}
	panic("vm: no decoder for " + def.Spec.String())
}

func (st *runState) decodePlain(def *opcode.ActionDef, gene, offset int) (StepID, int) {
	id := st.newActionStep(StepAction, def, gene, offset)
	geneLen := st.dna.GeneLength()
	next := offset + 1
	for _, p := range def.Parameters {
		var param StepID
		if next < geneLen {
			param, next = st.readParameter(gene, next)
		} else {
			param = st.literal(p.Default.Get(st.rng), gene, -1)
		}
		st.addChild(id, param)
	}
	return id, next
}

func (st *runState) decodeGroup(def *opcode.ActionDef, gene, offset int) (StepID, int) {
	id := st.newActionStep(StepActionGroup, def, gene, offset)
	next := offset + 1
	for i := 0; i < def.Spec.GroupSize(); i++ {
		child, after := st.readAction(gene, next)
		if child == noStep {
			break
		}
		next = after
		st.addChild(id, child)
		if st.arena.get(child).Stop {
			st.arena.get(id).Stop = true
			break
		}
	}
	return id, next
}

func (st *runState) decodeIf(def *opcode.ActionDef, gene, offset int) (StepID, int) {
	id := st.newActionStep(StepIf, def, gene, offset)
	next := offset + 1
	if next >= st.dna.GeneLength() {
		return id, next
	}

	cond, next := st.readParameter(gene, next)
	st.addChild(id, cond)

	then, after := st.readAction(gene, next)
	if then == noStep {
		return id, after
	}
	st.addChild(id, then)
	next = after

	if next < st.dna.GeneLength() {
		if otherwise, after := st.readAction(gene, next); otherwise != noStep {
			st.addChild(id, otherwise)
			next = after
		}
	}
	return id, next
}

func (st *runState) decodeGoto(def *opcode.ActionDef, gene, offset int) (StepID, int) {
	id := st.newActionStep(StepGoto, def, gene, offset)
	geneLen := st.dna.GeneLength()
	next := offset + 1
	target := 0
	if next < geneLen {
		v := st.dna.Gene(gene).Value(next)
		st.arena.get(id).Value = v
		target = wrap(int(v), geneLen)
		next++
	}
	s := st.arena.get(id)
	s.Stop = true
	s.target = localTarget(gene, target)
	return id, next
}

func (st *runState) decodeGotoGene(def *opcode.ActionDef, gene, offset int) (StepID, int) {
	id := st.newActionStep(StepGoto, def, gene, offset)
	count := st.dna.Len()
	next := offset + 1
	target := (gene + 1) % count
	if next < st.dna.GeneLength() {
		v := st.dna.Gene(gene).Value(next)
		st.arena.get(id).Value = v
		target = wrap(int(v), count)
		next++
	}
	s := st.arena.get(id)
	s.Stop = true
	s.target = geneTarget(target)
	return id, next
}

// readParameter decodes one operand. A value below the expression marker
// followed by a registered expression code starts an operator whose
// operands are read the same way; anything else is a literal.
func (st *runState) readParameter(gene, offset int) (StepID, int) {
	g := st.dna.Gene(gene)
	v := g.Value(offset)
	if v >= st.cfg.ExpressionMarker || offset+1 >= g.Len() {
		return st.literal(v, gene, offset), offset + 1
	}
	def, ok := st.exprs.Lookup(g.Value(offset + 1))
	if !ok {
		return st.literal(v, gene, offset), offset + 1
	}

	id := st.arena.alloc(StepExpression, gene, offset)
	s := st.arena.get(id)
	s.Value = def.Code
	s.Expr = def

	next := offset + 2
	for _, d := range def.DefaultParameters {
		var operand StepID
		if next < g.Len() {
			operand, next = st.readParameter(gene, next)
		} else {
			operand = st.literal(d, gene, -1)
		}
		st.addChild(id, operand)
	}
	return id, next
}

func (st *runState) literal(v int8, gene, offset int) StepID {
	id := st.arena.alloc(StepExpression, gene, offset)
	st.arena.get(id).Value = v
	return id
}

func (st *runState) newActionStep(t StepType, def *opcode.ActionDef, gene, offset int) StepID {
	id := st.arena.alloc(t, gene, offset)
	s := st.arena.get(id)
	s.Value = def.Code
	s.Action = def
	return id
}

func (st *runState) addChild(parent, child StepID) {
	s := st.arena.get(parent)
	s.Children = append(s.Children, child)
}

// wrap maps v into [0, n).
func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
