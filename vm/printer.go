package vm

import (
	"fmt"
	"strings"
)

// printer renders decoded trees one step per line:
//
//	; active gene 1
//	[1:00] if gt(myProperty(1), 20)
//	  [1:04] move
//	  [1:05] goto 3 -> [1:03]
//	    [1:03] ...
type printer struct {
	sb       strings.Builder
	expanded map[gotoTarget]bool
}

func (p *printer) section(title string) {
	if p.sb.Len() > 0 {
		p.sb.WriteString("\n")
	}
	p.sb.WriteString(fmt.Sprintf("; %s\n", title))
	p.expanded = make(map[gotoTarget]bool)
}

func (p *printer) String() string {
	return p.sb.String()
}

// tree prints the children of a root sequence.
func (p *printer) tree(st *runState, root StepID) {
	children := st.arena.get(root).Children
	if len(children) == 0 {
		p.sb.WriteString("(no actions)\n")
		return
	}
	for _, c := range children {
		p.step(st, c, 0)
	}
}

func (p *printer) step(st *runState, id StepID, depth int) {
	s := *st.arena.get(id)
	indent := strings.Repeat("  ", depth)
	pos := position(s.Gene, s.Offset)

	switch s.Type {
	case StepAction:
		line := s.Action.Name
		if len(s.Children) > 0 {
			line += " " + st.expression(s.Children[0])
		}
		p.sb.WriteString(fmt.Sprintf("%s%s %s\n", indent, pos, line))

	case StepActionGroup:
		p.sb.WriteString(fmt.Sprintf("%s%s %s\n", indent, pos, s.Action.Name))
		for _, c := range s.Children {
			p.step(st, c, depth+1)
		}

	case StepIf:
		cond := "?"
		if len(s.Children) > 0 {
			cond = st.expression(s.Children[0])
		}
		p.sb.WriteString(fmt.Sprintf("%s%s if %s\n", indent, pos, cond))
		for i, c := range s.Children[min(1, len(s.Children)):] {
			if i == 1 {
				p.sb.WriteString(fmt.Sprintf("%selse\n", indent))
			}
			p.step(st, c, depth+1)
		}

	case StepGoto:
		t := s.target
		var dest string
		if t.kind == targetGene {
			dest = fmt.Sprintf("gene %d", t.gene)
		} else {
			dest = position(t.gene, t.offset)
		}
		if p.expanded[t] {
			p.sb.WriteString(fmt.Sprintf("%s%s %s -> %s (see above)\n", indent, pos, s.Action.Name, dest))
			return
		}
		p.expanded[t] = true
		p.sb.WriteString(fmt.Sprintf("%s%s %s -> %s\n", indent, pos, s.Action.Name, dest))
		for _, c := range st.arena.get(st.resolve(t)).Children {
			p.step(st, c, depth+1)
		}

	case StepExpression:
		p.sb.WriteString(fmt.Sprintf("%s%s %s\n", indent, pos, st.expression(id)))
	}
}

// expression renders an expression inline. Default-filled literals are
// marked with a trailing asterisk.
func (st *runState) expression(id StepID) string {
	s := *st.arena.get(id)
	if s.Expr == nil {
		if s.Offset < 0 {
			return fmt.Sprintf("%d*", s.Value)
		}
		return fmt.Sprintf("%d", s.Value)
	}
	args := make([]string, len(s.Children))
	for i, c := range s.Children {
		args[i] = st.expression(c)
	}
	return fmt.Sprintf("%s(%s)", s.Expr.Name, strings.Join(args, ", "))
}

func position(gene, offset int) string {
	if offset < 0 {
		return fmt.Sprintf("[%d:--]", gene)
	}
	return fmt.Sprintf("[%d:%02d]", gene, offset)
}
