package world

import (
	"fmt"

	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
	"github.com/Gordon-from-Blumberg/evo-cell/vm"
)

// Act performs one action for a bot. counter is the number of earlier
// actions with the same tag this turn; costs grow with it and effects stop
// past the action limit.
func (w *World) Act(bot vm.Bot, kind opcode.ActionKind, counter, param int) {
	b := bot.(*Bot)
	switch kind {
	case opcode.ActionMove:
		w.move(b, counter)
	case opcode.ActionRotateLeft:
		w.rotate(b, counter, false)
	case opcode.ActionRotateRight:
		w.rotate(b, counter, true)
	case opcode.ActionRotate:
		w.rotate(b, counter, param%2 == 0)
	case opcode.ActionEatOrganics:
		w.eatOrganics(b, counter)
	case opcode.ActionEatMinerals:
		w.eatMinerals(b, counter)
	case opcode.ActionDigestOrganics:
		w.digestOrganics(b, counter)
	case opcode.ActionChemosynthesis:
		w.chemosynthesis(b, counter)
	case opcode.ActionMineralsToOrganics:
		w.mineralsToOrganics(b, counter)
	case opcode.ActionOrganicsToMinerals:
		w.organicsToMinerals(b, counter)
	case opcode.ActionProduceOffspring:
		w.produceOffspring(b, counter)
	case opcode.ActionBite:
		w.bite(b, counter)
	case opcode.ActionRegenerate:
		w.regenerate(b, counter)
	case opcode.ActionIncreaseParameter:
		w.increaseParameter(b, counter, param)
	case opcode.ActionDecreaseParameter:
		w.decreaseParameter(b, counter, param)
	case opcode.ActionSetActiveGene:
		if counter < w.cfg.Bot.ActionLimit {
			b.SetActiveGene(param)
		}
	default:
		panic(fmt.Sprintf("world: no behavior for %v", kind))
	}
}

func (w *World) rotateCost(b *Bot) int {
	grow := float64(w.cfg.Bot.RotateCostGrow) * (0.5 + 0.2*float64(b.Parameter(Moving)))
	return w.cfg.Bot.RotateCost + int(float64(b.Mass())/grow)
}

func (w *World) moveCost(b *Bot) int {
	grow := float64(w.cfg.Bot.MoveCostGrow) * (0.5 + 0.2*float64(b.Parameter(Moving)))
	return w.cfg.Bot.MoveCost + int(float64(b.Mass())/grow)
}

func (w *World) rotate(b *Bot, counter int, clockwise bool) {
	b.changeEnergy(-(1 + counter) * w.rotateCost(b))
	if counter > w.cfg.Bot.ActionLimit {
		return
	}
	if clockwise {
		b.Dir = b.Dir.Next()
	} else {
		b.Dir = b.Dir.Prev()
	}
}

func (w *World) move(b *Bot, counter int) {
	b.changeEnergy(-(1 + counter) * w.moveCost(b))
	if counter > w.cfg.Bot.ActionLimit || b.Energy <= 0 {
		return
	}
	if target := w.forwardCell(b); target != nil && target.bot == nil {
		b.setCell(target)
	}
}

func (w *World) eatOrganics(b *Bot, counter int) {
	b.changeEnergy(-(1 + 4*counter))
	if b.Energy <= 0 || counter >= w.cfg.Bot.ActionLimit {
		return
	}
	c := b.cell
	eaten := min(c.Organics, 3+b.Parameter(BigMouth)/2)
	absorbed := min(c.Energy, eaten, 5)
	c.changeOrganics(-eaten)
	c.changeEnergy(-absorbed)
	b.Organics += eaten
	b.Energy += absorbed
	if c.Minerals > 10 {
		c.Minerals--
		b.Minerals++
	}
}

func (w *World) eatMinerals(b *Bot, counter int) {
	b.changeEnergy(-(1 + 4*counter))
	if b.Energy <= 0 || counter >= w.cfg.Bot.ActionLimit {
		return
	}
	c := b.cell
	eaten := min(c.Minerals, 2+b.Parameter(BigMouth)/2)
	absorbed := min(c.Energy, eaten, 5)
	c.changeMinerals(-eaten)
	c.changeEnergy(-absorbed)
	b.Minerals += eaten
	b.Energy += absorbed
	if c.Organics > 10 {
		c.Organics--
		b.Organics++
	}
}

func (w *World) digestOrganics(b *Bot, counter int) {
	b.changeEnergy(-(1 + 5*counter))
	if b.Energy <= 0 || counter >= w.cfg.Bot.ActionLimit || b.Organics <= 0 {
		return
	}
	b.Organics--
	b.Energy += int(25 * (0.8 + 0.1*float64(b.Parameter(OrganicsDigestion))))
}

func (w *World) chemosynthesis(b *Bot, counter int) {
	b.changeEnergy(-(1 + 5*counter))
	if b.Energy <= 0 || counter >= w.cfg.Bot.ActionLimit || b.Minerals <= 0 {
		return
	}
	b.Minerals--
	b.Energy += int(20 * (0.8 + 0.15*float64(b.Parameter(Chemosynthesis))))
}

func (w *World) mineralsToOrganics(b *Bot, counter int) {
	b.changeEnergy(-(3 + 7*counter))
	if b.Energy <= 0 || counter >= w.cfg.Bot.ActionLimit || b.Minerals <= 0 {
		return
	}
	b.Minerals--
	b.Organics++
}

func (w *World) organicsToMinerals(b *Bot, counter int) {
	b.changeEnergy(-(2 + 5*counter))
	if b.Energy <= 0 || counter >= w.cfg.Bot.ActionLimit || b.Organics <= 0 {
		return
	}
	b.Organics--
	b.Minerals++
}

func (w *World) regenerate(b *Bot, counter int) {
	b.changeEnergy(-2 * w.cfg.Bot.RegenerateCost * (counter + 1))
	if b.HP < w.cfg.Bot.MaxHP && b.Energy > 0 && counter < w.cfg.Bot.ActionLimit {
		b.HP++
	}
}

func (w *World) bite(b *Bot, counter int) {
	b.changeEnergy(-(10 + 15*counter))
	if b.Energy <= 0 || counter >= w.cfg.Bot.ActionLimit {
		return
	}
	c := w.forwardCell(b)
	if c == nil || c.bot == nil {
		return
	}
	target := c.bot

	dmg := 5
	if target.Mass() > 0 {
		ratio := float64(b.Mass()) / float64(target.Mass())
		if ratio > 1 {
			dmg += int((ratio - 1) / 0.3)
		} else {
			dmg -= int((1 - ratio) / 0.2)
		}
	}
	dmg = max(1, min(dmg, 15))
	target.HP -= dmg

	taken := min(1+b.Organics/(20-b.Parameter(BigMouth)), target.Organics)
	target.Organics -= taken
	b.Organics += taken
	if dmg > 3 && target.Minerals > 10 {
		target.Minerals--
		b.Minerals++
	}

	if target.HP <= 0 || target.Organics <= 0 {
		w.die(target)
		if target == b.offspring {
			b.offspring = nil
		}
	}
}

func (w *World) increaseParameter(b *Bot, counter, param int) {
	p := Parameter(wrap(param, int(ParameterCount)))
	if !b.canIncrease(p) {
		return
	}
	if b.embryo {
		b.changeEnergy(-max(1, b.increaseCost(p)/2))
		if b.Energy > 0 {
			b.params[p]++
		}
		return
	}
	b.changeEnergy(-(b.increaseCost(p) + w.cfg.Bot.IncreaseParameterCost))
	if b.Energy > 0 && counter < 1 {
		b.params[p]++
	}
}

func (w *World) decreaseParameter(b *Bot, counter, param int) {
	p := Parameter(wrap(param, int(ParameterCount)))
	if !b.canDecrease(p) {
		return
	}
	if b.embryo {
		b.changeEnergy(-max(1, b.decreaseCost(p)/2))
		if b.Energy > 0 {
			b.params[p]--
		}
		return
	}
	b.changeEnergy(-(b.decreaseCost(p) + w.cfg.Bot.IncreaseParameterCost/2))
	if b.Energy > 0 && counter < 1 {
		b.params[p]--
	}
}

// produceOffspring places a child next to b. The child's genome is set up
// after b's program has finished.
func (w *World) produceOffspring(b *Bot, counter int) {
	if b.Age < w.cfg.Bot.MinAgeToReproduce || b.TurnsAfterReproduced < w.cfg.Bot.ReproduceDelay {
		return
	}
	b.changeEnergy(-w.cfg.Bot.OffspringCost)
	if counter > 0 || b.offspring != nil {
		return
	}
	c := w.offspringCell(b)
	if c == nil {
		return
	}

	b.TurnsAfterReproduced = 0
	child := w.newBot(c)
	child.HP = w.cfg.Bot.MaxHP
	child.Dir = randomDirection(w.rng)

	child.Energy = b.Energy / 4
	b.changeEnergy(-child.Energy)
	child.Organics = b.Organics / 4
	b.changeOrganics(-child.Organics)
	child.Minerals = b.Minerals / 4
	b.changeMinerals(-child.Minerals)

	b.offspring = child
	w.current.Born++
}

func (w *World) offspringCell(b *Bot) *Cell {
	for _, d := range [...]Direction{b.Dir, b.Dir.Prev(), b.Dir.Next(), b.Dir.Opposite()} {
		if c := w.grid.Neighbour(b.cell, d); c != nil && c.bot == nil {
			return c
		}
	}
	return nil
}

func (w *World) forwardCell(b *Bot) *Cell {
	return w.grid.Neighbour(b.cell, b.Dir)
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}
