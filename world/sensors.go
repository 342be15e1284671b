package world

import (
	"fmt"

	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
	"github.com/Gordon-from-Blumberg/evo-cell/vm"
)

// Properties readable through myProperty, selected modulo their count.
const (
	propHP = iota
	propEnergy
	propOrganics
	propMinerals
	propAge
	propTurnsAfterReproduced
	propActiveGene

	botPropertyCount
)

// Properties readable through myCell and forwardCell.
const (
	cellSunLight = iota
	cellOrganics
	cellMinerals
	cellEnergy

	cellPropertyCount
)

// Values reported by forwardBot.
const (
	SeenNothing  = 0
	SeenStranger = 1
	SeenKin      = 2
)

// Evaluate answers a sensor expression for a bot.
func (w *World) Evaluate(bot vm.Bot, kind opcode.ExprKind, x, y vm.Operand) int {
	b := bot.(*Bot)
	switch kind {
	case opcode.ExprMyProperty:
		return botProperty(b, x.Number())
	case opcode.ExprMyCell:
		return cellProperty(b.cell, x.Number())
	case opcode.ExprForwardCell:
		c := w.forwardCell(b)
		if c == nil {
			return -1
		}
		return cellProperty(c, x.Number())
	case opcode.ExprForwardBot:
		return w.forwardBot(b)
	}
	panic(fmt.Sprintf("world: no sensor for %v", kind))
}

func botProperty(b *Bot, property int) int {
	switch wrap(property, botPropertyCount) {
	case propHP:
		return b.HP
	case propEnergy:
		return b.Energy
	case propOrganics:
		return b.Organics
	case propMinerals:
		return b.Minerals
	case propAge:
		return b.Age
	case propTurnsAfterReproduced:
		return b.TurnsAfterReproduced
	default:
		return b.activeGene
	}
}

func cellProperty(c *Cell, property int) int {
	switch wrap(property, cellPropertyCount) {
	case cellSunLight:
		return c.SunLight
	case cellOrganics:
		return c.Organics
	case cellMinerals:
		return c.Minerals
	default:
		return c.Energy
	}
}

func (w *World) forwardBot(b *Bot) int {
	c := w.forwardCell(b)
	if c == nil || c.bot == nil {
		return SeenNothing
	}
	if c.bot.dna.Distance(b.dna) <= w.cfg.KinDistance {
		return SeenKin
	}
	return SeenStranger
}
