package world

import (
	"fmt"

	"github.com/Gordon-from-Blumberg/evo-cell/genome"
)

// Parameter is an evolvable body trait developed by the genome.
type Parameter uint8

const (
	Chlorophyll Parameter = iota
	Moving
	BigMouth
	OrganicsDigestion
	Chemosynthesis

	ParameterCount
)

type parameterType struct {
	name              string
	baseCost          int
	costStep          int
	energyConsumption float64 // per level and turn
	initial           int
	max               int
}

var parameterTypes = [ParameterCount]parameterType{
	Chlorophyll:       {"chlorophyll", 10, 6, 0.3, 1, 5},
	Moving:            {"moving", 8, 5, 0.2, 0, 5},
	BigMouth:          {"bigMouth", 8, 6, 0.25, 0, 6},
	OrganicsDigestion: {"organicsDigestion", 10, 5, 0.2, 0, 5},
	Chemosynthesis:    {"chemosynthesis", 12, 6, 0.3, 0, 5},
}

func (p Parameter) String() string {
	if p < ParameterCount {
		return parameterTypes[p].name
	}
	return fmt.Sprintf("Parameter(%d)", p)
}

func (t parameterType) increaseCost(level int) int {
	return t.baseCost + level*t.costStep
}

// Bot is one organism. Bots are owned by their World and only touched
// from the goroutine running it.
type Bot struct {
	ID                   int64
	HP                   int
	Energy               int
	Organics             int
	Minerals             int
	Age                  int
	Dir                  Direction
	TurnsAfterReproduced int

	cell       *Cell
	dna        *genome.DNA
	activeGene int
	params     [ParameterCount]int
	dead       bool
	embryo     bool
	offspring  *Bot
	world      *World
}

// DNA returns the genome.
func (b *Bot) DNA() *genome.DNA { return b.dna }

// ActiveGene returns the gene run on normal turns.
func (b *Bot) ActiveGene() int { return b.activeGene }

// SetActiveGene selects the gene run on the next turns, wrapped into the
// gene count.
func (b *Bot) SetActiveGene(i int) {
	n := b.dna.Len()
	b.activeGene = ((i % n) + n) % n
}

// Viable reports whether the bot can go on living.
func (b *Bot) Viable() bool {
	return !b.dead && b.HP > 0 && b.Energy > 0 && b.Organics > 0
}

// Kill removes the bot from the grid. Its resources stay in the cell.
func (b *Bot) Kill() { b.world.die(b) }

// Dead reports whether the bot has died.
func (b *Bot) Dead() bool { return b.dead }

// X returns the column of the bot.
func (b *Bot) X() int { return b.cell.X }

// Y returns the row of the bot.
func (b *Bot) Y() int { return b.cell.Y }

// Cell returns the cell the bot occupies.
func (b *Bot) Cell() *Cell { return b.cell }

// Parameter returns the level of an evolvable trait.
func (b *Bot) Parameter(p Parameter) int {
	return parameterTypes[p].initial + b.params[p]
}

// Mass is the sum of organics and minerals.
func (b *Bot) Mass() int {
	return b.Organics + b.Minerals
}

func (b *Bot) changeEnergy(diff int) {
	b.Energy = max(0, b.Energy+diff)
}

func (b *Bot) changeOrganics(diff int) {
	b.Organics = max(0, b.Organics+diff)
}

func (b *Bot) changeMinerals(diff int) {
	b.Minerals = max(0, b.Minerals+diff)
}

func (b *Bot) setCell(c *Cell) {
	if c.bot != nil {
		panic("world: cell is occupied")
	}
	if b.cell != nil {
		b.cell.bot = nil
	}
	b.cell = c
	c.bot = b
}

func (b *Bot) canIncrease(p Parameter) bool {
	return b.params[p] < parameterTypes[p].max
}

func (b *Bot) canDecrease(p Parameter) bool {
	return b.params[p] > 0
}

func (b *Bot) increaseCost(p Parameter) int {
	return parameterTypes[p].increaseCost(b.params[p])
}

func (b *Bot) decreaseCost(p Parameter) int {
	return parameterTypes[p].increaseCost(max(0, b.params[p]-1))
}

func (b *Bot) parameterUpkeep() int {
	var sum float64
	for p, t := range parameterTypes {
		sum += float64(b.params[p]) * t.energyConsumption
	}
	return int(sum)
}

// BotState is the persistent part of a bot.
type BotState struct {
	ID                   int64
	X, Y                 int
	Dir                  Direction
	HP                   int
	Energy               int
	Organics             int
	Minerals             int
	Age                  int
	TurnsAfterReproduced int
	ActiveGene           int
	Parameters           []int
	Genes                [][]int8
}

// State captures the bot.
func (b *Bot) State() BotState {
	return BotState{
		ID:                   b.ID,
		X:                    b.cell.X,
		Y:                    b.cell.Y,
		Dir:                  b.Dir,
		HP:                   b.HP,
		Energy:               b.Energy,
		Organics:             b.Organics,
		Minerals:             b.Minerals,
		Age:                  b.Age,
		TurnsAfterReproduced: b.TurnsAfterReproduced,
		ActiveGene:           b.activeGene,
		Parameters:           append([]int(nil), b.params[:]...),
		Genes:                b.dna.Genes(),
	}
}
