// Package world is the simulation around the genome interpreter: a grid
// of cells, the bots living on it and the behavior of every action and
// sensor opcode.
package world

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/Gordon-from-Blumberg/evo-cell/genome"
	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
	"github.com/Gordon-from-Blumberg/evo-cell/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("evocell.world")

// ErrNoBot is returned for an unknown or dead bot id.
var ErrNoBot = errors.New("no such bot")

// ErrGridFull is returned when no free cell is left.
var ErrGridFull = errors.New("grid is full")

// Statistic summarises one turn.
type Statistic struct {
	Turn      int
	Alive     int
	Born      int
	Died      int
	AvgEnergy float64
	AvgGenes  float64
	Actions   int // actions executed by all programs
	Decoded   int // steps decoded by all programs
}

// Options configure a new World.
type Options struct {
	Config      Config
	Genome      genome.Config
	Interpreter vm.Config
	Registry    *opcode.Registry
	Seed        int64
}

// World owns the grid, the bots and the interpreter running them. It is
// not safe for concurrent use.
type World struct {
	cfg    Config
	seed   int64
	grid   *Grid
	pool   *genome.Pool
	interp *vm.Interpreter
	rng    *rand.Rand

	bots    []*Bot
	byID    map[int64]*Bot
	nextID  int64
	turn    int
	last    Statistic
	current Statistic
}

// New creates an empty world.
func New(opts Options) (*World, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Genome.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Interpreter.Validate(); err != nil {
		return nil, err
	}
	if opts.Registry == nil {
		return nil, errors.New("world: no opcode registry")
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	w := &World{
		cfg:    opts.Config,
		seed:   opts.Seed,
		grid:   NewGrid(opts.Config),
		pool:   genome.NewPool(opts.Genome),
		interp: vm.New(opts.Registry, opts.Interpreter, rng),
		rng:    rng,
		byID:   make(map[int64]*Bot),
		nextID: 1,
	}
	log.Infof("world %dx%d created, seed %d", opts.Config.Width, opts.Config.Height, opts.Seed)
	return w, nil
}

// Turn returns the number of completed turns.
func (w *World) Turn() int { return w.turn }

// Seed returns the seed the world was created with.
func (w *World) Seed() int64 { return w.seed }

// Grid returns the cell grid.
func (w *World) Grid() *Grid { return w.grid }

// Config returns the world configuration.
func (w *World) Config() Config { return w.cfg }

// Interpreter returns the interpreter running the bots.
func (w *World) Interpreter() *vm.Interpreter { return w.interp }

// Statistic returns the statistic of the last completed turn.
func (w *World) Statistic() Statistic { return w.last }

// Bot returns a living bot by id.
func (w *World) Bot(id int64) (*Bot, bool) {
	b, ok := w.byID[id]
	return b, ok
}

// Bots returns the living bots in update order.
func (w *World) Bots() []*Bot {
	out := make([]*Bot, 0, len(w.bots))
	for _, b := range w.bots {
		if !b.dead {
			out = append(out, b)
		}
	}
	return out
}

// Describe renders the decoded program of a bot.
func (w *World) Describe(id int64) (string, error) {
	b, ok := w.byID[id]
	if !ok {
		return "", fmt.Errorf("bot %d: %w", id, ErrNoBot)
	}
	return w.interp.Describe(b), nil
}

// ---------------------------------------------------------------------------
// Population
// ---------------------------------------------------------------------------

// Populate spawns n bots with random DNA on random free cells.
func (w *World) Populate(n int) error {
	for i := 0; i < n; i++ {
		c := w.grid.randomFreeCell(w.rng)
		if c == nil {
			return fmt.Errorf("populate: %d of %d bots placed: %w", i, n, ErrGridFull)
		}
		if _, err := w.Spawn(c.X, c.Y, nil); err != nil {
			return err
		}
	}
	log.Infof("populated %d bots", n)
	return nil
}

// Spawn creates a bot at (x, y) and runs its embryo program. A nil genes
// argument gives random DNA.
func (w *World) Spawn(x, y int, genes [][]int8) (*Bot, error) {
	c := w.grid.Cell(x, y)
	if c == nil {
		return nil, fmt.Errorf("spawn: (%d,%d) is outside the grid", x, y)
	}
	if c.bot != nil {
		return nil, fmt.Errorf("spawn: (%d,%d) is occupied by bot %d", x, y, c.bot.ID)
	}

	b := w.newBot(c)
	if genes == nil {
		b.dna.Randomize(w.rng)
	} else if err := b.dna.SetGenes(genes); err != nil {
		w.discard(b)
		return nil, fmt.Errorf("spawn: %w", err)
	}
	b.HP = w.cfg.Bot.MaxHP
	b.Energy = w.cfg.InitialEnergy
	b.Organics = w.cfg.InitialOrganics
	b.Minerals = w.cfg.InitialMinerals
	b.Dir = randomDirection(w.rng)
	b.SetActiveGene(1)
	w.runEmbryo(b)
	return b, nil
}

// Restore places a bot captured with State. The embryo program is not
// run again.
func (w *World) Restore(s BotState) (*Bot, error) {
	c := w.grid.Cell(s.X, s.Y)
	if c == nil || c.bot != nil {
		return nil, fmt.Errorf("restore bot %d: cell (%d,%d) unavailable", s.ID, s.X, s.Y)
	}
	if _, ok := w.byID[s.ID]; ok {
		return nil, fmt.Errorf("restore bot %d: duplicate id", s.ID)
	}
	if len(s.Parameters) > int(ParameterCount) {
		return nil, fmt.Errorf("restore bot %d: %d parameters", s.ID, len(s.Parameters))
	}
	for p, level := range s.Parameters {
		if t := parameterTypes[p]; level < 0 || level > t.max {
			return nil, fmt.Errorf("restore bot %d: %s level %d outside [0,%d]", s.ID, t.name, level, t.max)
		}
	}

	b := w.newBot(c)
	if err := b.dna.SetGenes(s.Genes); err != nil {
		w.discard(b)
		return nil, fmt.Errorf("restore bot %d: %w", s.ID, err)
	}
	delete(w.byID, b.ID)
	b.ID = s.ID
	w.byID[b.ID] = b
	w.nextID = max(w.nextID, s.ID+1)

	b.HP, b.Energy, b.Organics, b.Minerals = s.HP, s.Energy, s.Organics, s.Minerals
	b.Age, b.TurnsAfterReproduced = s.Age, s.TurnsAfterReproduced
	b.Dir = s.Dir % 4
	b.SetActiveGene(s.ActiveGene)
	copy(b.params[:], s.Parameters)
	return b, nil
}

// SetTurn sets the turn counter, used when a world is restored.
func (w *World) SetTurn(turn int) { w.turn = turn }

func (w *World) newBot(c *Cell) *Bot {
	b := &Bot{
		ID:    w.nextID,
		dna:   w.pool.NewDNA(),
		world: w,
	}
	w.nextID++
	b.setCell(c)
	w.bots = append(w.bots, b)
	w.byID[b.ID] = b
	return b
}

// discard undoes newBot for a bot that never lived.
func (w *World) discard(b *Bot) {
	b.cell.bot = nil
	b.dead = true
	delete(w.byID, b.ID)
	w.bots = w.bots[:len(w.bots)-1]
	w.pool.Release(b.dna)
	b.dna = nil
}

func (w *World) runEmbryo(b *Bot) {
	b.embryo = true
	stats := w.interp.RunEmbryo(w, b)
	b.embryo = false
	w.current.Actions += stats.Executed
	w.current.Decoded += stats.Decoded
}

// die removes b from the grid and leaves its resources in the cell.
func (w *World) die(b *Bot) {
	if b.dead {
		return
	}
	c := b.cell
	c.Energy += max(b.Energy, 0)
	c.Organics += max(b.Organics, 0)
	c.Minerals += max(b.Minerals, 0)
	c.bot = nil
	b.dead = true
	delete(w.byID, b.ID)
}

// ---------------------------------------------------------------------------
// Turn loop
// ---------------------------------------------------------------------------

// Step advances the world by one turn and returns its statistic. Bots born
// during the turn act from the next one.
func (w *World) Step() Statistic {
	w.turn++
	w.current = Statistic{Turn: w.turn}

	n := len(w.bots)
	for i := 0; i < n; i++ {
		if b := w.bots[i]; !b.dead {
			w.update(b)
		}
	}
	w.sweep()

	stat := w.current
	var energy, genes int
	for _, b := range w.bots {
		energy += b.Energy
		genes += b.dna.Len()
	}
	stat.Alive = len(w.bots)
	if stat.Alive > 0 {
		stat.AvgEnergy = float64(energy) / float64(stat.Alive)
		stat.AvgGenes = float64(genes) / float64(stat.Alive)
	}
	w.last = stat
	log.Debugf("turn %d: %d alive, %d born, %d died", stat.Turn, stat.Alive, stat.Born, stat.Died)
	return stat
}

// Run advances the world by n turns and returns the last statistic.
func (w *World) Run(n int) Statistic {
	for i := 0; i < n; i++ {
		w.Step()
	}
	return w.last
}

func (w *World) update(b *Bot) {
	cfg := w.cfg.Bot

	b.Age++
	if b.Age >= cfg.MaxAge {
		w.die(b)
		return
	}
	b.TurnsAfterReproduced++

	if b.HP < cfg.MaxHP && b.Energy > cfg.RegenerateCost {
		b.HP++
		b.Energy -= cfg.RegenerateCost
	}
	if b.Organics > 0 && b.Minerals > b.Organics {
		b.HP -= b.Minerals / b.Organics
	}
	if b.HP <= 0 {
		w.die(b)
		return
	}

	w.photosynthesize(b)

	stats := w.interp.Run(w, b)
	w.current.Actions += stats.Executed
	w.current.Decoded += stats.Decoded

	if child := b.offspring; child != nil {
		b.offspring = nil
		w.initOffspring(b, child)
	}
	if b.dead {
		return
	}

	if b.HP <= 0 || b.Organics <= 0 {
		w.die(b)
		return
	}
	b.Energy -= w.energyConsumption(b)
	if b.Energy <= 0 || b.Energy >= cfg.MaxEnergy {
		w.die(b)
	}
}

// initOffspring sets up the genome of a child created during the parent's
// run and runs its embryo program.
func (w *World) initOffspring(parent, child *Bot) {
	if child.dead {
		return
	}
	if child.Energy <= 0 || child.Organics <= 0 {
		w.die(child)
		return
	}

	if mate := w.mate(parent, child); mate != nil && w.rng.Float64() < w.cfg.CrossoverChance {
		child.dna.Crossover(parent.dna, mate.dna, w.rng)
	} else {
		child.dna.CopyFrom(parent.dna)
	}
	child.dna.Mutate(w.rng)
	child.SetActiveGene(1)
	w.runEmbryo(child)
}

// mate returns a living neighbour of parent other than child.
func (w *World) mate(parent, child *Bot) *Bot {
	for d := Up; d <= Left; d++ {
		c := w.grid.Neighbour(parent.cell, d)
		if c != nil && c.bot != nil && c.bot != child && !c.bot.dead {
			return c.bot
		}
	}
	return nil
}

func (w *World) photosynthesize(b *Bot) {
	chlorophyll := b.Parameter(Chlorophyll)
	light := b.cell.SunLight
	if chlorophyll <= 0 || light < 8-chlorophyll {
		return
	}
	gain := int(float64(light) * (0.5 + 0.2*float64(chlorophyll)))
	if gain > 0 && b.Minerals == 0 && b.cell.Minerals == 0 {
		gain -= max(1, gain/3)
	}
	b.Energy += gain

	switch {
	case b.Minerals > 0:
		b.Minerals--
		b.Organics++
	case b.cell.Minerals > 0:
		b.cell.Minerals--
		b.Organics++
	}
}

func (w *World) energyConsumption(b *Bot) int {
	cfg := w.cfg.Bot
	aging := 0
	if b.Age > cfg.AgingStart {
		aging = (b.Age - cfg.AgingStart) / 10
	}
	return cfg.EnergyConsumption + aging + b.parameterUpkeep() + b.Organics/cfg.EnergyConsumptionGrow
}

// sweep drops dead bots and recycles their DNA.
func (w *World) sweep() {
	alive := w.bots[:0]
	for _, b := range w.bots {
		if !b.dead {
			alive = append(alive, b)
			continue
		}
		w.current.Died++
		w.pool.Release(b.dna)
		b.dna = nil
	}
	clear(w.bots[len(alive):])
	w.bots = alive
}
