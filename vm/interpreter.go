package vm

import (
	"fmt"
	"math/rand"

	"github.com/Gordon-from-Blumberg/evo-cell/genome"
	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("evocell.vm")

// Config bounds the interpreter.
type Config struct {
	GotoLimit        int  // times one goto target may be taken per run
	ExpressionMarker int8 // parameter values below this may start an expression
}

// DefaultConfig returns the standard bounds.
func DefaultConfig() Config {
	return Config{GotoLimit: 3, ExpressionMarker: -64}
}

// Validate checks that the configuration can bound a run.
func (c Config) Validate() error {
	if c.GotoLimit < 0 {
		return fmt.Errorf("vm: goto limit %d is negative", c.GotoLimit)
	}
	return nil
}

// Bot is the organism a genome runs for.
type Bot interface {
	DNA() *genome.DNA
	ActiveGene() int
	Viable() bool
	Kill()
}

// Host performs action effects and answers sensor expressions. It is the
// world the bot lives in.
type Host interface {
	Act(bot Bot, kind opcode.ActionKind, counter, param int)
	Evaluate(bot Bot, kind opcode.ExprKind, x, y Operand) int
}

// Stats summarises one run.
type Stats struct {
	Decoded  int // steps decoded
	Executed int // actions handed to the host
}

// ---------------------------------------------------------------------------
// Run state
// ---------------------------------------------------------------------------

// runState is everything one run touches. It is cleared when the run ends.
type runState struct {
	arena   *arena
	cfg     Config
	rng     *rand.Rand
	actions *opcode.ActionSet
	exprs   *opcode.ExpressionSet

	host Host
	bot  Bot
	dna  *genome.DNA

	memo         map[gotoTarget]StepID
	visits       map[gotoTarget]int
	visitedGenes map[int]bool
	counters     map[string]int
	executed     int
}

func (st *runState) reset() {
	st.arena.release()
	st.actions = nil
	st.host = nil
	st.bot = nil
	st.dna = nil
	clear(st.memo)
	clear(st.visits)
	clear(st.visitedGenes)
	clear(st.counters)
	st.executed = 0
}

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// Interpreter decodes and runs genes. One interpreter serves one world:
// it is not safe for concurrent use and must not be re-entered from a
// Host callback.
type Interpreter struct {
	reg     *opcode.Registry
	arena   arena
	state   runState
	running bool
}

// New creates an interpreter over reg. rng feeds parameter defaults and
// the random operator.
func New(reg *opcode.Registry, cfg Config, rng *rand.Rand) *Interpreter {
	in := &Interpreter{reg: reg}
	in.state = runState{
		arena:        &in.arena,
		cfg:          cfg,
		rng:          rng,
		exprs:        reg.Expressions,
		memo:         make(map[gotoTarget]StepID),
		visits:       make(map[gotoTarget]int),
		visitedGenes: make(map[int]bool),
		counters:     make(map[string]int),
	}
	log.Debugf("interpreter ready: goto limit %d, expression marker %d", cfg.GotoLimit, cfg.ExpressionMarker)
	return in
}

// Config returns the bounds the interpreter runs with.
func (in *Interpreter) Config() Config {
	return in.state.cfg
}

// Run decodes and executes the bot's active gene.
func (in *Interpreter) Run(host Host, bot Bot) Stats {
	gene := wrap(bot.ActiveGene(), bot.DNA().Len())
	return in.run(host, bot, in.reg.Actions, gene)
}

// RunEmbryo executes gene 0 with the embryo opcode set. It is called once
// when a bot is created.
func (in *Interpreter) RunEmbryo(host Host, bot Bot) Stats {
	return in.run(host, bot, in.reg.Embryo, 0)
}

func (in *Interpreter) run(host Host, bot Bot, actions *opcode.ActionSet, gene int) Stats {
	st := in.begin(host, bot, actions)
	defer in.end()

	st.exec(st.readGene(gene))
	return Stats{Decoded: st.arena.outstanding(), Executed: st.executed}
}

// describeSeed seeds the generator that fills random defaults while
// describing. Describe never draws from the run generator, so inspecting
// a bot leaves the simulation untouched.
const describeSeed = 1

// Describe renders the embryo program and the active gene of bot. No
// action is executed; goto targets are expanded once. Random defaults
// are filled from a private generator, so the same bot always prints the
// same way.
func (in *Interpreter) Describe(bot Bot) string {
	var p printer
	rng := rand.New(rand.NewSource(describeSeed))
	in.describeGene(&p, bot, in.reg.Embryo, rng, func(dna *genome.DNA) (string, int) {
		return fmt.Sprintf("embryo gene 0 (%d genes)", dna.Len()), 0
	})
	in.describeGene(&p, bot, in.reg.Actions, rng, func(dna *genome.DNA) (string, int) {
		active := wrap(bot.ActiveGene(), dna.Len())
		return fmt.Sprintf("active gene %d", active), active
	})
	return p.String()
}

// describeGene prints one gene under its own begin/end pair. pick names
// the section and chooses the gene.
func (in *Interpreter) describeGene(p *printer, bot Bot, actions *opcode.ActionSet, rng *rand.Rand, pick func(*genome.DNA) (string, int)) {
	st := in.begin(nil, bot, actions)
	runRng := st.rng
	st.rng = rng
	defer func() {
		st.rng = runRng
		in.end()
	}()

	title, gene := pick(st.dna)
	p.section(title)
	p.tree(st, st.readGene(gene))
}

// Outstanding returns the number of arena slots in use. It is 0 between
// calls.
func (in *Interpreter) Outstanding() int {
	return in.arena.outstanding()
}

func (in *Interpreter) begin(host Host, bot Bot, actions *opcode.ActionSet) *runState {
	if in.running {
		panic("vm: interpreter re-entered")
	}
	dna := bot.DNA()
	in.running = true
	st := &in.state
	st.host = host
	st.bot = bot
	st.dna = dna
	st.actions = actions
	return st
}

func (in *Interpreter) end() {
	in.state.reset()
	in.running = false
}
