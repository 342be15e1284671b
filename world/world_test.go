package world

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/Gordon-from-Blumberg/evo-cell/genome"
	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
	"github.com/Gordon-from-Blumberg/evo-cell/vm"
)

var (
	registryOnce sync.Once
	registry     *opcode.Registry
	registryErr  error
)

func testWorld(t *testing.T, mutate func(*Options)) *World {
	t.Helper()
	registryOnce.Do(func() {
		registry, registryErr = opcode.LoadDefault()
	})
	if registryErr != nil {
		t.Fatalf("LoadDefault: %v", registryErr)
	}

	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 8, 8
	opts := Options{
		Config:      cfg,
		Genome:      genome.DefaultConfig(),
		Interpreter: vm.DefaultConfig(),
		Registry:    registry,
		Seed:        42,
	}
	if mutate != nil {
		mutate(&opts)
	}
	w, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

// program returns DNA values with gene 0 empty and gene 1 holding prog.
func program(prog ...int8) [][]int8 {
	genes := make([][]int8, 4)
	for i := range genes {
		genes[i] = make([]int8, 16)
	}
	copy(genes[1], prog)
	return genes
}

func TestDirection(t *testing.T) {
	tests := []struct {
		d                    Direction
		next, prev, opposite Direction
	}{
		{Up, Right, Left, Down},
		{Right, Down, Up, Left},
		{Down, Left, Right, Up},
		{Left, Up, Down, Right},
	}
	for _, tt := range tests {
		if tt.d.Next() != tt.next || tt.d.Prev() != tt.prev || tt.d.Opposite() != tt.opposite {
			t.Errorf("%v: next %v prev %v opposite %v", tt.d, tt.d.Next(), tt.d.Prev(), tt.d.Opposite())
		}
	}
}

func TestGridDistribution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 4, 12
	g := NewGrid(cfg)

	top, bottom := g.Cell(0, 11), g.Cell(0, 0)
	if top.SunLight != cfg.MaxLight {
		t.Errorf("top light = %d, want %d", top.SunLight, cfg.MaxLight)
	}
	if bottom.SunLight >= top.SunLight {
		t.Errorf("bottom light %d not below top light %d", bottom.SunLight, top.SunLight)
	}
	if bottom.Minerals != cfg.MaxMinerals || top.Minerals >= bottom.Minerals {
		t.Errorf("minerals bottom %d top %d", bottom.Minerals, top.Minerals)
	}
	if g.Cell(-1, 0) != nil || g.Cell(4, 0) != nil || g.Neighbour(top, Up) != nil {
		t.Error("cells outside the grid must be nil")
	}
	if n := g.Neighbour(bottom, Right); n.X != 1 || n.Y != 0 {
		t.Errorf("right of (0,0) = (%d,%d)", n.X, n.Y)
	}
}

func TestSpawnAndEmbryo(t *testing.T) {
	w := testWorld(t, nil)
	genes := program(1)
	genes[0][0], genes[0][1] = 14, int8(Moving) // increaseParameter moving

	b, err := w.Spawn(2, 3, genes)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if b.Parameter(Moving) != 1 {
		t.Errorf("moving = %d after embryo run, want 1", b.Parameter(Moving))
	}
	if b.ActiveGene() != 1 {
		t.Errorf("ActiveGene() = %d, want 1", b.ActiveGene())
	}
	if b.Energy >= w.cfg.InitialEnergy {
		t.Error("embryo parameter change was free")
	}
	if got, _ := w.Bot(b.ID); got != b {
		t.Error("spawned bot not registered")
	}

	if _, err := w.Spawn(2, 3, nil); err == nil {
		t.Error("Spawn accepted an occupied cell")
	}
	if _, err := w.Spawn(100, 0, nil); err == nil {
		t.Error("Spawn accepted a cell outside the grid")
	}
	if _, err := w.Spawn(0, 0, [][]int8{{1}}); err == nil {
		t.Error("Spawn accepted malformed genes")
	}
	if w.Grid().Cell(0, 0).Bot() != nil {
		t.Error("failed spawn left a bot on the grid")
	}
}

func TestMoveAndRotate(t *testing.T) {
	w := testWorld(t, nil)
	b, err := w.Spawn(3, 3, program(1)) // move
	if err != nil {
		t.Fatal(err)
	}
	b.Dir = Up

	w.Step()

	if b.X() != 3 || b.Y() != 4 {
		t.Errorf("bot at (%d,%d), want (3,4)", b.X(), b.Y())
	}
	if w.Grid().Cell(3, 3).Bot() != nil || w.Grid().Cell(3, 4).Bot() != b {
		t.Error("grid occupancy not updated")
	}

	w.Act(b, opcode.ActionRotateRight, 0, 0)
	if b.Dir != Right {
		t.Errorf("Dir = %v after rotateRight, want right", b.Dir)
	}
	w.Act(b, opcode.ActionRotate, 0, 1)
	if b.Dir != Up {
		t.Errorf("Dir = %v after rotate with odd parameter, want up", b.Dir)
	}
}

func TestEscalatingCost(t *testing.T) {
	w := testWorld(t, nil)
	b, err := w.Spawn(0, 0, program())
	if err != nil {
		t.Fatal(err)
	}
	b.Energy = 500
	b.Organics = 30

	var costs []int
	for counter := 0; counter < 3; counter++ {
		before := b.Energy
		w.Act(b, opcode.ActionDigestOrganics, counter, 0)
		costs = append(costs, before-b.Energy)
	}
	// The gain is constant, so the net loss grows with the counter.
	if !(costs[0] < costs[1] && costs[1] < costs[2]) {
		t.Errorf("net energy loss per digest = %v, want increasing", costs)
	}

	organics := b.Organics
	w.Act(b, opcode.ActionDigestOrganics, w.cfg.Bot.ActionLimit, 0)
	if b.Organics != organics {
		t.Error("action beyond the limit still had an effect")
	}
}

func TestSensors(t *testing.T) {
	w := testWorld(t, nil)
	a, err := w.Spawn(1, 1, program())
	if err != nil {
		t.Fatal(err)
	}
	a.Dir = Right
	a.HP = 7

	if got := botProperty(a, propHP); got != 7 {
		t.Errorf("myProperty hp = %d", got)
	}
	if got := botProperty(a, propHP+botPropertyCount); got != 7 {
		t.Errorf("property index is not wrapped: %d", got)
	}
	if got := cellProperty(a.Cell(), cellSunLight); got != a.Cell().SunLight {
		t.Errorf("myCell sunLight = %d", got)
	}

	if got := w.forwardBot(a); got != SeenNothing {
		t.Errorf("forwardBot on empty cell = %d", got)
	}
	kin, err := w.Spawn(2, 1, a.DNA().Genes())
	if err != nil {
		t.Fatal(err)
	}
	if got := w.forwardBot(a); got != SeenKin {
		t.Errorf("forwardBot on clone = %d, want kin", got)
	}
	w.die(kin)
	stranger, err := w.Spawn(2, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !stranger.Dead() && a.DNA().Distance(stranger.DNA()) > w.cfg.KinDistance {
		if got := w.forwardBot(a); got != SeenStranger {
			t.Errorf("forwardBot on random bot = %d, want stranger", got)
		}
	}

	a.Dir = Left
	if got := w.forwardBot(a); got != SeenNothing {
		t.Errorf("forwardBot facing empty cell = %d", got)
	}
	a.Dir = Down
	w.Act(a, opcode.ActionMove, 0, 0)
	if a.Y() != 0 {
		t.Fatalf("bot at row %d, want 0", a.Y())
	}
	if w.forwardCell(a) != nil {
		t.Error("forward cell below the bottom row exists")
	}
}

func TestBiteKills(t *testing.T) {
	w := testWorld(t, nil)
	a, _ := w.Spawn(1, 1, program())
	v, _ := w.Spawn(2, 1, program())
	a.Dir = Right
	a.Energy = 500
	a.Organics = 100
	v.HP = 1
	v.Organics = 3

	w.Act(a, opcode.ActionBite, 0, 0)

	if !v.Dead() {
		t.Fatal("victim survived")
	}
	if w.Grid().Cell(2, 1).Bot() != nil {
		t.Error("dead victim still occupies its cell")
	}
	if _, ok := w.Bot(v.ID); ok {
		t.Error("dead victim still registered")
	}
}

func TestOffspringIsDeferred(t *testing.T) {
	w := testWorld(t, func(o *Options) {
		o.Genome.MutationChance = 0
		o.Config.CrossoverChance = 0
	})
	// produceOffspring; the embryo gene is empty
	parent, err := w.Spawn(4, 4, program(11))
	if err != nil {
		t.Fatal(err)
	}
	parent.Age = w.cfg.Bot.MinAgeToReproduce
	parent.TurnsAfterReproduced = w.cfg.Bot.ReproduceDelay
	parent.Energy = 400
	parent.Organics = 40

	stat := w.Step()

	if stat.Born != 1 {
		t.Fatalf("Born = %d, want 1", stat.Born)
	}
	bots := w.Bots()
	if len(bots) != 2 {
		t.Fatalf("%d bots alive, want 2", len(bots))
	}
	child := bots[1]
	if !child.DNA().Equal(parent.DNA()) {
		t.Error("child DNA is not a copy of the parent")
	}
	if child.ActiveGene() != 1 {
		t.Errorf("child ActiveGene() = %d, want 1", child.ActiveGene())
	}
	if child.Energy == 0 || child.Organics != 10 {
		t.Errorf("child energy %d organics %d", child.Energy, child.Organics)
	}
	if child.Age != 0 {
		t.Error("child acted in the turn it was born")
	}
}

func TestDeathReleasesDNA(t *testing.T) {
	w := testWorld(t, nil)
	b, err := w.Spawn(0, 0, program())
	if err != nil {
		t.Fatal(err)
	}
	b.Energy = 1
	cell := b.Cell()
	organics := cell.Organics + b.Organics

	stat := w.Step()

	if stat.Died != 1 || stat.Alive != 0 {
		t.Fatalf("stat = %+v", stat)
	}
	if cell.Organics != organics {
		t.Errorf("cell organics = %d, want %d", cell.Organics, organics)
	}
	if dnas, _ := w.pool.Idle(); dnas != 1 {
		t.Errorf("%d DNA idle in pool, want 1", dnas)
	}
}

func TestDescribe(t *testing.T) {
	w := testWorld(t, nil)
	b, err := w.Spawn(0, 0, program(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	out, err := w.Describe(b.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if !strings.Contains(out, "[1:00] move") || !strings.Contains(out, "[1:01] rotateLeft") {
		t.Errorf("Describe output:\n%s", out)
	}
	if _, err := w.Describe(999); !errors.Is(err, ErrNoBot) {
		t.Errorf("Describe(999) error = %v, want ErrNoBot", err)
	}
}

func TestRestore(t *testing.T) {
	w := testWorld(t, nil)
	b, _ := w.Spawn(5, 6, program(1))
	b.Age = 17
	b.params[BigMouth] = 2
	state := b.State()

	other := testWorld(t, nil)
	r, err := other.Restore(state)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := r.State(); got.ID != state.ID || got.X != 5 || got.Y != 6 || got.Age != 17 ||
		got.Parameters[BigMouth] != 2 || !r.DNA().Equal(b.DNA()) {
		t.Errorf("restored state = %+v", got)
	}
	if _, err := other.Restore(state); err == nil {
		t.Error("Restore accepted an occupied cell")
	}
	if next, _ := other.Spawn(0, 0, program()); next.ID <= state.ID {
		t.Errorf("new id %d does not follow restored id %d", next.ID, state.ID)
	}
}

func TestRestoreRejectsParameterLevels(t *testing.T) {
	w := testWorld(t, nil)
	b, _ := w.Spawn(2, 2, program(1))

	tests := []struct {
		name  string
		param Parameter
		level int
	}{
		{"bigMouth above max", BigMouth, parameterTypes[BigMouth].max + 1},
		{"bigMouth divides by zero", BigMouth, 20},
		{"negative moving", Moving, -1},
		{"negative chlorophyll", Chlorophyll, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := b.State()
			state.Parameters[tt.param] = tt.level
			other := testWorld(t, nil)
			if _, err := other.Restore(state); err == nil {
				t.Errorf("Restore accepted %v level %d", tt.param, tt.level)
			}
			if len(other.Bots()) != 0 {
				t.Errorf("rejected bot left %d bots in the world", len(other.Bots()))
			}
		})
	}

	state := b.State()
	state.Parameters[BigMouth] = parameterTypes[BigMouth].max
	if _, err := testWorld(t, nil).Restore(state); err != nil {
		t.Errorf("Restore rejected the maximum level: %v", err)
	}
}

func TestPopulationDeterminism(t *testing.T) {
	run := func() []Statistic {
		w := testWorld(t, nil)
		if err := w.Populate(20); err != nil {
			t.Fatalf("Populate: %v", err)
		}
		var stats []Statistic
		for i := 0; i < 30; i++ {
			stats = append(stats, w.Step())
			if w.Interpreter().Outstanding() != 0 {
				t.Fatalf("turn %d left decoded steps outstanding", i+1)
			}
		}
		return stats
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("turn %d differs: %+v vs %+v", i+1, a[i], b[i])
		}
	}
}

func TestDescribeDoesNotChangeTheRun(t *testing.T) {
	run := func(describe bool) []BotState {
		w := testWorld(t, nil)
		gene := make([]int8, 16)
		gene[15] = 4 // rotate, its parameter filled from a random default
		genes := program()
		genes[1] = gene
		if _, err := w.Spawn(3, 3, genes); err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if err := w.Populate(20); err != nil {
			t.Fatalf("Populate: %v", err)
		}
		for i := 0; i < 30; i++ {
			if describe {
				for _, b := range w.Bots() {
					if _, err := w.Describe(b.ID); err != nil {
						t.Fatalf("Describe(%d): %v", b.ID, err)
					}
				}
			}
			w.Step()
		}
		var states []BotState
		for _, b := range w.Bots() {
			states = append(states, b.State())
		}
		return states
	}

	plain, described := run(false), run(true)
	if len(plain) != len(described) {
		t.Fatalf("%d bots without Describe, %d with", len(plain), len(described))
	}
	for i := range plain {
		if !reflect.DeepEqual(plain[i], described[i]) {
			t.Fatalf("bot %d differs after Describe: %+v vs %+v", plain[i].ID, plain[i], described[i])
		}
	}
}

func TestPopulateFull(t *testing.T) {
	w := testWorld(t, func(o *Options) {
		o.Config.Width, o.Config.Height = 2, 2
	})
	if err := w.Populate(5); !errors.Is(err, ErrGridFull) {
		t.Errorf("Populate error = %v, want ErrGridFull", err)
	}
}
