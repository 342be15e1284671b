package world

import (
	"fmt"
	"math/rand"
)

// Direction is a bot heading. The y axis points up.
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

var directionNames = [...]string{Up: "up", Right: "right", Down: "down", Left: "left"}

var directionDeltas = [...][2]int{Up: {0, 1}, Right: {1, 0}, Down: {0, -1}, Left: {-1, 0}}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// Next turns clockwise.
func (d Direction) Next() Direction { return (d + 1) % 4 }

// Prev turns counter-clockwise.
func (d Direction) Prev() Direction { return (d + 3) % 4 }

// Opposite turns around.
func (d Direction) Opposite() Direction { return (d + 2) % 4 }

func randomDirection(rng *rand.Rand) Direction {
	return Direction(rng.Intn(4))
}

// Cell is one grid square. At most one bot occupies a cell.
type Cell struct {
	X, Y     int
	SunLight int
	Organics int
	Minerals int
	Energy   int

	bot *Bot
}

// Bot returns the occupant, or nil.
func (c *Cell) Bot() *Bot {
	return c.bot
}

func (c *Cell) changeOrganics(diff int) {
	c.Organics = max(0, c.Organics+diff)
}

func (c *Cell) changeMinerals(diff int) {
	c.Minerals = max(0, c.Minerals+diff)
}

func (c *Cell) changeEnergy(diff int) {
	c.Energy = max(0, c.Energy+diff)
}

// Grid is a bounded rectangle of cells. Sunlight is static, brightest in
// the top row; minerals start richest in the bottom row.
type Grid struct {
	width, height int
	cells         []Cell
}

// NewGrid creates a grid and applies the static light and mineral
// distribution.
func NewGrid(cfg Config) *Grid {
	g := &Grid{
		width:  cfg.Width,
		height: cfg.Height,
		cells:  make([]Cell, cfg.Width*cfg.Height),
	}
	for y := 0; y < g.height; y++ {
		light := max(0, cfg.MaxLight-(g.height-1-y)*cfg.LightFalloff)
		minerals := max(0, cfg.MaxMinerals-y*cfg.MineralFalloff)
		for x := 0; x < g.width; x++ {
			c := &g.cells[y*g.width+x]
			c.X, c.Y = x, y
			c.SunLight = light
			c.Minerals = minerals
		}
	}
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Cell returns the cell at (x, y), or nil outside the grid.
func (g *Grid) Cell(x, y int) *Cell {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return nil
	}
	return &g.cells[y*g.width+x]
}

// Neighbour returns the cell next to c in direction d, or nil at the edge.
func (g *Grid) Neighbour(c *Cell, d Direction) *Cell {
	delta := directionDeltas[d]
	return g.Cell(c.X+delta[0], c.Y+delta[1])
}

// Cells returns every cell in row order.
func (g *Grid) Cells() []Cell {
	return g.cells
}

func (g *Grid) randomFreeCell(rng *rand.Rand) *Cell {
	// A few random probes, then a scan from a random start.
	for i := 0; i < 16; i++ {
		c := &g.cells[rng.Intn(len(g.cells))]
		if c.bot == nil {
			return c
		}
	}
	start := rng.Intn(len(g.cells))
	for i := range g.cells {
		c := &g.cells[(start+i)%len(g.cells)]
		if c.bot == nil {
			return c
		}
	}
	return nil
}
