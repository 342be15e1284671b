// Package snapshot saves and restores world populations as CBOR.
package snapshot

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

// Version is the population format written by Marshal.
const Version = 1

// ErrVersion is returned for a snapshot of an unknown format version.
var ErrVersion = errors.New("unsupported snapshot version")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Population is the saved state of a world: its bots and the resources
// lying in its cells. Sunlight is derived from the grid configuration and
// not saved.
type Population struct {
	Version int    `cbor:"1,keyasint"`
	Seed    int64  `cbor:"2,keyasint"`
	Turn    int    `cbor:"3,keyasint"`
	Width   int    `cbor:"4,keyasint"`
	Height  int    `cbor:"5,keyasint"`
	Bots    []Bot  `cbor:"6,keyasint"`
	Cells   []Cell `cbor:"7,keyasint,omitempty"` // cells holding any resource
}

// Bot is one saved bot.
type Bot struct {
	ID                   int64    `cbor:"1,keyasint"`
	X                    int      `cbor:"2,keyasint"`
	Y                    int      `cbor:"3,keyasint"`
	Dir                  uint8    `cbor:"4,keyasint"`
	HP                   int      `cbor:"5,keyasint"`
	Energy               int      `cbor:"6,keyasint"`
	Organics             int      `cbor:"7,keyasint"`
	Minerals             int      `cbor:"8,keyasint"`
	Age                  int      `cbor:"9,keyasint"`
	TurnsAfterReproduced int      `cbor:"10,keyasint"`
	ActiveGene           int      `cbor:"11,keyasint"`
	Parameters           []int    `cbor:"12,keyasint"`
	Genes                [][]int8 `cbor:"13,keyasint"`
}

// Cell is the resource content of one cell.
type Cell struct {
	X        int `cbor:"1,keyasint"`
	Y        int `cbor:"2,keyasint"`
	Organics int `cbor:"3,keyasint,omitempty"`
	Minerals int `cbor:"4,keyasint,omitempty"`
	Energy   int `cbor:"5,keyasint,omitempty"`
}

// Capture records the current population of w.
func Capture(w *world.World) *Population {
	g := w.Grid()
	p := &Population{
		Version: Version,
		Seed:    w.Seed(),
		Turn:    w.Turn(),
		Width:   g.Width(),
		Height:  g.Height(),
	}
	for _, b := range w.Bots() {
		s := b.State()
		p.Bots = append(p.Bots, Bot{
			ID:                   s.ID,
			X:                    s.X,
			Y:                    s.Y,
			Dir:                  uint8(s.Dir),
			HP:                   s.HP,
			Energy:               s.Energy,
			Organics:             s.Organics,
			Minerals:             s.Minerals,
			Age:                  s.Age,
			TurnsAfterReproduced: s.TurnsAfterReproduced,
			ActiveGene:           s.ActiveGene,
			Parameters:           s.Parameters,
			Genes:                s.Genes,
		})
	}
	for _, c := range g.Cells() {
		if c.Organics != 0 || c.Minerals != 0 || c.Energy != 0 {
			p.Cells = append(p.Cells, Cell{X: c.X, Y: c.Y, Organics: c.Organics, Minerals: c.Minerals, Energy: c.Energy})
		}
	}
	return p
}

// Restore fills an empty world with a captured population. The world must
// have the grid size the population was captured on.
func Restore(w *world.World, p *Population) error {
	if p.Version != Version {
		return fmt.Errorf("snapshot: version %d: %w", p.Version, ErrVersion)
	}
	g := w.Grid()
	if g.Width() != p.Width || g.Height() != p.Height {
		return fmt.Errorf("snapshot: grid %dx%d does not match world %dx%d", p.Width, p.Height, g.Width(), g.Height())
	}
	if n := len(w.Bots()); n > 0 {
		return fmt.Errorf("snapshot: world already holds %d bots", n)
	}

	for _, c := range p.Cells {
		cell := g.Cell(c.X, c.Y)
		if cell == nil {
			return fmt.Errorf("snapshot: cell (%d,%d) outside the grid", c.X, c.Y)
		}
		cell.Organics, cell.Minerals, cell.Energy = c.Organics, c.Minerals, c.Energy
	}
	for _, b := range p.Bots {
		_, err := w.Restore(world.BotState{
			ID:                   b.ID,
			X:                    b.X,
			Y:                    b.Y,
			Dir:                  world.Direction(b.Dir),
			HP:                   b.HP,
			Energy:               b.Energy,
			Organics:             b.Organics,
			Minerals:             b.Minerals,
			Age:                  b.Age,
			TurnsAfterReproduced: b.TurnsAfterReproduced,
			ActiveGene:           b.ActiveGene,
			Parameters:           b.Parameters,
			Genes:                b.Genes,
		})
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
	}
	w.SetTurn(p.Turn)
	return nil
}

// Marshal serializes a Population to CBOR bytes.
func Marshal(p *Population) ([]byte, error) {
	return encMode.Marshal(p)
}

// Unmarshal deserializes a Population from CBOR bytes.
func Unmarshal(data []byte) (*Population, error) {
	var p Population
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal population: %w", err)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("snapshot: version %d: %w", p.Version, ErrVersion)
	}
	return &p, nil
}

// Save writes a Population to a file.
func Save(path string, p *Population) error {
	data, err := Marshal(p)
	if err != nil {
		return fmt.Errorf("snapshot: marshal population: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// Load reads a Population from a file.
func Load(path string) (*Population, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Unmarshal(data)
}
