// Package config handles evocell.toml simulation configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Gordon-from-Blumberg/evo-cell/genome"
	"github.com/Gordon-from-Blumberg/evo-cell/pkg/opcode"
	"github.com/Gordon-from-Blumberg/evo-cell/vm"
	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

// FileName is the name of the configuration file.
const FileName = "evocell.toml"

// Config represents an evocell.toml configuration.
type Config struct {
	World       World       `toml:"world"`
	DNA         DNA         `toml:"dna"`
	Interpreter Interpreter `toml:"interpreter"`
	Bot         Bot         `toml:"bot"`
	Opcodes     Opcodes     `toml:"opcodes"`
	Store       Store       `toml:"store"`
	Server      Server      `toml:"server"`
	Log         Log         `toml:"log"`

	// Dir is the directory containing the evocell.toml file (set at load time).
	// Relative paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// World configures the grid and the initial population.
type World struct {
	Width           int     `toml:"width"`
	Height          int     `toml:"height"`
	Seed            int64   `toml:"seed"`
	Population      int     `toml:"population"`
	MaxLight        int     `toml:"max-light"`
	LightFalloff    int     `toml:"light-falloff"`
	MaxMinerals     int     `toml:"max-minerals"`
	MineralFalloff  int     `toml:"mineral-falloff"`
	CrossoverChance float64 `toml:"crossover-chance"`
	KinDistance     int     `toml:"kin-distance"`
	InitialEnergy   int     `toml:"initial-energy"`
	InitialOrganics int     `toml:"initial-organics"`
	InitialMinerals int     `toml:"initial-minerals"`
}

// DNA configures genome shape and mutation.
type DNA struct {
	GeneLength            int     `toml:"gene-length"`
	MinGenes              int     `toml:"min-genes"`
	MaxGenes              int     `toml:"max-genes"`
	MutationChance        float64 `toml:"mutation-chance"`
	GeneCountChangeChance float64 `toml:"gene-count-change-chance"`
	GeneDuplicateChance   float64 `toml:"gene-duplicate-chance"`
}

// Interpreter configures program execution bounds.
type Interpreter struct {
	GotoLimit        int  `toml:"goto-limit"`
	ExpressionMarker int8 `toml:"expression-marker"`
}

// Bot configures action costs and lifetime limits.
type Bot struct {
	MaxHP                 int `toml:"max-hp"`
	MaxEnergy             int `toml:"max-energy"`
	EnergyConsumption     int `toml:"energy-consumption"`
	EnergyConsumptionGrow int `toml:"energy-consumption-grow"`
	RotateCost            int `toml:"rotate-cost"`
	RotateCostGrow        int `toml:"rotate-cost-grow"`
	MoveCost              int `toml:"move-cost"`
	MoveCostGrow          int `toml:"move-cost-grow"`
	RegenerateCost        int `toml:"regenerate-cost"`
	IncreaseParameterCost int `toml:"increase-parameter-cost"`
	OffspringCost         int `toml:"offspring-cost"`
	AgingStart            int `toml:"aging-start"`
	MaxAge                int `toml:"max-age"`
	MinAgeToReproduce     int `toml:"min-age-to-reproduce"`
	ReproduceDelay        int `toml:"reproduce-delay"`
	ActionLimit           int `toml:"action-limit"`
}

// Opcodes points at replacement opcode data. Empty paths select the
// built-in tables.
type Opcodes struct {
	Actions     string `toml:"actions"`
	Expressions string `toml:"expressions"`
}

// Store configures the statistics database.
type Store struct {
	Path         string `toml:"path"`
	ArchiveEvery int    `toml:"archive-every"` // turns between genome archives, 0 disables
}

// Server configures the inspection server.
type Server struct {
	Addr string `toml:"addr"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	w := world.DefaultConfig()
	g := genome.DefaultConfig()
	i := vm.DefaultConfig()
	return &Config{
		World: World{
			Width:           w.Width,
			Height:          w.Height,
			Seed:            1,
			Population:      200,
			MaxLight:        w.MaxLight,
			LightFalloff:    w.LightFalloff,
			MaxMinerals:     w.MaxMinerals,
			MineralFalloff:  w.MineralFalloff,
			CrossoverChance: w.CrossoverChance,
			KinDistance:     w.KinDistance,
			InitialEnergy:   w.InitialEnergy,
			InitialOrganics: w.InitialOrganics,
			InitialMinerals: w.InitialMinerals,
		},
		DNA: DNA{
			GeneLength:            g.GeneLength,
			MinGenes:              g.MinGenes,
			MaxGenes:              g.MaxGenes,
			MutationChance:        g.MutationChance,
			GeneCountChangeChance: g.GeneCountChangeChance,
			GeneDuplicateChance:   g.GeneDuplicateChance,
		},
		Interpreter: Interpreter{
			GotoLimit:        i.GotoLimit,
			ExpressionMarker: i.ExpressionMarker,
		},
		Bot: Bot(w.Bot),
		Store: Store{
			Path:         "evocell.db",
			ArchiveEvery: 100,
		},
		Server: Server{Addr: "localhost:8642"},
		Log:    Log{Verbosity: 1},
	}
}

// Load parses an evocell.toml file from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file. Keys missing from the file keep
// their defaults; unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find an evocell.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks every section against the package that consumes it.
func (c *Config) Validate() error {
	if err := c.WorldConfig().Validate(); err != nil {
		return err
	}
	if err := c.GenomeConfig().Validate(); err != nil {
		return err
	}
	if err := c.InterpreterConfig().Validate(); err != nil {
		return err
	}
	if c.World.Population < 0 || c.World.Population > c.World.Width*c.World.Height {
		return fmt.Errorf("config: population %d does not fit a %dx%d grid",
			c.World.Population, c.World.Width, c.World.Height)
	}
	if c.Store.ArchiveEvery < 0 {
		return fmt.Errorf("config: archive-every %d is negative", c.Store.ArchiveEvery)
	}
	return nil
}

// WorldConfig returns the [world] and [bot] sections as a world.Config.
func (c *Config) WorldConfig() world.Config {
	return world.Config{
		Width:           c.World.Width,
		Height:          c.World.Height,
		MaxLight:        c.World.MaxLight,
		LightFalloff:    c.World.LightFalloff,
		MaxMinerals:     c.World.MaxMinerals,
		MineralFalloff:  c.World.MineralFalloff,
		CrossoverChance: c.World.CrossoverChance,
		KinDistance:     c.World.KinDistance,
		InitialEnergy:   c.World.InitialEnergy,
		InitialOrganics: c.World.InitialOrganics,
		InitialMinerals: c.World.InitialMinerals,
		Bot:             world.BotConfig(c.Bot),
	}
}

// GenomeConfig returns the [dna] section.
func (c *Config) GenomeConfig() genome.Config {
	return genome.Config(c.DNA)
}

// InterpreterConfig returns the [interpreter] section.
func (c *Config) InterpreterConfig() vm.Config {
	return vm.Config(c.Interpreter)
}

// Registry loads the opcode tables named in [opcodes].
func (c *Config) Registry() (*opcode.Registry, error) {
	return opcode.LoadFiles(c.resolve(c.Opcodes.Actions), c.resolve(c.Opcodes.Expressions))
}

// WorldOptions assembles everything world.New needs. seed overrides the
// configured seed when non-zero.
func (c *Config) WorldOptions(seed int64) (world.Options, error) {
	reg, err := c.Registry()
	if err != nil {
		return world.Options{}, err
	}
	if seed == 0 {
		seed = c.World.Seed
	}
	return world.Options{
		Config:      c.WorldConfig(),
		Genome:      c.GenomeConfig(),
		Interpreter: c.InterpreterConfig(),
		Registry:    reg,
		Seed:        seed,
	}, nil
}

// StorePath returns the absolute database path, or "" when disabled.
func (c *Config) StorePath() string {
	return c.resolve(c.Store.Path)
}

// LogPath returns the log file path, or nil for stderr.
func (c *Config) LogPath() *string {
	if c.Log.Path == "" {
		return nil
	}
	p := c.resolve(c.Log.Path)
	return &p
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}
