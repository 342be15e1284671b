package world

import "fmt"

// Config describes the grid and the bot economy.
type Config struct {
	Width, Height  int
	MaxLight       int // sunlight of the top row
	LightFalloff   int // sunlight lost per row going down
	MaxMinerals    int // minerals of the bottom row
	MineralFalloff int // minerals lost per row going up

	CrossoverChance float64 // chance an offspring mixes DNA with a neighbour
	KinDistance     int     // max DNA distance at which forwardBot reports kin

	// Resources of bots created by Populate and Spawn.
	InitialEnergy   int
	InitialOrganics int
	InitialMinerals int

	Bot BotConfig
}

// BotConfig holds the costs and limits of bot actions.
type BotConfig struct {
	MaxHP                 int
	MaxEnergy             int
	EnergyConsumption     int
	EnergyConsumptionGrow int
	RotateCost            int
	RotateCostGrow        int
	MoveCost              int
	MoveCostGrow          int
	RegenerateCost        int
	IncreaseParameterCost int
	OffspringCost         int
	AgingStart            int
	MaxAge                int
	MinAgeToReproduce     int
	ReproduceDelay        int
	ActionLimit           int // invocations per tag and turn that still have an effect
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Width:           64,
		Height:          48,
		MaxLight:        10,
		LightFalloff:    1,
		MaxMinerals:     20,
		MineralFalloff:  2,
		CrossoverChance: 0.1,
		KinDistance:     8,
		InitialEnergy:   100,
		InitialOrganics: 10,
		InitialMinerals: 2,
		Bot: BotConfig{
			MaxHP:                 10,
			MaxEnergy:             1000,
			EnergyConsumption:     1,
			EnergyConsumptionGrow: 20,
			RotateCost:            1,
			RotateCostGrow:        10,
			MoveCost:              2,
			MoveCostGrow:          5,
			RegenerateCost:        2,
			IncreaseParameterCost: 10,
			OffspringCost:         5,
			AgingStart:            100,
			MaxAge:                300,
			MinAgeToReproduce:     15,
			ReproduceDelay:        7,
			ActionLimit:           3,
		},
	}
}

// Validate reports an unusable configuration.
func (c Config) Validate() error {
	switch {
	case c.Width < 1 || c.Height < 1:
		return fmt.Errorf("world: grid %dx%d is empty", c.Width, c.Height)
	case c.CrossoverChance < 0 || c.CrossoverChance > 1:
		return fmt.Errorf("world: crossover chance %v outside [0,1]", c.CrossoverChance)
	case c.Bot.MaxHP < 1:
		return fmt.Errorf("world: max hp %d is below 1", c.Bot.MaxHP)
	case c.Bot.MaxEnergy < 1:
		return fmt.Errorf("world: max energy %d is below 1", c.Bot.MaxEnergy)
	case c.Bot.RotateCostGrow < 1 || c.Bot.MoveCostGrow < 1 || c.Bot.EnergyConsumptionGrow < 1:
		return fmt.Errorf("world: cost growth divisors must be positive")
	case c.Bot.MaxAge < 1:
		return fmt.Errorf("world: max age %d is below 1", c.Bot.MaxAge)
	}
	return nil
}
