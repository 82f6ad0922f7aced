package platform

import (
	"fmt"

	"github.com/hibernatus-hacker/bardo-sub001/internal/island"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

// BaseConfig is the experiment-wide evolutionary configuration from
// which per-island configs are derived.
type BaseConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	CrossoverRate  float64
	TournamentSize int
	EliteFraction  float64
	Seed           int64
}

func (c BaseConfig) validate() error {
	if c.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size must be > 0", ErrConfiguration)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("%w: generations must be > 0", ErrConfiguration)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0, 1]", ErrConfiguration)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("%w: crossover rate must be in [0, 1]", ErrConfiguration)
	}
	if c.TournamentSize < 2 {
		return fmt.Errorf("%w: tournament size must be >= 2", ErrConfiguration)
	}
	if c.EliteFraction < 0 || c.EliteFraction > 1 {
		return fmt.Errorf("%w: elite fraction must be in [0, 1]", ErrConfiguration)
	}
	return nil
}

// minIslandPopulation guarantees viable tournament selection on every
// island regardless of how thin the split gets.
const minIslandPopulation = 10

// DeriveIslandConfigs splits a base config across islandCount islands.
// Position p = idx/(count-1) spreads islands from exploratory (doubled
// mutation, halved selection pressure) to exploitative (halved mutation,
// doubled selection pressure and elitism); middle islands keep base
// values.
func DeriveIslandConfigs(base BaseConfig, islandCount int) []model.IslandConfig {
	populationSize := base.PopulationSize / islandCount
	if populationSize < minIslandPopulation {
		populationSize = minIslandPopulation
	}

	configs := make([]model.IslandConfig, 0, islandCount)
	for idx := 0; idx < islandCount; idx++ {
		position := 0.0
		if islandCount > 1 {
			position = float64(idx) / float64(islandCount-1)
		}

		mutation := base.MutationRate
		tournament := base.TournamentSize
		elite := base.EliteFraction
		switch {
		case position < 0.25:
			mutation = clampRate(base.MutationRate * 2)
			tournament = base.TournamentSize / 2
			if tournament < 2 {
				tournament = 2
			}
		case position > 0.75:
			mutation = base.MutationRate * 0.5
			tournament = base.TournamentSize * 2
			elite = base.EliteFraction * 2
			if elite > 0.5 {
				elite = 0.5
			}
		}

		configs = append(configs, model.IslandConfig{
			IslandID:       island.IslandID(idx),
			Index:          idx,
			IslandCount:    islandCount,
			PopulationSize: populationSize,
			Generations:    base.Generations,
			MutationRate:   mutation,
			CrossoverRate:  base.CrossoverRate,
			TournamentSize: tournament,
			EliteFraction:  elite,
			Seed:           base.Seed + int64(idx),
		})
	}
	return configs
}

func clampRate(rate float64) float64 {
	if rate > 1 {
		return 1
	}
	return rate
}
