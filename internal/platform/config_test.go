package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() BaseConfig {
	return BaseConfig{
		PopulationSize: 100,
		Generations:    50,
		MutationRate:   0.3,
		CrossoverRate:  0.7,
		TournamentSize: 4,
		EliteFraction:  0.1,
		Seed:           42,
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := map[string]func(*BaseConfig){
		"zero population":      func(c *BaseConfig) { c.PopulationSize = 0 },
		"zero generations":     func(c *BaseConfig) { c.Generations = 0 },
		"mutation above one":   func(c *BaseConfig) { c.MutationRate = 1.5 },
		"negative crossover":   func(c *BaseConfig) { c.CrossoverRate = -0.1 },
		"tournament of one":    func(c *BaseConfig) { c.TournamentSize = 1 },
		"elite fraction above": func(c *BaseConfig) { c.EliteFraction = 1.1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.validate(), ErrConfiguration)
		})
	}
	require.NoError(t, baseConfig().validate())
}

func TestDeriveSplitsPopulation(t *testing.T) {
	configs := DeriveIslandConfigs(baseConfig(), 4)
	require.Len(t, configs, 4)
	for idx, cfg := range configs {
		assert.Equal(t, 25, cfg.PopulationSize)
		assert.Equal(t, idx, cfg.Index)
		assert.Equal(t, 4, cfg.IslandCount)
		assert.Equal(t, int64(42+idx), cfg.Seed, "each island gets its own seed")
	}
}

func TestDeriveEnforcesMinimumPopulation(t *testing.T) {
	base := baseConfig()
	base.PopulationSize = 12
	configs := DeriveIslandConfigs(base, 4)
	for _, cfg := range configs {
		assert.Equal(t, 10, cfg.PopulationSize)
	}
}

func TestDeriveSpreadsExplorationToExploitation(t *testing.T) {
	base := baseConfig()
	configs := DeriveIslandConfigs(base, 5)

	first := configs[0]
	assert.Equal(t, base.MutationRate*2, first.MutationRate, "first island explores")
	assert.Equal(t, 2, first.TournamentSize)

	middle := configs[2]
	assert.Equal(t, base.MutationRate, middle.MutationRate, "middle islands keep base values")
	assert.Equal(t, base.TournamentSize, middle.TournamentSize)

	last := configs[4]
	assert.Equal(t, base.MutationRate*0.5, last.MutationRate, "last island exploits")
	assert.Equal(t, base.TournamentSize*2, last.TournamentSize)
	assert.Equal(t, base.EliteFraction*2, last.EliteFraction)
}

func TestDeriveClampsDoubledRates(t *testing.T) {
	base := baseConfig()
	base.MutationRate = 0.8
	base.EliteFraction = 0.4
	configs := DeriveIslandConfigs(base, 5)

	assert.Equal(t, 1.0, configs[0].MutationRate, "doubled mutation clamps to 1")
	assert.Equal(t, 0.5, configs[4].EliteFraction, "doubled elitism caps at half")
}

func TestDeriveSingleIsland(t *testing.T) {
	configs := DeriveIslandConfigs(baseConfig(), 1)
	require.Len(t, configs, 1)
	// A lone island sits at position 0 and explores.
	assert.Equal(t, baseConfig().MutationRate*2, configs[0].MutationRate)
	assert.Equal(t, 100, configs[0].PopulationSize)
}
