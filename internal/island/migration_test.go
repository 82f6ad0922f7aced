package island

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibernatus-hacker/bardo-sub001/internal/evo"
)

func scored(fitness ...float64) []evo.Individual {
	out := make([]evo.Individual, 0, len(fitness))
	for _, f := range fitness {
		out = append(out, evo.Individual{Fitness: []float64{f}})
	}
	return out
}

func TestSelectMigrantsCount(t *testing.T) {
	pop := scored(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0)

	// floor(10 * 0.25) = 2
	assert.Len(t, SelectMigrants(pop, 0.25), 2)
	// floor(10 * 0.05) = 0, but at least one migrant always moves
	assert.Len(t, SelectMigrants(pop, 0.05), 1)
	// rate 1.0 takes everyone
	assert.Len(t, SelectMigrants(pop, 1.0), 10)
	assert.Nil(t, SelectMigrants(nil, 0.5))
}

func TestSelectMigrantsTakesFittest(t *testing.T) {
	pop := scored(0.3, 0.9, 0.1, 0.7)
	migrants := SelectMigrants(pop, 0.5)
	require.Len(t, migrants, 2)
	assert.Equal(t, 0.9, migrants[0].Primary())
	assert.Equal(t, 0.7, migrants[1].Primary())

	// The source population keeps its order.
	assert.Equal(t, 0.3, pop[0].Primary())
	assert.Equal(t, 0.9, pop[1].Primary())
}

func TestReplaceWorstOverwritesLowestRanked(t *testing.T) {
	pop := scored(0.5, 0.1, 0.9, 0.2)
	migrants := scored(2.0, 3.0)

	replaced := ReplaceWorst(pop, migrants)
	assert.Equal(t, 2, replaced)

	// The two weakest slots (0.1 and 0.2) took the migrants; the rest
	// stayed in place.
	assert.Equal(t, 0.5, pop[0].Primary())
	assert.Equal(t, 2.0, pop[1].Primary())
	assert.Equal(t, 0.9, pop[2].Primary())
	assert.Equal(t, 3.0, pop[3].Primary())
}

func TestReplaceWorstCapsAtPopulationSize(t *testing.T) {
	pop := scored(0.1, 0.2)
	migrants := scored(1.0, 2.0, 3.0)

	replaced := ReplaceWorst(pop, migrants)
	assert.Equal(t, 2, replaced)
	assert.Equal(t, 1.0, pop[0].Primary())
	assert.Equal(t, 2.0, pop[1].Primary())
}

func TestReplaceWorstPrefersUnevaluated(t *testing.T) {
	pop := []evo.Individual{
		{Fitness: []float64{0.4}},
		{}, // unevaluated ranks below everything
		{Fitness: []float64{0.6}},
	}
	replaced := ReplaceWorst(pop, scored(1.0))
	assert.Equal(t, 1, replaced)
	assert.Equal(t, 1.0, pop[1].Primary())
}
