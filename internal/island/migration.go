package island

import (
	"math"
	"sort"

	"github.com/hibernatus-hacker/bardo-sub001/internal/evo"
)

// SelectMigrants returns the max(1, floor(len*rate)) fittest individuals
// of a population. The input is not modified; ties keep their order.
func SelectMigrants(population []evo.Individual, rate float64) []evo.Individual {
	if len(population) == 0 {
		return nil
	}

	count := int(math.Floor(float64(len(population)) * rate))
	if count < 1 {
		count = 1
	}
	if count > len(population) {
		count = len(population)
	}

	ranked := append([]evo.Individual(nil), population...)
	evo.RankDescending(ranked)
	return ranked[:count]
}

// ReplaceWorst overwrites the min(len(migrants), len(population)) lowest
// ranked entries of population with the migrants, in place, and returns
// the replaced count.
func ReplaceWorst(population, migrants []evo.Individual) int {
	count := len(migrants)
	if count > len(population) {
		count = len(population)
	}
	if count == 0 {
		return 0
	}

	order := make([]int, len(population))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return population[order[i]].Primary() < population[order[j]].Primary()
	})

	for i := 0; i < count; i++ {
		population[order[i]] = migrants[i]
	}
	return count
}
