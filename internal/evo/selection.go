package evo

import (
	"fmt"
	"math/rand"
)

// TournamentSelector draws Size individuals uniformly at random from the
// full population and keeps the fittest.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, population []Individual) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return Individual{}, fmt.Errorf("population is empty")
	}

	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > len(population) {
		size = len(population)
	}

	best := population[rng.Intn(len(population))]
	for i := 1; i < size; i++ {
		candidate := population[rng.Intn(len(population))]
		if candidate.Primary() > best.Primary() {
			best = candidate
		}
	}
	return best, nil
}
