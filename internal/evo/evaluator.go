package evo

import (
	"context"
	"math"
	"sort"

	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
)

// Individual is the in-memory form of one candidate: a decoded genotype
// plus its fitness vector. A nil fitness vector means not yet evaluated.
type Individual struct {
	Genotype genome.Genotype
	Fitness  []float64
}

// Primary returns the primary ranking objective. Unevaluated and failed
// individuals rank below every real score.
func (ind Individual) Primary() float64 {
	if len(ind.Fitness) == 0 {
		return math.Inf(-1)
	}
	return ind.Fitness[0]
}

// WorstFitness is the sentinel assigned on evaluation error or timeout.
func WorstFitness() []float64 {
	return []float64{math.Inf(-1)}
}

// Evaluator turns a genotype into a fitness vector. It must be safe for
// concurrent use and should honor ctx cancellation; evaluations can take
// seconds.
type Evaluator interface {
	Evaluate(ctx context.Context, g genome.Genotype) ([]float64, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, g genome.Genotype) ([]float64, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, g genome.Genotype) ([]float64, error) {
	return f(ctx, g)
}

// RankDescending stable-sorts a population by primary fitness, best
// first. Ties keep their prior relative order.
func RankDescending(population []Individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Primary() > population[j].Primary()
	})
}
