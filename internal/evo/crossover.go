package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
)

// UnionCrossover combines two variable-structure parents gene by gene:
// a gene present in both parents takes either parent's value with equal
// probability; a gene present in only one parent survives with
// probability 0.5. Gene ids are visited in lexical order so the child is
// deterministic under a fixed random source.
type UnionCrossover struct {
	Factory genome.Factory
}

func (UnionCrossover) Name() string {
	return "union_crossover"
}

func (c UnionCrossover) Apply(rng *rand.Rand, parentA, parentB genome.Genotype) (genome.Genotype, error) {
	if c.Factory == nil {
		return nil, fmt.Errorf("genome factory is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	inA := make(map[genome.GeneID]float64)
	for _, id := range c.Factory.GeneIDs(parentA) {
		if value, ok := c.Factory.GetGene(parentA, id); ok {
			inA[id] = value
		}
	}
	inB := make(map[genome.GeneID]float64)
	for _, id := range c.Factory.GeneIDs(parentB) {
		if value, ok := c.Factory.GetGene(parentB, id); ok {
			inB[id] = value
		}
	}

	union := make([]genome.GeneID, 0, len(inA)+len(inB))
	seen := make(map[genome.GeneID]struct{}, len(inA)+len(inB))
	for id := range inA {
		union = append(union, id)
		seen[id] = struct{}{}
	}
	for id := range inB {
		if _, ok := seen[id]; !ok {
			union = append(union, id)
		}
	}
	sort.Slice(union, func(i, j int) bool { return union[i] < union[j] })

	child := parentA
	for _, id := range union {
		_, okA := inA[id]
		valueB, okB := inB[id]
		switch {
		case okA && okB:
			if rng.Intn(2) == 1 {
				child = c.Factory.WithGene(child, id, valueB)
			}
		case okA:
			if rng.Float64() >= 0.5 {
				child = c.Factory.RemoveGene(child, id)
			}
		default:
			if rng.Float64() < 0.5 {
				child = c.Factory.WithGene(child, id, valueB)
			}
		}
	}
	return child, nil
}
