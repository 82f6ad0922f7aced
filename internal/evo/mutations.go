package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
)

// ErrNoGenes signals a mutation that needs at least one existing gene
// applied to an empty genotype. Callers treat it as a no-op.
var ErrNoGenes = errors.New("genotype has no genes")

// Operator applies one mutation to a genotype.
type Operator interface {
	Name() string
	Apply(g genome.Genotype, rng *rand.Rand) (genome.Genotype, error)
}

// PerturbWeights adds independent Gaussian noise to every gene value.
type PerturbWeights struct {
	Factory genome.Factory
}

func (PerturbWeights) Name() string {
	return "perturb_weights"
}

func (m PerturbWeights) Apply(g genome.Genotype, rng *rand.Rand) (genome.Genotype, error) {
	if m.Factory == nil {
		return nil, fmt.Errorf("genome factory is required")
	}
	return m.Factory.Perturb(g, rng), nil
}

// AddGene inserts one new random gene between two existing node ids.
type AddGene struct {
	Factory genome.Factory
}

func (AddGene) Name() string {
	return "add_gene"
}

func (m AddGene) Apply(g genome.Genotype, rng *rand.Rand) (genome.Genotype, error) {
	if m.Factory == nil {
		return nil, fmt.Errorf("genome factory is required")
	}
	return m.Factory.AddRandomGene(g, rng), nil
}

// DeleteGene removes one randomly chosen existing gene.
type DeleteGene struct {
	Factory genome.Factory
}

func (DeleteGene) Name() string {
	return "delete_gene"
}

func (m DeleteGene) Apply(g genome.Genotype, rng *rand.Rand) (genome.Genotype, error) {
	if m.Factory == nil {
		return nil, fmt.Errorf("genome factory is required")
	}
	ids := m.Factory.GeneIDs(g)
	if len(ids) == 0 {
		return g, ErrNoGenes
	}
	return m.Factory.RemoveGene(g, ids[rng.Intn(len(ids))]), nil
}

// DefaultOperators returns the mutation set an island draws from
// uniformly when reproducing.
func DefaultOperators(factory genome.Factory) []Operator {
	return []Operator{
		PerturbWeights{Factory: factory},
		AddGene{Factory: factory},
		DeleteGene{Factory: factory},
	}
}
