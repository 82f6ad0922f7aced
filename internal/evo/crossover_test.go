package evo

import (
	"math/rand"
	"testing"

	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
)

func mapGenome(genes map[genome.GeneID]float64) genome.Genotype {
	return genome.MapGenome{
		Nodes: []string{"n0", "n1", "n2"},
		Genes: genes,
	}
}

func TestCrossoverSharedGeneTakesEitherParentValue(t *testing.T) {
	factory := genome.MapFactory{}
	parentA := mapGenome(map[genome.GeneID]float64{"n0>n1": 1.0})
	parentB := mapGenome(map[genome.GeneID]float64{"n0>n1": 2.0})
	c := UnionCrossover{Factory: factory}

	sawA, sawB := false, false
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		child, err := c.Apply(rng, parentA, parentB)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		value, ok := factory.GetGene(child, "n0>n1")
		if !ok {
			t.Fatal("shared gene must survive crossover")
		}
		switch value {
		case 1.0:
			sawA = true
		case 2.0:
			sawB = true
		default:
			t.Fatalf("shared gene took value %f from neither parent", value)
		}
	}
	if !sawA || !sawB {
		t.Fatalf("both parent values should appear over 50 children (a=%t b=%t)", sawA, sawB)
	}
}

func TestCrossoverDisjointGenesAreCoinFlips(t *testing.T) {
	factory := genome.MapFactory{}
	parentA := mapGenome(map[genome.GeneID]float64{"n0>n1": 1.0})
	parentB := mapGenome(map[genome.GeneID]float64{"n1>n2": 2.0})
	c := UnionCrossover{Factory: factory}

	keptA, keptB := 0, 0
	rng := rand.New(rand.NewSource(2))
	const children = 200
	for i := 0; i < children; i++ {
		child, err := c.Apply(rng, parentA, parentB)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if _, ok := factory.GetGene(child, "n0>n1"); ok {
			keptA++
		}
		if _, ok := factory.GetGene(child, "n1>n2"); ok {
			keptB++
		}
	}
	for name, kept := range map[string]int{"parent-a gene": keptA, "parent-b gene": keptB} {
		if kept < children/4 || kept > 3*children/4 {
			t.Fatalf("%s kept in %d of %d children, want roughly half", name, kept, children)
		}
	}
}

func TestCrossoverIsDeterministicForSeed(t *testing.T) {
	factory := genome.MapFactory{}
	parentA := factory.Random(rand.New(rand.NewSource(10)))
	parentB := factory.Random(rand.New(rand.NewSource(20)))
	c := UnionCrossover{Factory: factory}

	childA, err := c.Apply(rand.New(rand.NewSource(5)), parentA, parentB)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	childB, err := c.Apply(rand.New(rand.NewSource(5)), parentA, parentB)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	idsA := factory.GeneIDs(childA)
	idsB := factory.GeneIDs(childB)
	if len(idsA) != len(idsB) {
		t.Fatalf("children differ in size under identical seeds: %d vs %d", len(idsA), len(idsB))
	}
	for i, id := range idsA {
		if idsB[i] != id {
			t.Fatalf("gene ids diverge at %d: %s vs %s", i, id, idsB[i])
		}
		valueA, _ := factory.GetGene(childA, id)
		valueB, _ := factory.GetGene(childB, id)
		if valueA != valueB {
			t.Fatalf("gene %s diverges: %f vs %f", id, valueA, valueB)
		}
	}
}

func TestCrossoverLeavesParentsUntouched(t *testing.T) {
	factory := genome.MapFactory{}
	parentA := mapGenome(map[genome.GeneID]float64{"n0>n1": 1.0})
	parentB := mapGenome(map[genome.GeneID]float64{"n1>n2": 2.0})
	c := UnionCrossover{Factory: factory}

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		if _, err := c.Apply(rng, parentA, parentB); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	if value, ok := factory.GetGene(parentA, "n0>n1"); !ok || value != 1.0 {
		t.Fatalf("parent A mutated: value=%f ok=%t", value, ok)
	}
	if value, ok := factory.GetGene(parentB, "n1>n2"); !ok || value != 2.0 {
		t.Fatalf("parent B mutated: value=%f ok=%t", value, ok)
	}
}
