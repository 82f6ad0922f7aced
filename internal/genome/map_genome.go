package genome

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// MapGenome is the default genotype: a set of named nodes and a sparse
// map of weighted genes keyed by directed node pair. It is the shipped
// implementation of the Factory contract; callers with their own
// encoding substitute their own Factory.
type MapGenome struct {
	Nodes []string           `json:"nodes"`
	Genes map[GeneID]float64 `json:"genes"`
}

// MapFactory builds and edits MapGenome values.
type MapFactory struct {
	// NodeCount is the number of nodes in a fresh random genotype.
	NodeCount int
	// PerturbStdDev is the sigma of the Gaussian weight noise.
	PerturbStdDev float64
}

const (
	defaultNodeCount     = 6
	defaultPerturbStdDev = 0.1
)

func (f MapFactory) nodeCount() int {
	if f.NodeCount > 0 {
		return f.NodeCount
	}
	return defaultNodeCount
}

func (f MapFactory) stdDev() float64 {
	if f.PerturbStdDev > 0 {
		return f.PerturbStdDev
	}
	return defaultPerturbStdDev
}

func geneID(from, to string) GeneID {
	return GeneID(from + ">" + to)
}

func (f MapFactory) Random(rng *rand.Rand) Genotype {
	count := f.nodeCount()
	nodes := make([]string, count)
	for i := range nodes {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	genes := make(map[GeneID]float64, count-1)
	for i := 0; i < count-1; i++ {
		genes[geneID(nodes[i], nodes[i+1])] = rng.Float64()*2 - 1
	}
	return MapGenome{Nodes: nodes, Genes: genes}
}

// GeneIDs returns the gene ids in lexical order so that callers drawing
// random numbers per gene stay deterministic under a fixed seed.
func (f MapFactory) GeneIDs(g Genotype) []GeneID {
	mg, ok := g.(MapGenome)
	if !ok {
		return nil
	}
	ids := make([]GeneID, 0, len(mg.Genes))
	for id := range mg.Genes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f MapFactory) GetGene(g Genotype, id GeneID) (float64, bool) {
	mg, ok := g.(MapGenome)
	if !ok {
		return 0, false
	}
	value, ok := mg.Genes[id]
	return value, ok
}

func (f MapFactory) WithGene(g Genotype, id GeneID, value float64) Genotype {
	mg, ok := g.(MapGenome)
	if !ok {
		return g
	}
	next := cloneMapGenome(mg)
	next.Genes[id] = value
	return next
}

func (f MapFactory) RemoveGene(g Genotype, id GeneID) Genotype {
	mg, ok := g.(MapGenome)
	if !ok {
		return g
	}
	next := cloneMapGenome(mg)
	delete(next.Genes, id)
	return next
}

func (f MapFactory) Perturb(g Genotype, rng *rand.Rand) Genotype {
	mg, ok := g.(MapGenome)
	if !ok {
		return g
	}
	next := cloneMapGenome(mg)
	for _, id := range f.GeneIDs(mg) {
		next.Genes[id] += rng.NormFloat64() * f.stdDev()
	}
	return next
}

func (f MapFactory) AddRandomGene(g Genotype, rng *rand.Rand) Genotype {
	mg, ok := g.(MapGenome)
	if !ok || len(mg.Nodes) < 2 {
		return g
	}
	next := cloneMapGenome(mg)
	from := mg.Nodes[rng.Intn(len(mg.Nodes))]
	to := mg.Nodes[rng.Intn(len(mg.Nodes))]
	next.Genes[geneID(from, to)] = rng.Float64()*2 - 1
	return next
}

func (f MapFactory) Encode(g Genotype) ([]byte, error) {
	mg, ok := g.(MapGenome)
	if !ok {
		return nil, fmt.Errorf("encode genotype: expected MapGenome, got %T", g)
	}
	return json.Marshal(mg)
}

func (f MapFactory) Decode(data []byte) (Genotype, error) {
	var mg MapGenome
	if err := json.Unmarshal(data, &mg); err != nil {
		return nil, fmt.Errorf("decode genotype: %w", err)
	}
	if mg.Genes == nil {
		mg.Genes = make(map[GeneID]float64)
	}
	return mg, nil
}

func cloneMapGenome(mg MapGenome) MapGenome {
	genes := make(map[GeneID]float64, len(mg.Genes))
	for id, value := range mg.Genes {
		genes[id] = value
	}
	return MapGenome{
		Nodes: append([]string(nil), mg.Nodes...),
		Genes: genes,
	}
}

// GeneSum returns the sum of all gene values; the bardoctl demo and the
// package tests use it as a fitness objective. Summation runs in sorted
// gene-id order: float addition is not associative, so map iteration
// order would leak into the fitness of identically-seeded runs.
func GeneSum(g Genotype) (float64, bool) {
	mg, ok := g.(MapGenome)
	if !ok {
		return 0, false
	}
	ids := make([]GeneID, 0, len(mg.Genes))
	for id := range mg.Genes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := 0.0
	for _, id := range ids {
		total += mg.Genes[id]
	}
	return total, true
}

// Describe renders a short human-readable summary for CLI output.
func Describe(g Genotype) string {
	mg, ok := g.(MapGenome)
	if !ok {
		return fmt.Sprintf("%T", g)
	}
	return fmt.Sprintf("nodes=%d genes=%d [%s]", len(mg.Nodes), len(mg.Genes), strings.Join(mg.Nodes, ","))
}
