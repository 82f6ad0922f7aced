package genome

import "math/rand"

// Genotype is an opaque candidate-solution encoding. The trainer never
// inspects it directly; all reads and edits go through a Factory.
type Genotype any

// GeneID identifies one gene within a genotype. Genotypes are
// variable-structure, so two parents may carry different gene sets.
type GeneID string

// Factory is the caller-supplied contract for producing and editing
// genotypes. With/Remove operations must not mutate their input; the
// trainer relies on value semantics when building offspring.
//
// Encode/Decode delegate genotype serialization to the factory so the
// trainer can persist populations without knowing the encoding.
type Factory interface {
	Random(rng *rand.Rand) Genotype
	GeneIDs(g Genotype) []GeneID
	GetGene(g Genotype, id GeneID) (float64, bool)
	WithGene(g Genotype, id GeneID, value float64) Genotype
	RemoveGene(g Genotype, id GeneID) Genotype

	// Perturb applies independent Gaussian noise to every gene value.
	Perturb(g Genotype, rng *rand.Rand) Genotype
	// AddRandomGene inserts one new gene between two existing node ids
	// with a value drawn uniformly from [-1, 1].
	AddRandomGene(g Genotype, rng *rand.Rand) Genotype

	Encode(g Genotype) ([]byte, error)
	Decode(data []byte) (Genotype, error)
}
