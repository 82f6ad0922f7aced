package island

import (
	"github.com/hibernatus-hacker/bardo-sub001/internal/evo"
	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

// EncodeIndividuals converts in-memory individuals to their persisted
// form, delegating genotype encoding to the factory.
func EncodeIndividuals(factory genome.Factory, individuals []evo.Individual) ([]model.Individual, error) {
	out := make([]model.Individual, 0, len(individuals))
	for _, individual := range individuals {
		encoded, err := encodeIndividual(factory, individual)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}

// DecodeIndividuals is the inverse of EncodeIndividuals.
func DecodeIndividuals(factory genome.Factory, individuals []model.Individual) ([]evo.Individual, error) {
	out := make([]evo.Individual, 0, len(individuals))
	for _, individual := range individuals {
		decoded, err := decodeIndividual(factory, individual)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

func encodeIndividual(factory genome.Factory, individual evo.Individual) (model.Individual, error) {
	payload, err := factory.Encode(individual.Genotype)
	if err != nil {
		return model.Individual{}, err
	}
	return model.Individual{
		Genotype: payload,
		Fitness:  append([]float64(nil), individual.Fitness...),
	}, nil
}

func decodeIndividual(factory genome.Factory, individual model.Individual) (evo.Individual, error) {
	genotype, err := factory.Decode(individual.Genotype)
	if err != nil {
		return evo.Individual{}, err
	}
	return evo.Individual{
		Genotype: genotype,
		Fitness:  append([]float64(nil), individual.Fitness...),
	}, nil
}
