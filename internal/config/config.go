// Package config loads experiment definitions from YAML files for the
// command-line tool. Programmatic callers build platform requests
// directly and skip this package.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hibernatus-hacker/bardo-sub001/internal/cluster"
	"github.com/hibernatus-hacker/bardo-sub001/internal/platform"
)

// Experiment is the on-disk shape of an experiment definition.
type Experiment struct {
	ExperimentID string   `yaml:"experiment_id"`
	Nodes        []string `yaml:"nodes"`

	IslandCount       int     `yaml:"island_count"`
	MigrationInterval int     `yaml:"migration_interval"`
	MigrationRate     float64 `yaml:"migration_rate"`

	PopulationSize int     `yaml:"population_size"`
	Generations    int     `yaml:"generations"`
	MutationRate   float64 `yaml:"mutation_rate"`
	CrossoverRate  float64 `yaml:"crossover_rate"`
	TournamentSize int     `yaml:"tournament_size"`
	EliteFraction  float64 `yaml:"elite_fraction"`
	Seed           int64   `yaml:"seed"`
}

// Defaults mirrors the zero-config single-island experiment the CLI
// runs when no file is given.
func Defaults() Experiment {
	return Experiment{
		IslandCount:       2,
		MigrationInterval: 5,
		MigrationRate:     0.1,
		PopulationSize:    20,
		Generations:       25,
		MutationRate:      0.3,
		CrossoverRate:     0.7,
		TournamentSize:    3,
		EliteFraction:     0.1,
	}
}

// Load reads and decodes a YAML experiment file. Unknown keys are
// rejected so typos fail loudly instead of silently falling back to
// defaults.
func Load(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, fmt.Errorf("read experiment config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Experiment, error) {
	exp := Defaults()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&exp); err != nil {
		return Experiment{}, fmt.Errorf("decode experiment config: %w", err)
	}
	return exp, nil
}

// StartRequest converts the file form into a coordinator request.
// Validation of the values happens in the coordinator.
func (e Experiment) StartRequest() platform.StartRequest {
	nodes := make([]cluster.NodeRef, 0, len(e.Nodes))
	for _, node := range e.Nodes {
		nodes = append(nodes, cluster.NodeRef(node))
	}
	return platform.StartRequest{
		ExperimentID:      e.ExperimentID,
		Nodes:             nodes,
		IslandCount:       e.IslandCount,
		MigrationInterval: e.MigrationInterval,
		MigrationRate:     e.MigrationRate,
		Base: platform.BaseConfig{
			PopulationSize: e.PopulationSize,
			Generations:    e.Generations,
			MutationRate:   e.MutationRate,
			CrossoverRate:  e.CrossoverRate,
			TournamentSize: e.TournamentSize,
			EliteFraction:  e.EliteFraction,
			Seed:           e.Seed,
		},
	}
}
