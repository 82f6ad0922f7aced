package model

import (
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Individual is the persisted form of a candidate solution. The genotype
// payload is opaque to the trainer; only the supplying genome factory can
// decode it. Fitness index 0 is the primary ranking objective.
type Individual struct {
	Genotype json.RawMessage `json:"genotype"`
	Fitness  []float64       `json:"fitness,omitempty"`
}

type IslandStatus string

const (
	IslandInitializing IslandStatus = "initializing"
	IslandRunning      IslandStatus = "running"
	IslandStopping     IslandStatus = "stopping"
	IslandStopped      IslandStatus = "stopped"
	IslandError        IslandStatus = "error"
	IslandComplete     IslandStatus = "complete"
)

type ExperimentStatus string

const (
	ExperimentInitializing ExperimentStatus = "initializing"
	ExperimentRunning      ExperimentStatus = "running"
	ExperimentStopping     ExperimentStatus = "stopping"
	ExperimentStopped      ExperimentStatus = "stopped"
	ExperimentComplete     ExperimentStatus = "complete"
)

// IslandConfig carries the per-island values derived from the experiment
// base config. Islands near position 0 explore, islands near position 1
// exploit.
type IslandConfig struct {
	IslandID       string  `json:"island_id"`
	Index          int     `json:"index"`
	IslandCount    int     `json:"island_count"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	MutationRate   float64 `json:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate"`
	TournamentSize int     `json:"tournament_size"`
	EliteFraction  float64 `json:"elite_fraction"`
	Seed           int64   `json:"seed"`
}

type IslandState struct {
	VersionedRecord
	ExperimentID  string       `json:"experiment_id"`
	IslandID      string       `json:"island_id"`
	AssignedNode  string       `json:"assigned_node"`
	Generation    int          `json:"generation"`
	Population    []Individual `json:"population"`
	Best          *Individual  `json:"best,omitempty"`
	LastMigration int          `json:"last_migration"`
	Status        IslandStatus `json:"status"`
	LastError     string       `json:"last_error,omitempty"`
}

type CoordinatorState struct {
	VersionedRecord
	ExperimentID      string               `json:"experiment_id"`
	Nodes             []string             `json:"nodes"`
	IslandCount       int                  `json:"island_count"`
	MigrationInterval int                  `json:"migration_interval"`
	MigrationRate     float64              `json:"migration_rate"`
	Generation        int                  `json:"generation"`
	Islands           map[string]IslandRef `json:"islands"`
	Status            ExperimentStatus     `json:"status"`
	Best              *Individual          `json:"best,omitempty"`
	StartTime         time.Time            `json:"start_time"`
	EndTime           *time.Time           `json:"end_time,omitempty"`
}

// IslandRef is the coordinator's view of one island: the config it was
// started with and its current node assignment. The full IslandState is
// owned by the island worker and persisted separately.
type IslandRef struct {
	Config       IslandConfig `json:"config"`
	AssignedNode string       `json:"assigned_node"`
}
