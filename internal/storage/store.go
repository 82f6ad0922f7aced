package storage

import (
	"context"

	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

// Store is the cluster-visible state store. Coordinator and island
// records written by one node must be readable from every other node;
// the in-memory backend satisfies that for single-process clusters and
// the sqlite backend for anything sharing a database file.
type Store interface {
	Init(ctx context.Context) error
	SaveExperiment(ctx context.Context, state model.CoordinatorState) error
	GetExperiment(ctx context.Context, id string) (model.CoordinatorState, bool, error)
	ListExperiments(ctx context.Context) ([]model.CoordinatorState, error)
	SaveIsland(ctx context.Context, state model.IslandState) error
	GetIsland(ctx context.Context, experimentID, islandID string) (model.IslandState, bool, error)
	ListIslands(ctx context.Context, experimentID string) ([]model.IslandState, error)
	SaveFitnessHistory(ctx context.Context, experimentID, islandID string, history []float64) error
	GetFitnessHistory(ctx context.Context, experimentID, islandID string) ([]float64, bool, error)
}

// Resetter is implemented by backends that can drop all state.
type Resetter interface {
	Reset(ctx context.Context) error
}
