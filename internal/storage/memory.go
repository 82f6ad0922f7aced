package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

type islandKey struct {
	experimentID string
	islandID     string
}

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	experiments map[string]model.CoordinatorState
	islands     map[islandKey]model.IslandState
	history     map[islandKey][]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.experiments = make(map[string]model.CoordinatorState)
	s.islands = make(map[islandKey]model.IslandState)
	s.history = make(map[islandKey][]float64)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.Init(ctx)
}

func (s *MemoryStore) SaveExperiment(_ context.Context, state model.CoordinatorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.experiments[state.ExperimentID] = state
	return nil
}

func (s *MemoryStore) GetExperiment(_ context.Context, id string) (model.CoordinatorState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.experiments[id]
	return state, ok, nil
}

func (s *MemoryStore) ListExperiments(_ context.Context) ([]model.CoordinatorState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CoordinatorState, 0, len(s.experiments))
	for _, state := range s.experiments {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExperimentID < out[j].ExperimentID })
	return out, nil
}

func (s *MemoryStore) SaveIsland(_ context.Context, state model.IslandState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.islands[islandKey{state.ExperimentID, state.IslandID}] = state
	return nil
}

func (s *MemoryStore) GetIsland(_ context.Context, experimentID, islandID string) (model.IslandState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.islands[islandKey{experimentID, islandID}]
	return state, ok, nil
}

func (s *MemoryStore) ListIslands(_ context.Context, experimentID string) ([]model.IslandState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.IslandState, 0)
	for key, state := range s.islands {
		if key.experimentID == experimentID {
			out = append(out, state)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IslandID < out[j].IslandID })
	return out, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, experimentID, islandID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[islandKey{experimentID, islandID}] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, experimentID, islandID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[islandKey{experimentID, islandID}]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}
