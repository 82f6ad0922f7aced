package platform

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/hibernatus-hacker/bardo-sub001/internal/cluster"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

// HealthMonitor relocates islands away from unreachable nodes. The
// coordinator invokes it whenever a tick's ping fails; relocation is
// best-effort and may lose progress within the generation that was
// executing when the node died.
type HealthMonitor struct {
	channel cluster.Channel
	logger  *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewHealthMonitor(channel cluster.Channel, logger *zap.Logger, seed int64) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthMonitor{
		channel: channel,
		logger:  logger,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Relocate re-creates an island on a randomly chosen reachable node,
// excluding the failed one, resuming the population from the state store
// when recoverable. On success the assignment in state is updated in
// place. Returns ErrNoAvailableNode when every other node is down.
func (m *HealthMonitor) Relocate(ctx context.Context, state *model.CoordinatorState, islandID string, failed cluster.NodeRef) (cluster.NodeRef, error) {
	ref, ok := state.Islands[islandID]
	if !ok {
		return "", fmt.Errorf("relocate: unknown island %s", islandID)
	}

	candidates := make([]cluster.NodeRef, 0, len(state.Nodes))
	for _, name := range state.Nodes {
		node := cluster.NodeRef(name)
		if node == failed {
			continue
		}
		if err := m.channel.Ping(ctx, node); err != nil {
			continue
		}
		candidates = append(candidates, node)
	}
	if len(candidates) == 0 {
		// Other nodes are all down, but the failed node itself may have
		// come back; restarting in place beats staying dead.
		if err := m.channel.Ping(ctx, failed); err == nil {
			candidates = append(candidates, failed)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoAvailableNode
	}

	m.mu.Lock()
	replacement := candidates[m.rng.Intn(len(candidates))]
	m.mu.Unlock()

	_, err := m.channel.Invoke(ctx, replacement, cluster.FnStartIsland, cluster.StartIslandArgs{
		ExperimentID:      state.ExperimentID,
		Config:            ref.Config,
		MigrationInterval: state.MigrationInterval,
		MigrationRate:     state.MigrationRate,
		Resume:            true,
	})
	if err != nil {
		return "", fmt.Errorf("relocate island %s to %s: %w", islandID, replacement, err)
	}

	ref.AssignedNode = string(replacement)
	state.Islands[islandID] = ref

	m.logger.Info("island relocated",
		zap.String("experiment", state.ExperimentID),
		zap.String("island", islandID),
		zap.String("from", string(failed)),
		zap.String("to", string(replacement)))
	return replacement, nil
}
