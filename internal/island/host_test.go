package island

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibernatus-hacker/bardo-sub001/internal/cluster"
	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

func newTestHost(t *testing.T, channel *cluster.LocalChannel, node cluster.NodeRef) *Host {
	t.Helper()
	channel.AddNode(node)
	host, err := NewHost(HostConfig{
		Node:      node,
		Channel:   channel,
		Registrar: channel,
		Store:     newTestStore(t),
		Evaluator: geneSumEvaluator(),
		Factory:   genome.MapFactory{},
		Options: WorkerOptions{
			EvalWorkers:     2,
			EvalTimeout:     time.Second,
			GenerationDelay: time.Millisecond,
		},
		Restart: cluster.SupervisorPolicy{
			InitialBackoff: 5 * time.Millisecond,
			MaxBackoff:     20 * time.Millisecond,
			BackoffFactor:  2.0,
		},
	})
	require.NoError(t, err)
	return host
}

func startArgs() cluster.StartIslandArgs {
	return cluster.StartIslandArgs{
		ExperimentID: "exp-1",
		Config: model.IslandConfig{
			IslandID:       IslandID(0),
			Index:          0,
			IslandCount:    1,
			PopulationSize: 6,
			Generations:    3,
			MutationRate:   0.3,
			CrossoverRate:  0.7,
			TournamentSize: 3,
			EliteFraction:  0.2,
			Seed:           7,
		},
	}
}

func TestHostRunsIslandOverChannel(t *testing.T) {
	channel := cluster.NewLocalChannel()
	host := newTestHost(t, channel, "node-0")
	defer host.Shutdown()
	ctx := context.Background()

	_, err := channel.Invoke(ctx, "node-0", cluster.FnStartIsland, startArgs())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		reply, err := channel.Invoke(ctx, "node-0", cluster.FnIslandState, cluster.IslandStateArgs{
			ExperimentID: "exp-1",
			IslandID:     IslandID(0),
		})
		if err != nil {
			return false
		}
		state, ok := reply.(model.IslandState)
		return ok && state.Status == model.IslandComplete
	}, 10*time.Second, 5*time.Millisecond)

	status, err := host.IslandStatus("exp-1", IslandID(0))
	require.NoError(t, err)
	assert.Equal(t, model.IslandComplete, status)
}

func TestHostStartIsIdempotent(t *testing.T) {
	channel := cluster.NewLocalChannel()
	host := newTestHost(t, channel, "node-0")
	defer host.Shutdown()
	ctx := context.Background()

	args := startArgs()
	args.Config.Generations = 10_000

	_, err := channel.Invoke(ctx, "node-0", cluster.FnStartIsland, args)
	require.NoError(t, err)
	// A second start replaces the running worker instead of failing;
	// relocation relies on this after a node comes back.
	_, err = channel.Invoke(ctx, "node-0", cluster.FnStartIsland, args)
	require.NoError(t, err)
	assert.Len(t, host.Workers(), 1)
}

func TestHostStopIsCooperative(t *testing.T) {
	channel := cluster.NewLocalChannel()
	host := newTestHost(t, channel, "node-0")
	defer host.Shutdown()
	ctx := context.Background()

	args := startArgs()
	args.Config.Generations = 10_000
	_, err := channel.Invoke(ctx, "node-0", cluster.FnStartIsland, args)
	require.NoError(t, err)

	_, err = channel.Invoke(ctx, "node-0", cluster.FnStopIsland, cluster.StopIslandArgs{
		ExperimentID: "exp-1",
		IslandID:     IslandID(0),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := host.IslandStatus("exp-1", IslandID(0))
		return err == nil && status == model.IslandStopped
	}, 10*time.Second, 5*time.Millisecond)
}

func TestHostRejectsUnknownIsland(t *testing.T) {
	channel := cluster.NewLocalChannel()
	host := newTestHost(t, channel, "node-0")
	defer host.Shutdown()

	_, err := channel.Invoke(context.Background(), "node-0", cluster.FnIslandState, cluster.IslandStateArgs{
		ExperimentID: "exp-1",
		IslandID:     "island-99",
	})
	require.Error(t, err)

	_, err = channel.Invoke(context.Background(), "node-0", cluster.FnDeliverMigrants, cluster.DeliverMigrantsArgs{
		ExperimentID: "exp-1",
		IslandID:     "island-99",
	})
	require.Error(t, err)
}
