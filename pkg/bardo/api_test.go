package bardo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
	"github.com/hibernatus-hacker/bardo-sub001/internal/island"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

func newTestClient(t *testing.T, nodes ...string) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind:    "memory",
		Nodes:        nodes,
		TickInterval: 10 * time.Millisecond,
		WorkerOptions: island.WorkerOptions{
			EvalWorkers:     2,
			EvalTimeout:     time.Second,
			GenerationDelay: time.Millisecond,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func demoRequest() StartRequest {
	req := StartRequest{
		IslandCount:       2,
		MigrationInterval: 2,
		MigrationRate:     0.1,
	}
	req.Base.PopulationSize = 20
	req.Base.Generations = 5
	req.Base.MutationRate = 0.3
	req.Base.CrossoverRate = 0.7
	req.Base.TournamentSize = 3
	req.Base.EliteFraction = 0.1
	req.Base.Seed = 42
	return req
}

func TestClientRunsExperimentEndToEnd(t *testing.T) {
	client := newTestClient(t, "node-0", "node-1")
	ctx := context.Background()

	req := demoRequest()
	req.Nodes = append(req.Nodes, "node-0", "node-1")
	id, err := client.Start(ctx, req)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	require.NoError(t, client.Wait(waitCtx, id))

	report, err := client.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ExperimentComplete, report.Status)

	g, fitness, err := client.BestGenotype(ctx, id, &genome.MapFactory{})
	require.NoError(t, err)
	require.NotEmpty(t, fitness)
	if _, ok := genome.GeneSum(g); !ok {
		t.Fatal("best genotype did not decode to a map genome")
	}

	experiments, err := client.Experiments(ctx)
	require.NoError(t, err)
	require.Len(t, experiments, 1)

	islands, err := client.Islands(ctx, id)
	require.NoError(t, err)
	require.Len(t, islands, 2)

	history, err := client.FitnessHistory(ctx, id, islands[0].IslandID)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestClientDefaultsToLocalNode(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	req := demoRequest()
	req.IslandCount = 1
	id, err := client.Start(ctx, req)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	require.NoError(t, client.Wait(waitCtx, id))

	report, err := client.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ExperimentComplete, report.Status)
	require.Len(t, report.Islands, 1)
	assert.Equal(t, "local", report.Islands[0].Node)
}

func TestClientRunsAreReproducible(t *testing.T) {
	runOnce := func() []float64 {
		client := newTestClient(t)
		ctx := context.Background()

		// One island, no migration: inter-island delivery timing is the
		// only nondeterministic input, so excluding it makes the full
		// trajectory a pure function of the seed.
		req := demoRequest()
		req.IslandCount = 1
		req.MigrationInterval = 0
		id, err := client.Start(ctx, req)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		require.NoError(t, client.Wait(waitCtx, id))

		islands, err := client.Islands(ctx, id)
		require.NoError(t, err)

		var combined []float64
		for _, islandState := range islands {
			history, err := client.FitnessHistory(ctx, id, islandState.IslandID)
			require.NoError(t, err)
			combined = append(combined, history...)
		}
		return combined
	}

	assert.Equal(t, runOnce(), runOnce(),
		"a fixed seed must reproduce every island's fitness trajectory")
}
