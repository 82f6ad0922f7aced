// Package bardo is the embedding surface for the distributed island
// evolution platform. A Client owns the store, the node channel, one
// island host per node, and the experiment coordinator; callers start
// experiments, watch their status, and pull out the best individual.
package bardo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hibernatus-hacker/bardo-sub001/internal/cluster"
	"github.com/hibernatus-hacker/bardo-sub001/internal/evo"
	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
	"github.com/hibernatus-hacker/bardo-sub001/internal/island"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
	"github.com/hibernatus-hacker/bardo-sub001/internal/platform"
	"github.com/hibernatus-hacker/bardo-sub001/internal/storage"
)

const defaultDBPath = "bardo.db"

type Options struct {
	StoreKind string
	DBPath    string

	// Nodes lists the simulated cluster members. Empty means a single
	// "local" node.
	Nodes []string

	// Evaluator scores genotypes; Factory builds and mutates them.
	// Both default to the built-in map genome with a gene-sum
	// objective, which is enough for demos and smoke runs.
	Evaluator evo.Evaluator
	Factory   genome.Factory

	Logger        *zap.Logger
	TickInterval  time.Duration
	WorkerOptions island.WorkerOptions
	RestartPolicy cluster.SupervisorPolicy
}

type Client struct {
	store       storage.Store
	channel     *cluster.LocalChannel
	coordinator *platform.Coordinator
	hosts       map[cluster.NodeRef]*island.Host
	logger      *zap.Logger
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := opts.Factory
	if factory == nil {
		factory = &genome.MapFactory{}
	}
	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = GeneSumEvaluator(factory)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	channel := cluster.NewLocalChannel()

	nodes := make([]cluster.NodeRef, 0, len(opts.Nodes)+1)
	for _, node := range opts.Nodes {
		nodes = append(nodes, cluster.NodeRef(node))
	}
	// The local node is always hosted so degraded-mode experiments
	// have somewhere to run.
	if !containsNode(nodes, platform.LocalNode) {
		nodes = append(nodes, platform.LocalNode)
	}

	hosts := make(map[cluster.NodeRef]*island.Host, len(nodes))
	for _, node := range nodes {
		channel.AddNode(node)
		host, err := island.NewHost(island.HostConfig{
			Node:      node,
			Channel:   channel,
			Registrar: channel,
			Store:     store,
			Evaluator: evaluator,
			Factory:   factory,
			Logger:    logger,
			Options:   opts.WorkerOptions,
			Restart:   opts.RestartPolicy,
		})
		if err != nil {
			return nil, fmt.Errorf("host node %s: %w", node, err)
		}
		hosts[node] = host
	}

	coordinator, err := platform.NewCoordinator(platform.Config{
		Store:        store,
		Channel:      channel,
		Logger:       logger,
		TickInterval: opts.TickInterval,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		store:       store,
		channel:     channel,
		coordinator: coordinator,
		hosts:       hosts,
		logger:      logger,
	}, nil
}

// GeneSumEvaluator scores a genotype by the sum of its gene values.
// It is the demo objective: evolution should drive every weight
// toward +1.
func GeneSumEvaluator(factory genome.Factory) evo.Evaluator {
	return evo.EvaluatorFunc(func(_ context.Context, g genome.Genotype) ([]float64, error) {
		sum, ok := genome.GeneSum(g)
		if !ok {
			return nil, fmt.Errorf("genotype is not a map genome")
		}
		return []float64{sum}, nil
	})
}

func (c *Client) Close() error {
	c.coordinator.Close()
	for _, host := range c.hosts {
		host.Shutdown()
	}
	return storage.CloseIfSupported(c.store)
}

type StartRequest = platform.StartRequest

// Start launches an experiment and returns its id. Startup is
// all-or-nothing across islands.
func (c *Client) Start(ctx context.Context, req StartRequest) (string, error) {
	return c.coordinator.Start(ctx, req)
}

// Stop requests a cooperative stop; islands exit at their next
// generation boundary.
func (c *Client) Stop(ctx context.Context, experimentID string) error {
	return c.coordinator.Stop(ctx, experimentID)
}

// Wait blocks until the experiment finishes, is stopped, or ctx ends.
func (c *Client) Wait(ctx context.Context, experimentID string) error {
	return c.coordinator.Wait(ctx, experimentID)
}

func (c *Client) Status(ctx context.Context, experimentID string) (platform.StatusReport, error) {
	return c.coordinator.Status(ctx, experimentID)
}

func (c *Client) BestIndividual(ctx context.Context, experimentID string) (model.Individual, error) {
	return c.coordinator.BestIndividual(ctx, experimentID)
}

// BestGenotype decodes the best individual back into the factory's
// genotype form.
func (c *Client) BestGenotype(ctx context.Context, experimentID string, factory genome.Factory) (genome.Genotype, []float64, error) {
	best, err := c.coordinator.BestIndividual(ctx, experimentID)
	if err != nil {
		return nil, nil, err
	}
	g, err := factory.Decode(best.Genotype)
	if err != nil {
		return nil, nil, fmt.Errorf("decode best genotype: %w", err)
	}
	return g, best.Fitness, nil
}

func (c *Client) Experiments(ctx context.Context) ([]model.CoordinatorState, error) {
	return c.store.ListExperiments(ctx)
}

func (c *Client) Islands(ctx context.Context, experimentID string) ([]model.IslandState, error) {
	return c.store.ListIslands(ctx, experimentID)
}

func (c *Client) FitnessHistory(ctx context.Context, experimentID, islandID string) ([]float64, error) {
	history, ok, err := c.store.GetFitnessHistory(ctx, experimentID, islandID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return history, nil
}

// SetNodeReachable flips a simulated node's reachability. Tests and
// failure drills use it to exercise relocation.
func (c *Client) SetNodeReachable(node string, reachable bool) {
	c.channel.SetReachable(cluster.NodeRef(node), reachable)
}

// CrashNode marks a node unreachable and kills its hosted workers,
// simulating a process crash rather than a network partition.
func (c *Client) CrashNode(node string) {
	ref := cluster.NodeRef(node)
	c.channel.SetReachable(ref, false)
	if host, ok := c.hosts[ref]; ok {
		host.Shutdown()
	}
}

func containsNode(nodes []cluster.NodeRef, want cluster.NodeRef) bool {
	for _, node := range nodes {
		if node == want {
			return true
		}
	}
	return false
}
