package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hibernatus-hacker/bardo-sub001/internal/cluster"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
	"github.com/hibernatus-hacker/bardo-sub001/internal/storage"
)

// LocalNode hosts the single fallback island when an experiment is
// started with an empty node list.
const LocalNode cluster.NodeRef = "local"

const defaultTickInterval = 5 * time.Second

type Config struct {
	Store        storage.Store
	Channel      cluster.Channel
	Logger       *zap.Logger
	TickInterval time.Duration
}

// Coordinator is the top-level orchestrator: it derives per-island
// configs, assigns islands to nodes, supervises their progress, and
// finalizes experiments. It is the single writer of CoordinatorState;
// Status reads are eventually-consistent snapshots from the store.
type Coordinator struct {
	store   storage.Store
	channel cluster.Channel
	health  *HealthMonitor
	logger  *zap.Logger
	tick    time.Duration

	mu          sync.Mutex
	experiments map[string]*experiment
}

type experiment struct {
	state model.CoordinatorState
	done  chan struct{}

	mu            sync.Mutex
	stopRequested bool

	cancel context.CancelFunc
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Channel == nil {
		return nil, errors.New("channel is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	return &Coordinator{
		store:       cfg.Store,
		channel:     cfg.Channel,
		health:      NewHealthMonitor(cfg.Channel, cfg.Logger, time.Now().UnixNano()),
		logger:      cfg.Logger,
		tick:        cfg.TickInterval,
		experiments: make(map[string]*experiment),
	}, nil
}

type StartRequest struct {
	ExperimentID      string
	Base              BaseConfig
	Nodes             []cluster.NodeRef
	IslandCount       int
	MigrationInterval int
	MigrationRate     float64
}

// Start partitions the population into islands, assigns them to nodes
// round-robin, and starts them all-or-nothing: if any island fails to
// spawn, every started island is stopped and the error is returned.
func (c *Coordinator) Start(ctx context.Context, req StartRequest) (string, error) {
	if err := req.Base.validate(); err != nil {
		return "", err
	}
	if req.IslandCount <= 0 {
		return "", fmt.Errorf("%w: island count must be > 0", ErrConfiguration)
	}
	if req.MigrationInterval < 0 {
		return "", fmt.Errorf("%w: migration interval must be >= 0", ErrConfiguration)
	}
	if req.MigrationRate < 0 || req.MigrationRate > 1 {
		return "", fmt.Errorf("%w: migration rate must be in [0, 1]", ErrConfiguration)
	}

	experimentID := req.ExperimentID
	if experimentID == "" {
		experimentID = uuid.NewString()
	}

	c.mu.Lock()
	if _, active := c.experiments[experimentID]; active {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: experiment already active: %s", ErrConfiguration, experimentID)
	}
	c.mu.Unlock()

	nodes := req.Nodes
	if len(nodes) == 0 {
		// Degraded mode: one local island, not an error.
		nodes = []cluster.NodeRef{LocalNode}
		c.logger.Warn("no nodes supplied; falling back to a single local island",
			zap.String("experiment", experimentID))
	}

	base := req.Base
	if base.Seed == 0 {
		base.Seed = time.Now().UnixNano()
	}
	configs := DeriveIslandConfigs(base, req.IslandCount)

	state := model.CoordinatorState{
		VersionedRecord:   storage.Stamp(),
		ExperimentID:      experimentID,
		Nodes:             nodeNames(nodes),
		IslandCount:       req.IslandCount,
		MigrationInterval: req.MigrationInterval,
		MigrationRate:     req.MigrationRate,
		Islands:           make(map[string]model.IslandRef, len(configs)),
		Status:            model.ExperimentInitializing,
		StartTime:         time.Now().UTC(),
	}
	for idx, islandCfg := range configs {
		node := nodes[idx%len(nodes)]
		state.Islands[islandCfg.IslandID] = model.IslandRef{
			Config:       islandCfg,
			AssignedNode: string(node),
		}
	}
	if err := c.store.SaveExperiment(ctx, state); err != nil {
		return "", fmt.Errorf("persist experiment %s: %w", experimentID, err)
	}

	started := make([]model.IslandConfig, 0, len(configs))
	for _, islandCfg := range configs {
		node := cluster.NodeRef(state.Islands[islandCfg.IslandID].AssignedNode)
		_, err := c.channel.Invoke(ctx, node, cluster.FnStartIsland, cluster.StartIslandArgs{
			ExperimentID:      experimentID,
			Config:            islandCfg,
			MigrationInterval: req.MigrationInterval,
			MigrationRate:     req.MigrationRate,
		})
		if err != nil {
			c.rollback(ctx, experimentID, state, started)
			return "", fmt.Errorf("%w: island %s on node %s: %v", ErrStartup, islandCfg.IslandID, node, err)
		}
		started = append(started, islandCfg)
	}

	state.Status = model.ExperimentRunning
	if err := c.store.SaveExperiment(ctx, state); err != nil {
		c.rollback(ctx, experimentID, state, started)
		return "", fmt.Errorf("persist experiment %s: %w", experimentID, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	exp := &experiment{
		state:  state,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	c.mu.Lock()
	c.experiments[experimentID] = exp
	c.mu.Unlock()

	c.logger.Info("experiment started",
		zap.String("experiment", experimentID),
		zap.Int("islands", req.IslandCount),
		zap.Int("nodes", len(nodes)))
	go c.loop(loopCtx, exp)
	return experimentID, nil
}

// rollback stops every successfully started island; startup is
// all-or-nothing.
func (c *Coordinator) rollback(ctx context.Context, experimentID string, state model.CoordinatorState, started []model.IslandConfig) {
	for _, islandCfg := range started {
		node := cluster.NodeRef(state.Islands[islandCfg.IslandID].AssignedNode)
		if _, err := c.channel.Invoke(ctx, node, cluster.FnStopIsland, cluster.StopIslandArgs{
			ExperimentID: experimentID,
			IslandID:     islandCfg.IslandID,
		}); err != nil {
			c.logger.Warn("rollback stop failed",
				zap.String("island", islandCfg.IslandID), zap.Error(err))
		}
	}
	state.Status = model.ExperimentStopped
	if err := c.store.SaveExperiment(ctx, state); err != nil {
		c.logger.Warn("persist rolled-back experiment", zap.Error(err))
	}
}

// Stop requests a cooperative stop; it does not block. Islands observe
// the stop at their next generation boundary.
func (c *Coordinator) Stop(ctx context.Context, experimentID string) error {
	c.mu.Lock()
	exp, active := c.experiments[experimentID]
	c.mu.Unlock()

	if active {
		exp.mu.Lock()
		exp.stopRequested = true
		exp.mu.Unlock()

		// Surface the pending stop to status readers. The coordination
		// loop moves the record to Stopped once the islands have wound
		// down; a tick racing this write re-persists Running at worst
		// once before that happens.
		state, ok, err := c.store.GetExperiment(ctx, experimentID)
		if err != nil {
			return err
		}
		if ok && (state.Status == model.ExperimentRunning || state.Status == model.ExperimentInitializing) {
			state.Status = model.ExperimentStopping
			return c.store.SaveExperiment(ctx, state)
		}
		return nil
	}

	// Not driven by this coordinator; flip the persisted record so a
	// later resume does not pick it up as running.
	state, ok, err := c.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrExperimentNotFound, experimentID)
	}
	if state.Status == model.ExperimentRunning || state.Status == model.ExperimentInitializing {
		state.Status = model.ExperimentStopped
		return c.store.SaveExperiment(ctx, state)
	}
	return nil
}

// Wait blocks until the experiment's coordination loop exits.
func (c *Coordinator) Wait(ctx context.Context, experimentID string) error {
	c.mu.Lock()
	exp, active := c.experiments[experimentID]
	c.mu.Unlock()
	if !active {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-exp.done:
		return nil
	}
}

// Close cancels every coordination loop without stopping islands; used
// on process shutdown.
func (c *Coordinator) Close() {
	c.mu.Lock()
	exps := make([]*experiment, 0, len(c.experiments))
	for _, exp := range c.experiments {
		exps = append(exps, exp)
	}
	c.mu.Unlock()

	for _, exp := range exps {
		exp.cancel()
		<-exp.done
	}
}

func (c *Coordinator) loop(ctx context.Context, exp *experiment) {
	defer close(exp.done)
	defer func() {
		c.mu.Lock()
		delete(c.experiments, exp.state.ExperimentID)
		c.mu.Unlock()
	}()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if c.tickOnce(ctx, exp) {
			return
		}
	}
}

// tickOnce runs one coordination pass; it returns true when the
// experiment reached a terminal state.
func (c *Coordinator) tickOnce(ctx context.Context, exp *experiment) bool {
	exp.mu.Lock()
	stopRequested := exp.stopRequested
	exp.mu.Unlock()

	state := &exp.state

	if stopRequested {
		c.stopIslands(ctx, state)
		state.Status = model.ExperimentStopped
		now := time.Now().UTC()
		state.EndTime = &now
		c.persist(ctx, state)
		c.logger.Info("experiment stopped", zap.String("experiment", state.ExperimentID))
		return true
	}

	// Only statuses reported by a live worker count toward finalization:
	// an unreachable island is a recovery problem, not a terminal state,
	// and relocation retries on every tick.
	statuses := make(map[string]model.IslandStatus, len(state.Islands))
	maxGeneration := state.Generation
	for _, islandID := range sortedIslandIDs(state) {
		ref := state.Islands[islandID]
		node := cluster.NodeRef(ref.AssignedNode)

		islandState, err := c.fetchIslandState(ctx, state.ExperimentID, islandID, node)
		if err != nil {
			c.recover(ctx, state, islandID, node, err)
			continue
		}
		if islandState.Generation > maxGeneration {
			maxGeneration = islandState.Generation
		}
		statuses[islandID] = islandState.Status
	}
	state.Generation = maxGeneration

	if allTerminal(statuses, state.IslandCount) {
		c.finalize(ctx, state)
		return true
	}

	c.persist(ctx, state)
	return false
}

func (c *Coordinator) fetchIslandState(ctx context.Context, experimentID, islandID string, node cluster.NodeRef) (model.IslandState, error) {
	if err := c.channel.Ping(ctx, node); err != nil {
		return model.IslandState{}, err
	}
	reply, err := c.channel.Invoke(ctx, node, cluster.FnIslandState, cluster.IslandStateArgs{
		ExperimentID: experimentID,
		IslandID:     islandID,
	})
	if err != nil {
		return model.IslandState{}, err
	}
	islandState, ok := reply.(model.IslandState)
	if !ok {
		return model.IslandState{}, fmt.Errorf("island state: unexpected reply type %T", reply)
	}
	return islandState, nil
}

// recover delegates a failed island fetch to the health monitor. A
// relocation failure affects this tick only; every subsequent tick
// retries, since reachability may change.
func (c *Coordinator) recover(ctx context.Context, state *model.CoordinatorState, islandID string, failed cluster.NodeRef, cause error) {
	c.logger.Warn("island unreachable",
		zap.String("experiment", state.ExperimentID),
		zap.String("island", islandID),
		zap.String("node", string(failed)),
		zap.Error(cause))

	if _, err := c.health.Relocate(ctx, state, islandID, failed); err != nil {
		if errors.Is(err, ErrNoAvailableNode) {
			c.logger.Warn("no replacement node this tick",
				zap.String("island", islandID))
		} else {
			c.logger.Error("relocation failed",
				zap.String("island", islandID), zap.Error(err))
		}
	}
}

func (c *Coordinator) stopIslands(ctx context.Context, state *model.CoordinatorState) {
	for _, islandID := range sortedIslandIDs(state) {
		node := cluster.NodeRef(state.Islands[islandID].AssignedNode)
		if _, err := c.channel.Invoke(ctx, node, cluster.FnStopIsland, cluster.StopIslandArgs{
			ExperimentID: state.ExperimentID,
			IslandID:     islandID,
		}); err != nil {
			c.logger.Warn("stop island failed",
				zap.String("island", islandID), zap.Error(err))
		}
	}
}

func (c *Coordinator) finalize(ctx context.Context, state *model.CoordinatorState) {
	if best, err := c.bestFromStore(ctx, state.ExperimentID); err == nil {
		state.Best = &best
	} else {
		c.logger.Warn("finalize without best individual",
			zap.String("experiment", state.ExperimentID), zap.Error(err))
	}
	state.Status = model.ExperimentComplete
	now := time.Now().UTC()
	state.EndTime = &now
	c.persist(ctx, state)
	c.logger.Info("experiment complete",
		zap.String("experiment", state.ExperimentID),
		zap.Int("generation", state.Generation))
}

func (c *Coordinator) persist(ctx context.Context, state *model.CoordinatorState) {
	if err := c.store.SaveExperiment(ctx, *state); err != nil {
		c.logger.Warn("persist coordinator state",
			zap.String("experiment", state.ExperimentID), zap.Error(err))
	}
}

// IslandReport is one island's row in a status report.
type IslandReport struct {
	IslandID    string
	Node        string
	Status      model.IslandStatus
	Generation  int
	BestFitness *float64
}

type StatusReport struct {
	ExperimentID string
	Status       model.ExperimentStatus
	IslandCount  int
	Generation   int
	Islands      []IslandReport
}

// Status reads the last successfully persisted view of an experiment.
// It stays serviceable during transient errors elsewhere in the cluster.
func (c *Coordinator) Status(ctx context.Context, experimentID string) (StatusReport, error) {
	state, ok, err := c.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return StatusReport{}, err
	}
	if !ok {
		return StatusReport{}, fmt.Errorf("%w: %s", ErrExperimentNotFound, experimentID)
	}

	islands, err := c.store.ListIslands(ctx, experimentID)
	if err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		ExperimentID: experimentID,
		Status:       state.Status,
		IslandCount:  state.IslandCount,
		Generation:   state.Generation,
		Islands:      make([]IslandReport, 0, len(islands)),
	}
	for _, islandState := range islands {
		row := IslandReport{
			IslandID:   islandState.IslandID,
			Node:       islandState.AssignedNode,
			Status:     islandState.Status,
			Generation: islandState.Generation,
		}
		if islandState.Best != nil && len(islandState.Best.Fitness) > 0 {
			fitness := islandState.Best.Fitness[0]
			row.BestFitness = &fitness
		}
		report.Islands = append(report.Islands, row)
	}
	return report, nil
}

// BestIndividual returns the highest-primary-fitness individual across
// all islands of an experiment.
func (c *Coordinator) BestIndividual(ctx context.Context, experimentID string) (model.Individual, error) {
	_, ok, err := c.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return model.Individual{}, err
	}
	if !ok {
		return model.Individual{}, fmt.Errorf("%w: %s", ErrExperimentNotFound, experimentID)
	}
	return c.bestFromStore(ctx, experimentID)
}

func (c *Coordinator) bestFromStore(ctx context.Context, experimentID string) (model.Individual, error) {
	islands, err := c.store.ListIslands(ctx, experimentID)
	if err != nil {
		return model.Individual{}, err
	}

	var best *model.Individual
	for _, islandState := range islands {
		candidate := islandState.Best
		if candidate == nil || len(candidate.Fitness) == 0 {
			continue
		}
		if best == nil || candidate.Fitness[0] > best.Fitness[0] {
			picked := *candidate
			best = &picked
		}
	}
	if best == nil {
		return model.Individual{}, fmt.Errorf("%w: experiment %s", ErrNoBestIndividual, experimentID)
	}
	return *best, nil
}

// allTerminal reports whether every island finished. Islands that could
// not be reached this tick have no entry in statuses, so the length
// check keeps the experiment open until every island reports in.
func allTerminal(statuses map[string]model.IslandStatus, islandCount int) bool {
	if len(statuses) < islandCount {
		return false
	}
	for _, status := range statuses {
		if status != model.IslandComplete && status != model.IslandError {
			return false
		}
	}
	return true
}

func sortedIslandIDs(state *model.CoordinatorState) []string {
	ids := make([]string, 0, len(state.Islands))
	for id := range state.Islands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func nodeNames(nodes []cluster.NodeRef) []string {
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, string(node))
	}
	return out
}
