package island

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hibernatus-hacker/bardo-sub001/internal/cluster"
	"github.com/hibernatus-hacker/bardo-sub001/internal/evo"
	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
	"github.com/hibernatus-hacker/bardo-sub001/internal/storage"
)

type HostConfig struct {
	Node      cluster.NodeRef
	Channel   cluster.Channel
	Registrar cluster.Registrar
	Store     storage.Store
	Evaluator evo.Evaluator
	Factory   genome.Factory
	Logger    *zap.Logger
	Options   WorkerOptions
	Restart   cluster.SupervisorPolicy
}

// Host runs the islands assigned to one node. It exports the island
// functions on the channel and supervises each worker as a node-local
// task, so a worker error restarts (and resumes) after backoff.
type Host struct {
	cfg    HostConfig
	super  *cluster.Supervisor
	logger *zap.Logger

	mu      sync.Mutex
	workers map[string]*Worker
}

func NewHost(cfg HostConfig) (*Host, error) {
	if cfg.Node == "" {
		return nil, fmt.Errorf("node ref is required")
	}
	if cfg.Channel == nil {
		return nil, fmt.Errorf("channel is required")
	}
	if cfg.Registrar == nil {
		return nil, fmt.Errorf("registrar is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("genome factory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	h := &Host{
		cfg:     cfg,
		super:   cluster.NewSupervisor(cfg.Restart),
		logger:  cfg.Logger.With(zap.String("node", string(cfg.Node))),
		workers: make(map[string]*Worker),
	}
	cfg.Registrar.Register(cfg.Node, cluster.FnStartIsland, h.handleStart)
	cfg.Registrar.Register(cfg.Node, cluster.FnStopIsland, h.handleStop)
	cfg.Registrar.Register(cfg.Node, cluster.FnIslandState, h.handleState)
	cfg.Registrar.Register(cfg.Node, cluster.FnDeliverMigrants, h.handleDeliver)
	return h, nil
}

func workerKey(experimentID, islandID string) string {
	return experimentID + "/" + islandID
}

func (h *Host) handleStart(_ context.Context, args any) (any, error) {
	start, ok := args.(cluster.StartIslandArgs)
	if !ok {
		return nil, fmt.Errorf("start island: unexpected args type %T", args)
	}

	worker, err := NewWorker(WorkerConfig{
		ExperimentID:      start.ExperimentID,
		Config:            start.Config,
		Node:              h.cfg.Node,
		MigrationInterval: start.MigrationInterval,
		MigrationRate:     start.MigrationRate,
		Resume:            start.Resume,
		Store:             h.cfg.Store,
		Channel:           h.cfg.Channel,
		Evaluator:         h.cfg.Evaluator,
		Factory:           h.cfg.Factory,
		Logger:            h.cfg.Logger,
		Options:           h.cfg.Options,
	})
	if err != nil {
		return nil, err
	}

	key := workerKey(start.ExperimentID, start.Config.IslandID)

	h.mu.Lock()
	if previous, exists := h.workers[key]; exists {
		previous.Stop()
		h.super.Stop(key)
	}
	h.workers[key] = worker
	h.mu.Unlock()

	if err := h.super.Start(key, worker.Run); err != nil {
		h.mu.Lock()
		delete(h.workers, key)
		h.mu.Unlock()
		return nil, err
	}
	h.logger.Info("island started",
		zap.String("experiment", start.ExperimentID),
		zap.String("island", start.Config.IslandID),
		zap.Bool("resume", start.Resume))
	return nil, nil
}

func (h *Host) handleStop(_ context.Context, args any) (any, error) {
	stop, ok := args.(cluster.StopIslandArgs)
	if !ok {
		return nil, fmt.Errorf("stop island: unexpected args type %T", args)
	}

	worker, err := h.worker(stop.ExperimentID, stop.IslandID)
	if err != nil {
		return nil, err
	}
	worker.Stop()
	return nil, nil
}

func (h *Host) handleState(_ context.Context, args any) (any, error) {
	req, ok := args.(cluster.IslandStateArgs)
	if !ok {
		return nil, fmt.Errorf("island state: unexpected args type %T", args)
	}

	worker, err := h.worker(req.ExperimentID, req.IslandID)
	if err != nil {
		return nil, err
	}
	return worker.Snapshot()
}

func (h *Host) handleDeliver(ctx context.Context, args any) (any, error) {
	req, ok := args.(cluster.DeliverMigrantsArgs)
	if !ok {
		return nil, fmt.Errorf("deliver migrants: unexpected args type %T", args)
	}

	worker, err := h.worker(req.ExperimentID, req.IslandID)
	if err != nil {
		return nil, err
	}
	replaced, err := worker.InjectMigrants(ctx, req.Migrants)
	if err != nil {
		return nil, err
	}
	return cluster.DeliverMigrantsReply{Replaced: replaced}, nil
}

func (h *Host) worker(experimentID, islandID string) (*Worker, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	worker, ok := h.workers[workerKey(experimentID, islandID)]
	if !ok {
		return nil, fmt.Errorf("island not hosted here: %s/%s", experimentID, islandID)
	}
	return worker, nil
}

// Workers lists the islands currently hosted on this node.
func (h *Host) Workers() []string {
	return h.super.Tasks()
}

// IslandStatus reports one hosted worker's status without a remote call;
// tests and the CLI use it.
func (h *Host) IslandStatus(experimentID, islandID string) (model.IslandStatus, error) {
	worker, err := h.worker(experimentID, islandID)
	if err != nil {
		return "", err
	}
	return worker.Status(), nil
}

// Shutdown cancels every hosted worker immediately. Simulated node
// crashes in tests use it after marking the node unreachable.
func (h *Host) Shutdown() {
	h.super.StopAll()
	h.mu.Lock()
	h.workers = make(map[string]*Worker)
	h.mu.Unlock()
}
