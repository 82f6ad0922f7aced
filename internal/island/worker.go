package island

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/hibernatus-hacker/bardo-sub001/internal/cluster"
	"github.com/hibernatus-hacker/bardo-sub001/internal/evo"
	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
	"github.com/hibernatus-hacker/bardo-sub001/internal/storage"
)

const (
	defaultEvalWorkers     = 4
	defaultEvalTimeout     = 60 * time.Second
	defaultGenerationDelay = 100 * time.Millisecond
)

// WorkerOptions are node-local runtime knobs, not part of the island
// config the coordinator derives.
type WorkerOptions struct {
	EvalWorkers     int
	EvalTimeout     time.Duration
	GenerationDelay time.Duration
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.EvalWorkers <= 0 {
		o.EvalWorkers = defaultEvalWorkers
	}
	if o.EvalTimeout <= 0 {
		o.EvalTimeout = defaultEvalTimeout
	}
	if o.GenerationDelay <= 0 {
		o.GenerationDelay = defaultGenerationDelay
	}
	return o
}

type WorkerConfig struct {
	ExperimentID      string
	Config            model.IslandConfig
	Node              cluster.NodeRef
	MigrationInterval int
	MigrationRate     float64
	Resume            bool

	Store     storage.Store
	Channel   cluster.Channel
	Evaluator evo.Evaluator
	Factory   genome.Factory
	Logger    *zap.Logger
	Options   WorkerOptions
}

// Worker runs the generational evolutionary loop for one island on one
// node. It is the single writer of its island state; only inbound
// migration deliveries touch the population from outside, and those go
// through InjectMigrants under the same lock.
type Worker struct {
	cfg WorkerConfig

	selector  evo.TournamentSelector
	crossover evo.UnionCrossover
	operators []evo.Operator
	rng       *rand.Rand
	logger    *zap.Logger

	mu            sync.Mutex
	initialized   bool
	population    []evo.Individual
	best          *evo.Individual
	generation    int
	lastMigration int
	status        model.IslandStatus
	lastErr       string
	history       []float64
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.ExperimentID == "" {
		return nil, fmt.Errorf("experiment id is required")
	}
	if cfg.Config.IslandID == "" {
		return nil, fmt.Errorf("island id is required")
	}
	if cfg.Config.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Config.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Channel == nil {
		return nil, fmt.Errorf("channel is required")
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
	cfg.Options = cfg.Options.withDefaults()

	return &Worker{
		cfg:       cfg,
		selector:  evo.TournamentSelector{Size: cfg.Config.TournamentSize},
		crossover: evo.UnionCrossover{Factory: cfg.Factory},
		operators: evo.DefaultOperators(cfg.Factory),
		rng:       rand.New(rand.NewSource(cfg.Config.Seed)),
		logger: cfg.Logger.With(
			zap.String("experiment", cfg.ExperimentID),
			zap.String("island", cfg.Config.IslandID),
			zap.String("node", string(cfg.Node)),
		),
		status: model.IslandInitializing,
	}, nil
}

// IslandID names island idx within an experiment.
func IslandID(idx int) string {
	return fmt.Sprintf("island-%d", idx)
}

// Run executes the generational loop until the island completes, is
// stopped, or fails. A returned error means the island is in the Error
// state; the node supervisor restarts the run after backoff and the loop
// resumes from the last persisted generation.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.initialize(ctx); err != nil {
		return w.fail(ctx, fmt.Errorf("initialize island: %w", err))
	}

	for {
		if ctx.Err() != nil {
			w.transition(model.IslandStopped)
			w.persistBestEffort()
			return nil
		}

		w.mu.Lock()
		status := w.status
		generation := w.generation
		population := append([]evo.Individual(nil), w.population...)
		w.mu.Unlock()

		if status == model.IslandStopping {
			w.transition(model.IslandStopped)
			w.persistBestEffort()
			w.logger.Info("island stopped")
			return nil
		}
		if status != model.IslandRunning {
			return nil
		}
		if generation >= w.cfg.Config.Generations {
			w.transition(model.IslandComplete)
			w.persistBestEffort()
			w.logger.Info("island complete", zap.Int("generation", generation))
			return nil
		}

		scored := w.evaluatePopulation(ctx, population)
		evo.RankDescending(scored)

		w.mu.Lock()
		if w.best == nil || scored[0].Primary() > w.best.Primary() {
			top := scored[0]
			w.best = &top
		}
		w.mu.Unlock()

		next, err := w.reproduce(scored)
		if err != nil {
			return w.fail(ctx, fmt.Errorf("reproduce generation %d: %w", generation, err))
		}

		w.mu.Lock()
		w.population = next
		w.generation = generation + 1
		w.history = append(w.history, w.best.Primary())
		migrate := w.cfg.MigrationInterval > 0 &&
			w.generation-w.lastMigration >= w.cfg.MigrationInterval
		if migrate {
			w.lastMigration = w.generation
		}
		w.mu.Unlock()

		if migrate {
			w.migrate(ctx, scored)
		}

		if err := w.persist(ctx); err != nil {
			return w.fail(ctx, fmt.Errorf("persist generation %d: %w", w.Generation(), err))
		}

		// Yield to the coordination loop between generations.
		timer := time.NewTimer(w.cfg.Options.GenerationDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Stop requests a cooperative stop; the worker observes it at the next
// generation boundary, so an in-flight evaluation finishes first.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.status {
	case model.IslandInitializing, model.IslandRunning, model.IslandError:
		w.status = model.IslandStopping
	}
}

func (w *Worker) Generation() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

func (w *Worker) Status() model.IslandStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Snapshot renders the worker's current state in its persisted form.
func (w *Worker) Snapshot() (model.IslandState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Worker) initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.initialized {
		// Restarted by the supervisor after an error; resume in place.
		w.startLocked()
		w.lastErr = ""
		return nil
	}

	if w.cfg.Resume {
		if ok, err := w.resumeLocked(ctx); err != nil {
			return err
		} else if ok {
			w.logger.Info("island resumed from store",
				zap.Int("generation", w.generation),
				zap.Int("population", len(w.population)),
			)
			w.initialized = true
			w.startLocked()
			return w.persistLocked(ctx)
		}
		w.logger.Warn("no recoverable island state; starting fresh population")
	}

	w.population = make([]evo.Individual, 0, w.cfg.Config.PopulationSize)
	for i := 0; i < w.cfg.Config.PopulationSize; i++ {
		w.population = append(w.population, evo.Individual{Genotype: w.cfg.Factory.Random(w.rng)})
	}
	w.generation = 0
	w.lastMigration = 0
	w.best = nil
	w.history = nil
	w.initialized = true
	w.startLocked()
	return w.persistLocked(ctx)
}

// startLocked moves the worker to Running unless a stop request arrived
// first; a Stopping set while the worker was still initializing (or
// waiting out a restart backoff) must survive to the run loop.
func (w *Worker) startLocked() {
	if w.status != model.IslandStopping {
		w.status = model.IslandRunning
	}
}

// resumeLocked restores population, generation, and best from the store.
// Returns false when nothing recoverable exists.
func (w *Worker) resumeLocked(ctx context.Context) (bool, error) {
	state, ok, err := w.cfg.Store.GetIsland(ctx, w.cfg.ExperimentID, w.cfg.Config.IslandID)
	if err != nil {
		return false, err
	}
	if !ok || len(state.Population) == 0 {
		return false, nil
	}

	population, err := DecodeIndividuals(w.cfg.Factory, state.Population)
	if err != nil {
		w.logger.Warn("persisted population undecodable", zap.Error(err))
		return false, nil
	}

	w.population = population
	w.generation = state.Generation
	w.lastMigration = state.LastMigration
	w.best = nil
	if state.Best != nil {
		if best, err := decodeIndividual(w.cfg.Factory, *state.Best); err == nil {
			w.best = &best
		}
	}
	if history, ok, err := w.cfg.Store.GetFitnessHistory(ctx, w.cfg.ExperimentID, w.cfg.Config.IslandID); err == nil && ok {
		w.history = history
	}
	return true, nil
}

// evaluatePopulation scores every individual with bounded concurrency.
// Evaluation never aborts a generation: a timeout or evaluator error
// assigns the sentinel worst fitness instead.
func (w *Worker) evaluatePopulation(ctx context.Context, population []evo.Individual) []evo.Individual {
	scored := make([]evo.Individual, len(population))

	p := pool.New().WithMaxGoroutines(w.cfg.Options.EvalWorkers)
	for i := range population {
		idx := i
		individual := population[i]
		p.Go(func() {
			fitness, err := w.evaluateOne(ctx, individual.Genotype)
			if err != nil {
				w.logger.Warn("evaluation failed; assigning worst fitness", zap.Error(err))
				fitness = evo.WorstFitness()
			}
			scored[idx] = evo.Individual{Genotype: individual.Genotype, Fitness: fitness}
		})
	}
	p.Wait()

	return scored
}

// evaluateOne enforces the per-individual timeout even against
// evaluators that ignore ctx; a late result is discarded.
func (w *Worker) evaluateOne(ctx context.Context, g genome.Genotype) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Options.EvalTimeout)
	defer cancel()

	type reply struct {
		fitness []float64
		err     error
	}
	done := make(chan reply, 1)
	go func() {
		fitness, err := w.cfg.Evaluator.Evaluate(ctx, g)
		done <- reply{fitness: fitness, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		if len(res.fitness) == 0 {
			return nil, errors.New("evaluator returned empty fitness vector")
		}
		return res.fitness, nil
	}
}

// reproduce builds the next generation: elites unchanged, the remainder
// from tournament parents with probabilistic crossover and mutation. The
// population size invariant holds by construction.
func (w *Worker) reproduce(ranked []evo.Individual) ([]evo.Individual, error) {
	size := w.cfg.Config.PopulationSize
	eliteCount := int(math.Round(float64(size) * w.cfg.Config.EliteFraction))
	if eliteCount < 1 {
		eliteCount = 1
	}
	if eliteCount > size {
		eliteCount = size
	}

	next := make([]evo.Individual, 0, size)
	next = append(next, ranked[:eliteCount]...)

	for len(next) < size {
		parentA, err := w.selector.PickParent(w.rng, ranked)
		if err != nil {
			return nil, err
		}
		parentB, err := w.selector.PickParent(w.rng, ranked)
		if err != nil {
			return nil, err
		}

		child := parentA.Genotype
		if w.rng.Float64() < w.cfg.Config.CrossoverRate {
			child, err = w.crossover.Apply(w.rng, parentA.Genotype, parentB.Genotype)
			if err != nil {
				return nil, err
			}
		}
		if w.rng.Float64() < w.cfg.Config.MutationRate {
			operator := w.operators[w.rng.Intn(len(w.operators))]
			mutated, err := operator.Apply(child, w.rng)
			if err != nil && !errors.Is(err, evo.ErrNoGenes) {
				return nil, err
			}
			if err == nil {
				child = mutated
			}
		}

		// Fitness resets to the unevaluated sentinel.
		next = append(next, evo.Individual{Genotype: child})
	}

	return next, nil
}

// InjectMigrants replaces the worst min(len(migrants), len(population))
// individuals with the delivered migrants. It is the only population
// write that does not come from the worker's own loop.
func (w *Worker) InjectMigrants(ctx context.Context, migrants []model.Individual) (int, error) {
	decoded, err := DecodeIndividuals(w.cfg.Factory, migrants)
	if err != nil {
		return 0, fmt.Errorf("decode migrants: %w", err)
	}

	w.mu.Lock()
	replaced := ReplaceWorst(w.population, decoded)
	state, serr := w.snapshotLocked()
	w.mu.Unlock()

	if serr != nil {
		return replaced, serr
	}
	if err := w.cfg.Store.SaveIsland(ctx, state); err != nil {
		return replaced, err
	}
	w.logger.Debug("migrants accepted", zap.Int("replaced", replaced))
	return replaced, nil
}

// migrate sends this island's top individuals to its ring neighbor.
// Delivery failures are logged and skipped; the next scheduled migration
// retries.
func (w *Worker) migrate(ctx context.Context, ranked []evo.Individual) {
	if w.cfg.Config.IslandCount <= 1 || w.cfg.MigrationRate <= 0 {
		return
	}

	migrants := SelectMigrants(ranked, w.cfg.MigrationRate)
	encoded, err := EncodeIndividuals(w.cfg.Factory, migrants)
	if err != nil {
		w.logger.Warn("migration skipped: encode migrants", zap.Error(err))
		return
	}

	targetID := IslandID((w.cfg.Config.Index + 1) % w.cfg.Config.IslandCount)
	target, ok, err := w.cfg.Store.GetIsland(ctx, w.cfg.ExperimentID, targetID)
	if err != nil || !ok {
		w.logger.Warn("migration skipped: target island state unavailable",
			zap.String("target", targetID), zap.Error(err))
		return
	}

	reply, err := w.cfg.Channel.Invoke(ctx, cluster.NodeRef(target.AssignedNode), cluster.FnDeliverMigrants, cluster.DeliverMigrantsArgs{
		ExperimentID: w.cfg.ExperimentID,
		IslandID:     targetID,
		Migrants:     encoded,
	})
	if err != nil {
		w.logger.Warn("migration delivery failed",
			zap.String("target", targetID),
			zap.String("target_node", target.AssignedNode),
			zap.Error(err))
		return
	}
	if out, ok := reply.(cluster.DeliverMigrantsReply); ok {
		w.logger.Debug("migration delivered",
			zap.String("target", targetID),
			zap.Int("sent", len(migrants)),
			zap.Int("replaced", out.Replaced))
	}
}

func (w *Worker) transition(status model.IslandStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}

func (w *Worker) fail(ctx context.Context, err error) error {
	w.mu.Lock()
	w.status = model.IslandError
	w.lastErr = err.Error()
	w.mu.Unlock()
	w.persistBestEffort()
	w.logger.Error("island error", zap.Error(err))
	return err
}

func (w *Worker) snapshotLocked() (model.IslandState, error) {
	population, err := EncodeIndividuals(w.cfg.Factory, w.population)
	if err != nil {
		return model.IslandState{}, fmt.Errorf("encode population: %w", err)
	}
	state := model.IslandState{
		VersionedRecord: storage.Stamp(),
		ExperimentID:    w.cfg.ExperimentID,
		IslandID:        w.cfg.Config.IslandID,
		AssignedNode:    string(w.cfg.Node),
		Generation:      w.generation,
		Population:      population,
		LastMigration:   w.lastMigration,
		Status:          w.status,
		LastError:       w.lastErr,
	}
	if w.best != nil {
		best, err := encodeIndividual(w.cfg.Factory, *w.best)
		if err != nil {
			return model.IslandState{}, fmt.Errorf("encode best individual: %w", err)
		}
		state.Best = &best
	}
	return state, nil
}

func (w *Worker) persistLocked(ctx context.Context) error {
	state, err := w.snapshotLocked()
	if err != nil {
		return err
	}
	if err := w.cfg.Store.SaveIsland(ctx, state); err != nil {
		return err
	}
	history := append([]float64(nil), w.history...)
	return w.cfg.Store.SaveFitnessHistory(ctx, w.cfg.ExperimentID, w.cfg.Config.IslandID, history)
}

func (w *Worker) persist(ctx context.Context) error {
	w.mu.Lock()
	state, err := w.snapshotLocked()
	history := append([]float64(nil), w.history...)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	if err := w.cfg.Store.SaveIsland(ctx, state); err != nil {
		return err
	}
	return w.cfg.Store.SaveFitnessHistory(ctx, w.cfg.ExperimentID, w.cfg.Config.IslandID, history)
}

func (w *Worker) persistBestEffort() {
	if err := w.persist(context.Background()); err != nil {
		w.logger.Warn("persist island state", zap.Error(err))
	}
}
