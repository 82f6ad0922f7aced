package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hibernatus-hacker/bardo-sub001/internal/config"
	"github.com/hibernatus-hacker/bardo-sub001/internal/genome"
	"github.com/hibernatus-hacker/bardo-sub001/internal/storage"
	"github.com/hibernatus-hacker/bardo-sub001/pkg/bardo"
)

const defaultDBPath = "bardo.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "experiments":
		return runExperiments(ctx, args[1:])
	case "status":
		return runStatus(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	configPath := fs.String("config", "", "YAML experiment file (optional)")
	islands := fs.Int("islands", 0, "override island count")
	nodes := fs.Int("nodes", 0, "number of simulated nodes (0 = local only)")
	generations := fs.Int("generations", 0, "override generations")
	population := fs.Int("population", 0, "override base population size")
	seed := fs.Int64("seed", 0, "random seed (0 = time-based)")
	tick := fs.Duration("tick", 500*time.Millisecond, "coordinator tick interval")
	verbose := fs.Bool("verbose", false, "structured logs to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	exp := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		exp = loaded
	}
	if *islands > 0 {
		exp.IslandCount = *islands
	}
	if *generations > 0 {
		exp.Generations = *generations
	}
	if *population > 0 {
		exp.PopulationSize = *population
	}
	if *seed != 0 {
		exp.Seed = *seed
	}
	if *nodes > 0 {
		exp.Nodes = exp.Nodes[:0]
		for i := 0; i < *nodes; i++ {
			exp.Nodes = append(exp.Nodes, fmt.Sprintf("node-%d", i))
		}
	}

	logger, err := buildLogger(*verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := bardo.New(bardo.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		Nodes:        exp.Nodes,
		Logger:       logger,
		TickInterval: *tick,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	experimentID, err := client.Start(ctx, exp.StartRequest())
	if err != nil {
		return err
	}
	fmt.Printf("experiment %s started: islands=%d generations=%d population=%d\n",
		experimentID, exp.IslandCount, exp.Generations, exp.PopulationSize)

	// Ctrl-C requests a cooperative stop; islands exit at the next
	// generation boundary.
	waitCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := client.Wait(waitCtx, experimentID); err != nil {
		fmt.Println("interrupt received; stopping experiment")
		if stopErr := client.Stop(ctx, experimentID); stopErr != nil {
			return stopErr
		}
		if waitErr := client.Wait(ctx, experimentID); waitErr != nil {
			return waitErr
		}
	}

	report, err := client.Status(ctx, experimentID)
	if err != nil {
		return err
	}
	fmt.Printf("experiment %s finished: status=%s generation=%d\n",
		experimentID, report.Status, report.Generation)

	g, fitness, err := client.BestGenotype(ctx, experimentID, &genome.MapFactory{})
	if err != nil {
		fmt.Println("no best individual recorded")
		return nil
	}
	fmt.Printf("best fitness: %.4f\n", fitness[0])
	fmt.Printf("best genotype: %s\n", genome.Describe(g))
	return nil
}

func runExperiments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("experiments", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()

	experiments, err := store.ListExperiments(ctx)
	if err != nil {
		return err
	}
	if len(experiments) == 0 {
		fmt.Println("no experiments recorded")
		return nil
	}
	for _, exp := range experiments {
		fmt.Printf("%s  status=%s islands=%d generation=%d started=%s\n",
			exp.ExperimentID, exp.Status, exp.IslandCount, exp.Generation,
			exp.StartTime.Format(time.RFC3339))
	}
	return nil
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	experimentID := fs.String("experiment", "", "experiment id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *experimentID == "" {
		return usageError("status requires -experiment")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()

	state, ok, err := store.GetExperiment(ctx, *experimentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("experiment not found: %s", *experimentID)
	}
	fmt.Printf("experiment %s: status=%s generation=%d migration-interval=%d migration-rate=%.2f\n",
		state.ExperimentID, state.Status, state.Generation, state.MigrationInterval, state.MigrationRate)

	islands, err := store.ListIslands(ctx, *experimentID)
	if err != nil {
		return err
	}
	for _, islandState := range islands {
		best := "-"
		if islandState.Best != nil && len(islandState.Best.Fitness) > 0 {
			best = fmt.Sprintf("%.4f", islandState.Best.Fitness[0])
		}
		fmt.Printf("  %s  node=%s status=%s generation=%d best=%s\n",
			islandState.IslandID, islandState.AssignedNode, islandState.Status,
			islandState.Generation, best)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	experimentID := fs.String("experiment", "", "experiment id")
	islandID := fs.String("island", "", "island id")
	limit := fs.Int("limit", 0, "show only the last N generations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *experimentID == "" || *islandID == "" {
		return usageError("fitness requires -experiment and -island")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()

	history, ok, err := store.GetFitnessHistory(ctx, *experimentID, *islandID)
	if err != nil {
		return err
	}
	if !ok || len(history) == 0 {
		fmt.Println("no fitness history recorded")
		return nil
	}
	start := 0
	if *limit > 0 && len(history) > *limit {
		start = len(history) - *limit
	}
	for i := start; i < len(history); i++ {
		fmt.Printf("generation %d: %.4f\n", i+1, history[i])
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	experimentID := fs.String("experiment", "", "experiment id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *experimentID == "" {
		return usageError("best requires -experiment")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()

	islands, err := store.ListIslands(ctx, *experimentID)
	if err != nil {
		return err
	}
	factory := &genome.MapFactory{}
	found := false
	bestFitness := 0.0
	var bestIsland string
	var bestGenotype genome.Genotype
	for _, islandState := range islands {
		if islandState.Best == nil || len(islandState.Best.Fitness) == 0 {
			continue
		}
		fitness := islandState.Best.Fitness[0]
		if found && fitness <= bestFitness {
			continue
		}
		g, err := factory.Decode(islandState.Best.Genotype)
		if err != nil {
			continue
		}
		found = true
		bestFitness = fitness
		bestIsland = islandState.IslandID
		bestGenotype = g
	}
	if !found {
		return fmt.Errorf("no best individual recorded for experiment %s", *experimentID)
	}
	fmt.Printf("best fitness: %.4f (from %s)\n", bestFitness, bestIsland)
	fmt.Printf("best genotype: %s\n", genome.Describe(bestGenotype))
	return nil
}

func openStore(ctx context.Context, kind, dbPath string) (storage.Store, error) {
	store, err := storage.NewStore(kind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func usageError(msg string) error {
	return fmt.Errorf(`%s

usage: bardoctl <command> [flags]

commands:
  run          start an experiment and wait for it to finish
  experiments  list recorded experiments
  status       show one experiment and its islands
  fitness      print an island's best-fitness-per-generation history
  best         print the best individual across all islands

run 'bardoctl <command> -h' for flags`, msg)
}
