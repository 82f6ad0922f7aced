package cluster

import "github.com/hibernatus-hacker/bardo-sub001/internal/model"

// Function names exported by every island-hosting node. The coordinator,
// the health monitor, and the migration protocol speak only this surface
// plus the state store.
const (
	FnStartIsland     = "island.start"
	FnStopIsland      = "island.stop"
	FnIslandState     = "island.state"
	FnDeliverMigrants = "island.deliver"
)

type StartIslandArgs struct {
	ExperimentID      string
	Config            model.IslandConfig
	MigrationInterval int
	MigrationRate     float64
	// Resume restores the population from the last persisted island
	// state when recoverable; otherwise the island starts fresh.
	Resume bool
}

type StopIslandArgs struct {
	ExperimentID string
	IslandID     string
}

type IslandStateArgs struct {
	ExperimentID string
	IslandID     string
}

type DeliverMigrantsArgs struct {
	ExperimentID string
	IslandID     string
	Migrants     []model.Individual
}

type DeliverMigrantsReply struct {
	Replaced int
}
