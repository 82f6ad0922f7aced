package platform

import "errors"

var (
	// ErrConfiguration marks a start request rejected before any island
	// was spawned.
	ErrConfiguration = errors.New("invalid experiment configuration")

	// ErrStartup marks a failed island spawn; startup is all-or-nothing,
	// so every already-started island has been rolled back.
	ErrStartup = errors.New("island startup failed")

	ErrExperimentNotFound = errors.New("experiment not found")

	// ErrNoAvailableNode means a relocation found no reachable node this
	// tick; the island stays in Error and is retried next tick.
	ErrNoAvailableNode = errors.New("no reachable node available")

	// ErrNoBestIndividual means no island ever produced a successful
	// evaluation.
	ErrNoBestIndividual = errors.New("no best individual recorded")
)
