package storage

import (
	"errors"
	"testing"

	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	state := model.IslandState{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 99, CodecVersion: 1},
		ExperimentID:    "exp-1",
		IslandID:        "island-0",
	}
	data, err := EncodeIsland(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeIsland(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestExperimentRoundTrip(t *testing.T) {
	state := model.CoordinatorState{
		VersionedRecord:   Stamp(),
		ExperimentID:      "exp-1",
		Nodes:             []string{"node-0", "node-1"},
		IslandCount:       2,
		MigrationInterval: 5,
		MigrationRate:     0.1,
		Status:            model.ExperimentRunning,
		Islands: map[string]model.IslandRef{
			"island-0": {AssignedNode: "node-0"},
		},
	}
	data, err := EncodeExperiment(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeExperiment(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ExperimentID != "exp-1" || got.IslandCount != 2 {
		t.Fatalf("roundtrip lost fields: %+v", got)
	}
	if got.Islands["island-0"].AssignedNode != "node-0" {
		t.Fatalf("island assignment lost: %+v", got.Islands)
	}
}
