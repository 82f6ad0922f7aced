package storage

import (
	"encoding/json"
	"errors"

	"github.com/hibernatus-hacker/bardo-sub001/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeExperiment(state model.CoordinatorState) ([]byte, error) {
	return json.Marshal(state)
}

func DecodeExperiment(data []byte) (model.CoordinatorState, error) {
	var state model.CoordinatorState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.CoordinatorState{}, err
	}
	if err := checkVersion(state.VersionedRecord); err != nil {
		return model.CoordinatorState{}, err
	}
	return state, nil
}

func EncodeIsland(state model.IslandState) ([]byte, error) {
	return json.Marshal(state)
}

func DecodeIsland(data []byte) (model.IslandState, error) {
	var state model.IslandState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.IslandState{}, err
	}
	if err := checkVersion(state.VersionedRecord); err != nil {
		return model.IslandState{}, err
	}
	return state, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(record model.VersionedRecord) error {
	if record.SchemaVersion != CurrentSchemaVersion || record.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// Stamp sets the current schema and codec versions on a record.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}
