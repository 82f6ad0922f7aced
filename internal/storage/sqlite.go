//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/hibernatus-hacker/bardo-sub001/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveExperiment(ctx context.Context, state model.CoordinatorState) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeExperiment(state)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO experiments (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, state.ExperimentID, state.SchemaVersion, state.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetExperiment(ctx context.Context, id string) (model.CoordinatorState, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CoordinatorState{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM experiments WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CoordinatorState{}, false, nil
		}
		return model.CoordinatorState{}, false, err
	}

	state, err := DecodeExperiment(payload)
	if err != nil {
		return model.CoordinatorState{}, false, fmt.Errorf("decode experiment %s: %w", id, err)
	}
	return state, true, nil
}

func (s *SQLiteStore) ListExperiments(ctx context.Context) ([]model.CoordinatorState, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM experiments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CoordinatorState, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		state, err := DecodeExperiment(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveIsland(ctx context.Context, state model.IslandState) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeIsland(state)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO islands (experiment_id, island_id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(experiment_id, island_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, state.ExperimentID, state.IslandID, state.SchemaVersion, state.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetIsland(ctx context.Context, experimentID, islandID string) (model.IslandState, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.IslandState{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM islands WHERE experiment_id = ? AND island_id = ?
	`, experimentID, islandID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.IslandState{}, false, nil
		}
		return model.IslandState{}, false, err
	}

	state, err := DecodeIsland(payload)
	if err != nil {
		return model.IslandState{}, false, fmt.Errorf("decode island %s/%s: %w", experimentID, islandID, err)
	}
	return state, true, nil
}

func (s *SQLiteStore) ListIslands(ctx context.Context, experimentID string) ([]model.IslandState, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM islands WHERE experiment_id = ? ORDER BY island_id
	`, experimentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.IslandState, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		state, err := DecodeIsland(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveFitnessHistory(ctx context.Context, experimentID, islandID string, history []float64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO fitness_history (experiment_id, island_id, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(experiment_id, island_id) DO UPDATE SET
			payload = excluded.payload
	`, experimentID, islandID, payload)
	return err
}

func (s *SQLiteStore) GetFitnessHistory(ctx context.Context, experimentID, islandID string) ([]float64, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `
		SELECT payload FROM fitness_history WHERE experiment_id = ? AND island_id = ?
	`, experimentID, islandID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s/%s: %w", experimentID, islandID, err)
	}
	return history, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS experiments (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS islands (
			experiment_id TEXT NOT NULL,
			island_id TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (experiment_id, island_id)
		);
		CREATE TABLE IF NOT EXISTS fitness_history (
			experiment_id TEXT NOT NULL,
			island_id TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (experiment_id, island_id)
		);
	`)
	return err
}
