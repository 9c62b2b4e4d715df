// Package runstore persists per-round, per-agent telemetry (pose,
// virtual center, centroid, command, potential) to SQLite so runs can
// be inspected offline. The kernel itself never reads it back during
// a run.
package runstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/coverage.control/internal/swarm"
)

// Store wraps the run database.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the run database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id        TEXT PRIMARY KEY,
			mode          TEXT,
			agent_count   BIGINT,
			rounds        BIGINT,
			started_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id        TEXT,
			round         BIGINT,
			agent_id      BIGINT,
			x             DOUBLE,
			y             DOUBLE,
			theta         DOUBLE,
			center_x      DOUBLE,
			center_y      DOUBLE,
			centroid_x    DOUBLE,
			centroid_y    DOUBLE,
			omega         DOUBLE,
			potential     DOUBLE,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE INDEX IF NOT EXISTS idx_samples_run_round
			ON samples(run_id, round);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db}, nil
}

// BeginRun registers a new run and returns its id.
func (s *Store) BeginRun(mode string, agentCount, rounds int) (string, error) {
	runID := uuid.NewString()
	_, err := s.Exec(
		`INSERT INTO runs (run_id, mode, agent_count, rounds, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, mode, agentCount, rounds, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to register run: %w", err)
	}
	return runID, nil
}

// RecordRound writes one round's samples in a single transaction.
func (s *Store) RecordRound(runID string, samples []swarm.RoundSample) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO samples
			(run_id, round, agent_id, x, y, theta,
			 center_x, center_y, centroid_x, centroid_y, omega, potential)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, smp := range samples {
		_, err := stmt.Exec(
			runID, smp.Round, smp.AgentID,
			smp.Pose.X, smp.Pose.Y, smp.Pose.Theta,
			smp.VirtualCenter.X, smp.VirtualCenter.Y,
			smp.Centroid.X, smp.Centroid.Y,
			smp.AngularVelocity, smp.Potential,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record sample round=%d agent=%d: %w",
				smp.Round, smp.AgentID, err)
		}
	}
	return tx.Commit()
}

// SampleCount returns the number of samples stored for a run.
func (s *Store) SampleCount(runID string) (int, error) {
	var n int
	err := s.QueryRow(`SELECT COUNT(*) FROM samples WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// AgentTrack returns one agent's samples for a run in round order.
func (s *Store) AgentTrack(runID string, agentID int) ([]swarm.RoundSample, error) {
	rows, err := s.Query(`
		SELECT round, agent_id, x, y, theta,
		       center_x, center_y, centroid_x, centroid_y, omega, potential
		FROM samples WHERE run_id = ? AND agent_id = ?
		ORDER BY round`, runID, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var track []swarm.RoundSample
	for rows.Next() {
		var smp swarm.RoundSample
		err := rows.Scan(
			&smp.Round, &smp.AgentID,
			&smp.Pose.X, &smp.Pose.Y, &smp.Pose.Theta,
			&smp.VirtualCenter.X, &smp.VirtualCenter.Y,
			&smp.Centroid.X, &smp.Centroid.Y,
			&smp.AngularVelocity, &smp.Potential,
		)
		if err != nil {
			return nil, err
		}
		track = append(track, smp)
	}
	return track, rows.Err()
}
