package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/corrdash/corrdash/internal/drivepath"
)

// ErrRunNotFound indicates a lookup for an absent similarity run.
var ErrRunNotFound = errors.New("db: similarity run not found")

// SimilarityRun is one stored similarity-matrix computation.
type SimilarityRun struct {
	ID        string                      `json:"id"`
	Matrix    *drivepath.SimilarityMatrix `json:"matrix"`
	CreatedAt string                      `json:"created_at"`
}

// SaveSimilarityRun stores a computed matrix and returns its run ID.
func (db *DB) SaveSimilarityRun(m *drivepath.SimilarityMatrix) (string, error) {
	names, err := json.Marshal(m.Names)
	if err != nil {
		return "", fmt.Errorf("db: encoding run names: %w", err)
	}
	values, err := json.Marshal(m.Values)
	if err != nil {
		return "", fmt.Errorf("db: encoding run matrix: %w", err)
	}

	id := uuid.NewString()
	if _, err := db.Exec(
		"INSERT INTO similarity_runs (id, names, matrix) VALUES (?, ?, ?)",
		id, string(names), string(values),
	); err != nil {
		return "", fmt.Errorf("db: inserting similarity run: %w", err)
	}
	return id, nil
}

// GetSimilarityRun returns one stored run by ID.
func (db *DB) GetSimilarityRun(id string) (SimilarityRun, error) {
	var run SimilarityRun
	var names, values string
	err := db.QueryRow(
		"SELECT id, names, matrix, created_at FROM similarity_runs WHERE id = ?", id,
	).Scan(&run.ID, &names, &values, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SimilarityRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return SimilarityRun{}, fmt.Errorf("db: loading similarity run: %w", err)
	}

	run.Matrix = &drivepath.SimilarityMatrix{}
	if err := json.Unmarshal([]byte(names), &run.Matrix.Names); err != nil {
		return SimilarityRun{}, fmt.Errorf("db: decoding run names: %w", err)
	}
	if err := json.Unmarshal([]byte(values), &run.Matrix.Values); err != nil {
		return SimilarityRun{}, fmt.Errorf("db: decoding run matrix: %w", err)
	}
	return run, nil
}

// ListSimilarityRuns returns stored runs, newest first, up to limit
// (unlimited when limit <= 0).
func (db *DB) ListSimilarityRuns(limit int) ([]SimilarityRun, error) {
	q := "SELECT id, names, matrix, created_at FROM similarity_runs ORDER BY created_at DESC, id"
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("db: listing similarity runs: %w", err)
	}
	defer rows.Close()

	var runs []SimilarityRun
	for rows.Next() {
		var run SimilarityRun
		var names, values string
		if err := rows.Scan(&run.ID, &names, &values, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scanning similarity run: %w", err)
		}
		run.Matrix = &drivepath.SimilarityMatrix{}
		if err := json.Unmarshal([]byte(names), &run.Matrix.Names); err != nil {
			return nil, fmt.Errorf("db: decoding run names: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &run.Matrix.Values); err != nil {
			return nil, fmt.Errorf("db: decoding run matrix: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
