package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/corrdash/corrdash/internal/signal"
)

// ErrDriveNotFound indicates a lookup for an absent drive.
var ErrDriveNotFound = errors.New("db: drive not found")

// ErrDriveExists indicates an insert under a name already taken.
var ErrDriveExists = errors.New("db: drive name already exists")

// Drive is the stored metadata for one recorded drive log.
type Drive struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Source    string   `json:"source,omitempty"`
	SampleHz  float64  `json:"sample_hz"`
	Signals   []string `json:"signals"`
	Samples   int      `json:"samples"`
	CreatedAt string   `json:"created_at"`
}

// InsertDrive stores a drive log under a unique name and returns its
// generated ID. source records where the log came from (file name or
// URL) and may be empty.
func (db *DB) InsertDrive(name, source string, sampleHz float64, table *signal.Table) (string, error) {
	var exists int
	if err := db.QueryRow("SELECT COUNT(*) FROM drives WHERE name = ?", name).Scan(&exists); err != nil {
		return "", fmt.Errorf("db: checking drive name: %w", err)
	}
	if exists > 0 {
		return "", fmt.Errorf("%w: %q", ErrDriveExists, name)
	}

	signals, err := json.Marshal(table.Names())
	if err != nil {
		return "", fmt.Errorf("db: encoding signal names: %w", err)
	}

	id := uuid.NewString()
	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("db: begin insert drive: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO drives (id, name, source, sample_hz, signals) VALUES (?, ?, ?, ?, ?)",
		id, name, source, sampleHz, string(signals),
	); err != nil {
		return "", fmt.Errorf("db: inserting drive %q: %w", name, err)
	}

	stmt, err := tx.Prepare("INSERT INTO drive_samples (drive_id, signal, idx, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("db: preparing sample insert: %w", err)
	}
	defer stmt.Close()

	for _, col := range table.Names() {
		series, err := table.Column(col)
		if err != nil {
			return "", err
		}
		for i, v := range series {
			if _, err := stmt.Exec(id, col, i, v); err != nil {
				return "", fmt.Errorf("db: inserting sample %s[%d]: %w", col, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("db: committing drive %q: %w", name, err)
	}
	return id, nil
}

// ListDrives returns all stored drives, newest first.
func (db *DB) ListDrives() ([]Drive, error) {
	rows, err := db.Query(`
		SELECT d.id, d.name, d.source, d.sample_hz, d.signals, d.created_at,
		       (SELECT COUNT(DISTINCT idx) FROM drive_samples s WHERE s.drive_id = d.id)
		FROM drives d
		ORDER BY d.created_at DESC, d.name`)
	if err != nil {
		return nil, fmt.Errorf("db: listing drives: %w", err)
	}
	defer rows.Close()

	var drives []Drive
	for rows.Next() {
		d, err := scanDrive(rows)
		if err != nil {
			return nil, err
		}
		drives = append(drives, d)
	}
	return drives, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDrive(row rowScanner) (Drive, error) {
	var d Drive
	var signals string
	if err := row.Scan(&d.ID, &d.Name, &d.Source, &d.SampleHz, &signals, &d.CreatedAt, &d.Samples); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Drive{}, ErrDriveNotFound
		}
		return Drive{}, fmt.Errorf("db: scanning drive: %w", err)
	}
	if err := json.Unmarshal([]byte(signals), &d.Signals); err != nil {
		return Drive{}, fmt.Errorf("db: decoding signal names for %s: %w", d.ID, err)
	}
	return d, nil
}

const driveQuery = `
	SELECT d.id, d.name, d.source, d.sample_hz, d.signals, d.created_at,
	       (SELECT COUNT(DISTINCT idx) FROM drive_samples s WHERE s.drive_id = d.id)
	FROM drives d`

// GetDrive returns one drive by ID.
func (db *DB) GetDrive(id string) (Drive, error) {
	return scanDrive(db.QueryRow(driveQuery+" WHERE d.id = ?", id))
}

// GetDriveByName returns one drive by its unique name.
func (db *DB) GetDriveByName(name string) (Drive, error) {
	return scanDrive(db.QueryRow(driveQuery+" WHERE d.name = ?", name))
}

// DriveTable reloads a stored drive's signal table.
func (db *DB) DriveTable(id string) (*signal.Table, error) {
	d, err := db.GetDrive(id)
	if err != nil {
		return nil, err
	}

	table := signal.NewTable()
	for _, col := range d.Signals {
		rows, err := db.Query(
			"SELECT value FROM drive_samples WHERE drive_id = ? AND signal = ? ORDER BY idx",
			id, col,
		)
		if err != nil {
			return nil, fmt.Errorf("db: loading samples for %s.%s: %w", id, col, err)
		}
		var series signal.Series
		for rows.Next() {
			var v float64
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("db: scanning sample: %w", err)
			}
			series = append(series, v)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
		if err := table.AddColumn(col, series); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// DeleteDrive removes a drive and its samples.
func (db *DB) DeleteDrive(id string) error {
	res, err := db.Exec("DELETE FROM drives WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("db: deleting drive %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDriveNotFound, id)
	}
	return nil
}
