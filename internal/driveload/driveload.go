// Package driveload reads recorded drive logs into signal tables. Logs
// are CSV files with a header row naming each channel and one numeric
// row per sample; they may come from local files or HTTP URLs.
package driveload

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"

	"github.com/corrdash/corrdash/internal/httputil"
	"github.com/corrdash/corrdash/internal/signal"
)

// Loader errors.
var (
	// ErrEmptyLog indicates a log with no header or no sample rows.
	ErrEmptyLog = errors.New("driveload: log has no samples")

	// ErrBadCell indicates a cell that does not parse as a finite
	// number. NaN and infinity are rejected here so they cannot reach
	// the path and similarity engines.
	ErrBadCell = errors.New("driveload: non-numeric cell")

	// ErrFetchFailed indicates a remote log fetch that did not return
	// 200 OK.
	ErrFetchFailed = errors.New("driveload: fetch failed")
)

// Parse reads a CSV drive log into a table. The first row is the
// header; every following row must have one finite numeric cell per
// column. Ragged rows are rejected by the CSV layer.
func Parse(r io.Reader) (*signal.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyLog
	}
	if err != nil {
		return nil, fmt.Errorf("driveload: reading header: %w", err)
	}

	cols := make([]signal.Series, len(header))
	row := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("driveload: row %d: %w", row, err)
		}
		for i, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %q: %q", ErrBadCell, row, header[i], cell)
			}
			cols[i] = append(cols[i], v)
		}
		row++
	}

	if row == 1 {
		return nil, ErrEmptyLog
	}

	table := signal.NewTable()
	for i, name := range header {
		if err := table.AddColumn(name, cols[i]); err != nil {
			return nil, fmt.Errorf("driveload: %w", err)
		}
	}
	return table, nil
}

// LoadFile reads a drive log from a local path.
func LoadFile(path string) (*signal.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("driveload: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Fetch retrieves a drive log from an HTTP URL through the given
// client. A nil client uses http.DefaultClient.
func Fetch(client httputil.Getter, url string) (*signal.Table, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("driveload: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, url, resp.Status)
	}
	return Parse(resp.Body)
}
