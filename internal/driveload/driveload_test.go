package driveload

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corrdash/corrdash/internal/httputil"
)

const sampleLog = "wheel_angle,speed\n0.0,10.0\n0.1,9.5\n-0.1,9.0\n"

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := table.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	names := table.Names()
	if len(names) != 2 || names[0] != "wheel_angle" || names[1] != "speed" {
		t.Errorf("Names() = %v", names)
	}
	speed, err := table.Column("speed")
	if err != nil {
		t.Fatalf("Column(speed) error = %v", err)
	}
	if speed[1] != 9.5 {
		t.Errorf("speed[1] = %v, want 9.5", speed[1])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"header only", "wheel_angle,speed\n"},
		{"non-numeric cell", "wheel_angle,speed\n0.0,fast\n"},
		{"ragged row", "wheel_angle,speed\n0.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.in)); err == nil {
				t.Error("Parse() succeeded, want error")
			}
		})
	}

	if _, err := Parse(strings.NewReader("a,b\n1,x\n")); !errors.Is(err, ErrBadCell) {
		t.Errorf("error = %v, want ErrBadCell", err)
	}
	if _, err := Parse(strings.NewReader("a,b\n")); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("error = %v, want ErrEmptyLog", err)
	}
}

func TestParse_RejectsNonFiniteCells(t *testing.T) {
	// ParseFloat accepts these spellings, but a NaN or Inf sample would
	// propagate through path reconstruction and turn similarity scores
	// into NaN. The loader is the only gate, so it must reject them.
	tests := []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "Infinity"}
	for _, cell := range tests {
		t.Run(cell, func(t *testing.T) {
			in := "wheel_angle,speed\n0.0,10.0\n0.0," + cell + "\n"
			if _, err := Parse(strings.NewReader(in)); !errors.Is(err, ErrBadCell) {
				t.Errorf("Parse() error = %v, want ErrBadCell", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.csv")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("LoadFile(missing) succeeded, want error")
	}
}

func TestFetch(t *testing.T) {
	client := &httputil.MockGetter{
		Responses: map[string]string{"http://logs.example/drive-1.csv": sampleLog},
	}

	table, err := Fetch(client, "http://logs.example/drive-1.csv")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}

	if _, err := Fetch(client, "http://logs.example/absent.csv"); !errors.Is(err, ErrFetchFailed) {
		t.Errorf("error = %v, want ErrFetchFailed", err)
	}

	client.Err = http.ErrHandlerTimeout
	if _, err := Fetch(client, "http://logs.example/drive-1.csv"); err == nil {
		t.Error("Fetch() with transport error succeeded")
	}
}
