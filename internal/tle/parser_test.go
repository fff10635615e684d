package tle

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9993"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495058"

	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIDs   []int
		wantNames []string
	}{
		{
			name:      "three-line entry",
			input:     issName + "\n" + issLine1 + "\n" + issLine2 + "\n",
			wantIDs:   []int{25544},
			wantNames: []string{issName},
		},
		{
			name:      "two-line entry named by id",
			input:     starlinkLine1 + "\r\n" + starlinkLine2 + "\r\n",
			wantIDs:   []int{44713},
			wantNames: []string{"44713"},
		},
		{
			name:      "mixed with blank lines",
			input:     issName + "\n\n" + issLine1 + "\n" + issLine2 + "\n\n" + starlinkLine1 + "\n" + starlinkLine2,
			wantIDs:   []int{25544, 44713},
			wantNames: []string{issName, "44713"},
		},
		{
			name:      "garbage line skipped",
			input:     "not a tle\nstill not\n" + issName + "\n" + issLine1 + "\n" + issLine2,
			wantIDs:   []int{25544},
			wantNames: []string{issName},
		},
		{
			name:    "empty input",
			input:   "",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tt.input), testLogger)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(entries) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.wantIDs))
			}
			for i, e := range entries {
				if e.NORADID != tt.wantIDs[i] {
					t.Errorf("entry %d: NORAD %d, want %d", i, e.NORADID, tt.wantIDs[i])
				}
				if e.Name != tt.wantNames[i] {
					t.Errorf("entry %d: name %q, want %q", i, e.Name, tt.wantNames[i])
				}
			}
		})
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"24100.50000000", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)},
		{"00001.00000000", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"98001.25000000", time.Date(1998, 1, 1, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseEpoch(tt.in)
		if err != nil {
			t.Fatalf("parseEpoch(%q): %v", tt.in, err)
		}
		if d := got.Sub(tt.want); d > time.Millisecond || d < -time.Millisecond {
			t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseEpoch("9"); err == nil {
		t.Error("expected error for short epoch")
	}
}

func TestLoadFileAndStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.tle")
	body := issName + "\n" + issLine1 + "\n" + issLine2 + "\n" + starlinkLine1 + "\n" + starlinkLine2 + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadFile(path, testLogger)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(ds.Satellites) != 2 {
		t.Fatalf("got %d satellites, want 2", len(ds.Satellites))
	}
	if !ds.EpochRange.Min.Before(ds.EpochRange.Max) {
		t.Errorf("epoch range %v..%v not ordered", ds.EpochRange.Min, ds.EpochRange.Max)
	}

	s := NewStore()
	if s.AgeSeconds() != -1 {
		t.Error("empty store should report age -1")
	}
	if _, ok := s.Find(25544); ok {
		t.Error("empty store should not find entries")
	}
	s.Set(ds)
	e, ok := s.Find(25544)
	if !ok || e.Name != issName {
		t.Errorf("Find(25544) = %+v, %v", e, ok)
	}
	if s.AgeSeconds() < 0 {
		t.Error("loaded store should report non-negative age")
	}
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tle")
	if err := os.WriteFile(path, []byte("nothing here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path, testLogger); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("err = %v, want ErrEmptyCatalog", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.tle"), testLogger); err == nil {
		t.Error("expected error for missing file")
	}
}
