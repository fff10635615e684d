// Package tle reads NORAD two-line element sets and keeps the loaded catalog.
package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyCatalog is returned when a source yields no usable entries.
var ErrEmptyCatalog = errors.New("no TLE entries found")

// Parse reads TLE text from r. Entries may carry a name line (3-line form)
// or not (2-line form, named after the NORAD id). Malformed entries are
// skipped with a warning.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	for i := 0; i < len(lines); {
		var name, line1, line2 string
		switch {
		case i+1 < len(lines) && isLine(lines[i], '1') && isLine(lines[i+1], '2'):
			line1, line2 = lines[i], lines[i+1]
			i += 2
		case i+2 < len(lines) && isLine(lines[i+1], '1') && isLine(lines[i+2], '2'):
			name, line1, line2 = strings.TrimSpace(lines[i]), lines[i+1], lines[i+2]
			i += 3
		default:
			logger.Warn("skipping malformed TLE line", "line_index", i, "line", lines[i])
			i++
			continue
		}

		e, err := parseEntry(name, line1, line2)
		if err != nil {
			logger.Warn("skipping TLE entry", "name", name, "error", err)
			continue
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func isLine(s string, n byte) bool {
	return len(s) > 2 && s[0] == n && s[1] == ' '
}

func parseEntry(name, line1, line2 string) (Entry, error) {
	if len(line1) < 32 {
		return Entry{}, fmt.Errorf("line1 too short (%d chars)", len(line1))
	}

	// NORAD id: line1 columns 3-7.
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid NORAD id %q: %w", noradStr, err)
	}

	// Epoch: line1 columns 19-32.
	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return Entry{}, err
	}

	if name == "" {
		name = strconv.Itoa(noradID)
	}
	return Entry{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// parseEpoch converts YYDDD.DDDDDDDD to time. Years 57-99 are 1900s,
// 00-56 are 2000s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day 1.0 is Jan 1 00:00.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((day - 1) * float64(24*time.Hour))), nil
}

// NewDataset builds a Dataset from parsed entries, computing its epoch range.
func NewDataset(source string, entries []Entry, loadedAt time.Time) (*Dataset, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyCatalog)
	}
	rng := EpochRange{Min: entries[0].Epoch, Max: entries[0].Epoch}
	for _, e := range entries[1:] {
		if e.Epoch.Before(rng.Min) {
			rng.Min = e.Epoch
		}
		if e.Epoch.After(rng.Max) {
			rng.Max = e.Epoch
		}
	}
	return &Dataset{
		Source:     source,
		LoadedAt:   loadedAt,
		EpochRange: rng,
		Satellites: entries,
	}, nil
}

// LoadFile parses a local TLE file into a Dataset.
func LoadFile(path string, logger *slog.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening TLE catalog: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f, logger)
	if err != nil {
		return nil, err
	}
	return NewDataset(path, entries, time.Now())
}
