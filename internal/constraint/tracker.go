package constraint

import (
	"math"
	"time"
)

// Sample is the outcome of one constraint predicate at one time index.
type Sample struct {
	Violated bool
	Severity float64
}

// DescribeFunc produces a window description. start and end are the
// window's first and last violated indices; final is true when the window
// was still open at the end of the sequence.
type DescribeFunc func(start, end int, final bool) string

// TrackViolations scans samples in time order and merges consecutive
// violated indices into windows. A window opens on a satisfied->violated
// transition (the state before index 0 counts as satisfied), keeps the
// running maximum severity, and closes at the last violated index. Window
// bounds are always sampled timestamps.
func TrackViolations(times []time.Time, sample func(i int) Sample, describe DescribeFunc) []Window {
	var (
		windows []Window
		open    bool
		start   int
		maxSev  float64
	)

	closeAt := func(end int, final bool) {
		w := Window{
			Start:       times[start],
			End:         times[end],
			MaxSeverity: maxSev,
		}
		if describe != nil {
			w.Description = describe(start, end, final)
		}
		windows = append(windows, w)
		open = false
	}

	for i := range times {
		s := sample(i)
		sev := cleanSeverity(s.Severity)
		switch {
		case s.Violated && !open:
			open, start, maxSev = true, i, sev
		case s.Violated:
			maxSev = math.Max(maxSev, sev)
		case open:
			closeAt(i-1, false)
		}
	}
	if open {
		closeAt(len(times)-1, true)
	}
	return windows
}

// cleanSeverity keeps NaN and negative values out of reported windows.
func cleanSeverity(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	return s
}

// trackSamples runs the tracker over a precomputed sample slice.
func trackSamples(times []time.Time, samples []Sample, describe DescribeFunc) []Window {
	return TrackViolations(times, func(i int) Sample { return samples[i] }, describe)
}
