// Command diag evaluates a YAML constraint file against one target for a
// ground site or a catalog satellite and prints the violation windows.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/star/skywindow/internal/constraint"
	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/propagation"
	"github.com/star/skywindow/internal/tle"
	"github.com/star/skywindow/internal/transform"
)

func main() {
	var (
		file    = flag.String("constraints", "", "YAML constraint file (one mapping or a list)")
		lat     = flag.Float64("lat", 0, "ground site latitude, degrees")
		lon     = flag.Float64("lon", 0, "ground site longitude, degrees")
		height  = flag.Float64("height", 0, "ground site height, metres")
		tleFile = flag.String("tle", "", "TLE catalog; with -norad selects an orbiting observer")
		norad   = flag.Int("norad", 0, "NORAD id in the -tle catalog")
		ra      = flag.Float64("ra", 0, "target right ascension, degrees")
		dec     = flag.Float64("dec", 0, "target declination, degrees")
		start   = flag.String("start", "", "start time, RFC 3339 (default now)")
		span    = flag.Duration("span", 24*time.Hour, "evaluation span")
		step    = flag.Duration("step", time.Minute, "sample step")
		body    = flag.String("body", "", "track a body (sun, moon, NAIF id) instead of -ra/-dec")
		at      = flag.String("at", "", "comma-separated RFC 3339 grid times to spot-check")
		asJSON  = flag.Bool("json", false, "print results as JSON")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if *file == "" {
		fmt.Fprintln(os.Stderr, "ERROR: -constraints is required")
		flag.Usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR reading constraints:", err)
		os.Exit(1)
	}
	specs, err := constraint.ParseYAML(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR parsing constraints:", err)
		os.Exit(1)
	}
	evals := make([]constraint.Evaluator, len(specs))
	for i, s := range specs {
		if evals[i], err = s.Build(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR in constraint %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	t0 := time.Now().UTC().Truncate(time.Second)
	if *start != "" {
		if t0, err = time.Parse(time.RFC3339, *start); err != nil {
			fmt.Fprintln(os.Stderr, "ERROR parsing -start:", err)
			os.Exit(2)
		}
	}
	times, err := ephemeris.Grid(t0, t0.Add(*span), *step)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(2)
	}

	ctx := context.Background()
	var eph ephemeris.Provider
	if *tleFile != "" {
		eph, err = orbit(ctx, logger, *tleFile, *norad, times)
	} else {
		eph, err = ephemeris.NewGround(transform.Geodetic{LatDeg: *lat, LonDeg: *lon, HeightKm: *height / 1000}, times)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR building ephemeris:", err)
		os.Exit(1)
	}

	if *at != "" {
		spotCheck(evals, eph, *ra, *dec, *at)
		return
	}

	var results []*constraint.Result
	if *body != "" {
		results, err = trackBody(evals, eph, *body)
	} else {
		results, err = constraint.EvaluateAll(ctx, evals, eph, *ra, *dec, nil)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR evaluating:", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(results)
		return
	}

	if *body != "" {
		fmt.Printf("Target %s, %d samples from %s\n", *body, len(times), t0.Format(time.RFC3339))
	} else {
		fmt.Printf("Target RA %.4f° Dec %.4f°, %d samples from %s\n", *ra, *dec, len(times), t0.Format(time.RFC3339))
	}
	for _, res := range results {
		fmt.Printf("\n%s: %d violation windows, %.0fs violated\n",
			res.ConstraintName, len(res.Violations), res.TotalViolationDuration())
		for j, w := range res.Violations {
			fmt.Printf("  %d: %s .. %s severity=%.3f %s\n", j,
				w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), w.MaxSeverity, w.Description)
		}
		for _, v := range res.VisibilityWindows() {
			fmt.Printf("  visible %s .. %s (%.0fs)\n",
				v.Start.Format(time.RFC3339), v.End.Format(time.RFC3339), v.DurationSeconds)
		}
	}
}

func orbit(ctx context.Context, logger *slog.Logger, path string, noradID int, times []time.Time) (ephemeris.Provider, error) {
	ds, err := tle.LoadFile(path, logger)
	if err != nil {
		return nil, err
	}
	store := tle.NewStore()
	store.Set(ds)
	prop := propagation.NewPropagator(store, propagation.Config{Workers: runtime.NumCPU()}, logger)
	sp, err := prop.Lookup(noradID)
	if err != nil {
		return nil, err
	}
	return ephemeris.NewOrbit(ctx, prop, sp, times)
}

func trackBody(evals []constraint.Evaluator, eph ephemeris.Provider, body string) ([]*constraint.Result, error) {
	out := make([]*constraint.Result, len(evals))
	for i, ev := range evals {
		res, err := constraint.MovingBodyVisibility(ev, eph, body, nil)
		if err != nil {
			return nil, err
		}
		out[i] = res.Result
	}
	return out, nil
}

func spotCheck(evals []constraint.Evaluator, eph ephemeris.Provider, ra, dec float64, list string) {
	var at []time.Time
	for _, f := range strings.Split(list, ",") {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(f))
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR parsing -at:", err)
			os.Exit(2)
		}
		at = append(at, t.UTC())
	}
	for _, ev := range evals {
		ok, err := ev.InConstraintAt(eph, ra, dec, at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR in %s: %v\n", ev.Name(), err)
			os.Exit(1)
		}
		fmt.Println(ev.Name())
		for k, t := range at {
			state := "violated"
			if ok[k] {
				state = "satisfied"
			}
			fmt.Printf("  %s %s\n", t.Format(time.RFC3339), state)
		}
	}
}
