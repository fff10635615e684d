// Package constraint evaluates observing constraints against an ephemeris
// and reports the time windows in which each one is violated.
//
// Every constraint reduces to a per-time predicate (violated, severity).
// The tracker turns that sequence into windows; the batch path turns it
// into a satisfied mask per target. Quantities that do not depend on the
// target (body directions, the Sun's altitude, the sub-observer point) are
// computed once per call and shared by every target of that call.
package constraint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/metrics"
)

// ErrInvalidTarget is returned for a non-finite RA or a declination outside
// [-90, 90].
var ErrInvalidTarget = errors.New("invalid target coordinates")

// Evaluator is a configured constraint ready to run against an ephemeris.
// Implementations are immutable and safe for concurrent use.
type Evaluator interface {
	// Name is the human-readable identity, e.g. "SunProximity(min=45°)".
	Name() string
	// Evaluate returns the violation windows for one target. A nil indices
	// evaluates every timestamp; otherwise only the listed ones.
	Evaluate(eph ephemeris.Provider, raDeg, decDeg float64, indices []int) (*Result, error)
	// InConstraintBatch returns a len(ras) x n_times matrix, true where
	// the constraint is satisfied.
	InConstraintBatch(eph ephemeris.Provider, ras, decs []float64, indices []int) ([][]bool, error)
	// EvaluateMoving evaluates a target whose position changes with time:
	// ras[i], decs[i] is the target at the i-th selected timestamp.
	EvaluateMoving(eph ephemeris.Provider, ras, decs []float64, indices []int) (*MovingResult, error)
	// InConstraintAt evaluates only the given timestamps of eph and reports
	// true where the constraint is satisfied, in the order given.
	InConstraintAt(eph ephemeris.Provider, raDeg, decDeg float64, at []time.Time) ([]bool, error)
	// Kind is the configuration discriminator, e.g. "sun" or "and".
	Kind() string
}

// trace is one evaluated predicate sequence plus the describer for windows
// built from it.
type trace struct {
	samples  []Sample
	describe DescribeFunc
}

// prepared holds the per-call state of an evaluator. Target-independent
// constraints fill shared; the rest fill target.
type prepared struct {
	shared *trace
	target func(raDeg, decDeg float64) (trace, error)
}

func (p prepared) at(raDeg, decDeg float64) (trace, error) {
	if p.shared != nil {
		return *p.shared, nil
	}
	return p.target(raDeg, decDeg)
}

// evaluator is the single Evaluator implementation; each constraint kind
// supplies prepare.
type evaluator struct {
	kind    string
	name    string
	prepare func(eph ephemeris.Provider) (prepared, error)
}

func (e *evaluator) Name() string { return e.name }

func (e *evaluator) Kind() string { return e.kind }

func (e *evaluator) Evaluate(eph ephemeris.Provider, raDeg, decDeg float64, indices []int) (res *Result, err error) {
	start := time.Now()
	defer func() {
		windows := 0
		if res != nil {
			windows = len(res.Violations)
		}
		metrics.RecordEvaluation(e.kind, time.Since(start), windows, err)
	}()

	if err := checkTarget(raDeg, decDeg); err != nil {
		return nil, err
	}
	sub, err := ephemeris.Select(eph, indices)
	if err != nil {
		return nil, err
	}
	p, err := e.prepare(sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	pr, err := p.at(raDeg, decDeg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	times := sub.Times()
	return newResult(e.name, times, trackSamples(times, pr.samples, pr.describe)), nil
}

func (e *evaluator) InConstraintBatch(eph ephemeris.Provider, ras, decs []float64, indices []int) (out [][]bool, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordBatch(e.kind, time.Since(start), len(ras), err)
	}()

	if len(ras) != len(decs) {
		return nil, fmt.Errorf("%w: %d RA values, %d Dec values", geometry.ErrLengthMismatch, len(ras), len(decs))
	}
	for i := range ras {
		if err := checkTarget(ras[i], decs[i]); err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
	}
	sub, err := ephemeris.Select(eph, indices)
	if err != nil {
		return nil, err
	}
	p, err := e.prepare(sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	out = make([][]bool, len(ras))
	if p.shared != nil {
		row := satisfiedMask(p.shared.samples)
		for i := range out {
			out[i] = append([]bool(nil), row...)
		}
		return out, nil
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range ras {
		g.Go(func() error {
			pr, err := p.target(ras[i], decs[i])
			if err != nil {
				return fmt.Errorf("%s: target %d: %w", e.name, i, err)
			}
			out[i] = satisfiedMask(pr.samples)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateAll runs several evaluators against the same ephemeris and target
// in parallel. Results are in evaluator order; the first error cancels the
// rest.
func EvaluateAll(ctx context.Context, evals []Evaluator, eph ephemeris.Provider, raDeg, decDeg float64, indices []int) ([]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	out := make([]*Result, len(evals))
	for i, ev := range evals {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := ev.Evaluate(eph, raDeg, decDeg, indices)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func satisfiedMask(samples []Sample) []bool {
	out := make([]bool, len(samples))
	for i, s := range samples {
		out[i] = !s.Violated
	}
	return out
}

func checkTarget(raDeg, decDeg float64) error {
	if math.IsNaN(raDeg) || math.IsInf(raDeg, 0) || math.IsNaN(decDeg) || decDeg < -90 || decDeg > 90 {
		return fmt.Errorf("%w: ra=%v dec=%v", ErrInvalidTarget, raDeg, decDeg)
	}
	return nil
}

// sharedProbe wraps a target-independent result.
func sharedProbe(samples []Sample, describe DescribeFunc) prepared {
	return prepared{shared: &trace{samples: samples, describe: describe}}
}
