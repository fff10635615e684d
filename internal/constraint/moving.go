package constraint

import (
	"fmt"
	"runtime"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/metrics"
)

// MovingResult is a Result for a target that moves between samples. RAs and
// Decs are the target positions used, aligned with Times.
type MovingResult struct {
	*Result
	RAs  []float64 `json:"ras"`
	Decs []float64 `json:"decs"`
}

func (e *evaluator) EvaluateMoving(eph ephemeris.Provider, ras, decs []float64, indices []int) (res *MovingResult, err error) {
	start := time.Now()
	defer func() {
		windows := 0
		if res != nil {
			windows = len(res.Violations)
		}
		metrics.RecordEvaluation(e.kind, time.Since(start), windows, err)
	}()

	if len(ras) != len(decs) {
		return nil, fmt.Errorf("%w: %d RA values, %d Dec values", geometry.ErrLengthMismatch, len(ras), len(decs))
	}
	sub, err := ephemeris.Select(eph, indices)
	if err != nil {
		return nil, err
	}
	times := sub.Times()
	if len(ras) != len(times) {
		return nil, fmt.Errorf("%w: %d target positions for %d timestamps", geometry.ErrLengthMismatch, len(ras), len(times))
	}
	for i := range ras {
		if err := checkTarget(ras[i], decs[i]); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	p, err := e.prepare(sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	var windows []Window
	if p.shared != nil {
		windows = trackSamples(times, p.shared.samples, p.shared.describe)
	} else {
		samples, describes, err := e.samplePerTime(sub, ras, decs)
		if err != nil {
			return nil, err
		}
		windows = trackSamples(times, samples, func(start, end int, final bool) string {
			k := mostSevere(samples, start, end)
			if describes[k] == nil {
				return ""
			}
			return describes[k](0, 0, final)
		})
	}
	return &MovingResult{
		Result: newResult(e.name, times, windows),
		RAs:    append([]float64(nil), ras...),
		Decs:   append([]float64(nil), decs...),
	}, nil
}

// samplePerTime evaluates each timestamp on its own single-row view with
// that timestamp's target position.
func (e *evaluator) samplePerTime(eph ephemeris.Provider, ras, decs []float64) ([]Sample, []DescribeFunc, error) {
	n := len(ras)
	samples := make([]Sample, n)
	describes := make([]DescribeFunc, n)

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			one, err := ephemeris.Select(eph, []int{i})
			if err != nil {
				return err
			}
			p, err := e.prepare(one)
			if err != nil {
				return fmt.Errorf("%s: sample %d: %w", e.name, i, err)
			}
			pr, err := p.at(ras[i], decs[i])
			if err != nil {
				return fmt.Errorf("%s: sample %d: %w", e.name, i, err)
			}
			samples[i], describes[i] = pr.samples[0], pr.describe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return samples, describes, nil
}

// mostSevere returns the index in [start, end] with the highest severity,
// the earliest on ties.
func mostSevere(samples []Sample, start, end int) int {
	best := start
	for k := start + 1; k <= end; k++ {
		if cleanSeverity(samples[k].Severity) > cleanSeverity(samples[best].Severity) {
			best = k
		}
	}
	return best
}

// MovingBodyVisibility evaluates ev for a solar-system body as the target.
// The body's RA/Dec at each selected timestamp is its direction as seen from
// the observer, so body is anything eph.BodyPositions resolves.
func MovingBodyVisibility(ev Evaluator, eph ephemeris.Provider, body string, indices []int) (*MovingResult, error) {
	sub, err := ephemeris.Select(eph, indices)
	if err != nil {
		return nil, err
	}
	pos, err := sub.BodyPositions(body)
	if err != nil {
		return nil, err
	}
	obs, err := sub.ObserverPositions()
	if err != nil {
		return nil, err
	}
	dirs, err := geometry.BodyDirections(pos, obs)
	if err != nil {
		return nil, err
	}
	ras := make([]float64, len(dirs))
	decs := make([]float64, len(dirs))
	for i, d := range dirs {
		ras[i], decs[i] = geometry.UnitToRADec(d)
	}
	return ev.EvaluateMoving(sub, ras, decs, nil)
}

func (e *evaluator) InConstraintAt(eph ephemeris.Provider, raDeg, decDeg float64, at []time.Time) ([]bool, error) {
	all := eph.Times()
	idx := make([]int, len(at))
	for k, t := range at {
		i := sort.Search(len(all), func(j int) bool { return !all[j].Before(t) })
		if i == len(all) || !all[i].Equal(t) {
			return nil, fmt.Errorf("%w: %s", ErrTimeNotEvaluated, t.Format(time.RFC3339Nano))
		}
		idx[k] = i
	}
	if len(idx) == 0 {
		return []bool{}, nil
	}
	uniq := slices.Clone(idx)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	res, err := e.Evaluate(eph, raDeg, decDeg, uniq)
	if err != nil {
		return nil, err
	}
	mask := res.ConstraintArray()
	out := make([]bool, len(at))
	for k, i := range idx {
		out[k] = mask[sort.SearchInts(uniq, i)]
	}
	return out, nil
}
