package constraint

import (
	"math"
	"strings"

	"github.com/star/skywindow/internal/ephemeris"
)

// combineFunc merges the children's samples at one index.
type combineFunc func(children []Sample) Sample

func combineAnd(cs []Sample) Sample {
	var out Sample
	for _, c := range cs {
		if c.Violated {
			out.Violated = true
			out.Severity = math.Max(out.Severity, c.Severity)
		}
	}
	return out
}

func combineOr(cs []Sample) Sample {
	out := Sample{Violated: len(cs) > 0, Severity: math.Inf(1)}
	for _, c := range cs {
		if !c.Violated {
			return Sample{}
		}
		out.Severity = math.Min(out.Severity, c.Severity)
	}
	if !out.Violated {
		return Sample{}
	}
	return out
}

func combineXor(cs []Sample) Sample {
	var (
		out Sample
		n   int
	)
	for _, c := range cs {
		if c.Violated {
			n++
			out = c
		}
	}
	if n != 1 {
		return Sample{}
	}
	return out
}

func combineNot(cs []Sample) Sample {
	if cs[0].Violated {
		return Sample{}
	}
	return Sample{Violated: true, Severity: 1}
}

// logicEvaluator combines children index by index. The result is
// target-independent only when every child is.
func logicEvaluator(kind, op string, children []*evaluator, combine combineFunc) *evaluator {
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.name
	}
	return &evaluator{
		kind: kind,
		name: op + "(" + strings.Join(names, ", ") + ")",
		prepare: func(eph ephemeris.Provider) (prepared, error) {
			preps := make([]prepared, len(children))
			allShared := true
			for i, c := range children {
				p, err := c.prepare(eph)
				if err != nil {
					return prepared{}, err
				}
				preps[i] = p
				allShared = allShared && p.shared != nil
			}
			n := len(eph.Times())
			merge := func(traces []trace) trace {
				samples := make([]Sample, n)
				row := make([]Sample, len(traces))
				for i := range samples {
					for k, p := range traces {
						row[k] = p.samples[i]
					}
					samples[i] = combine(row)
				}
				return trace{samples: samples, describe: describeLogic(kind, names, traces)}
			}
			if allShared {
				traces := make([]trace, len(preps))
				for i, p := range preps {
					traces[i] = *p.shared
				}
				m := merge(traces)
				return prepared{shared: &m}, nil
			}
			return prepared{target: func(ra, dec float64) (trace, error) {
				traces := make([]trace, len(preps))
				for i, p := range preps {
					pr, err := p.at(ra, dec)
					if err != nil {
						return trace{}, err
					}
					traces[i] = pr
				}
				return merge(traces), nil
			}}, nil
		},
	}
}

// describeLogic names the children responsible for the window's first
// sample.
func describeLogic(kind string, names []string, traces []trace) DescribeFunc {
	return func(start, _ int, _ bool) string {
		var violated []string
		for k, p := range traces {
			if p.samples[start].Violated {
				violated = append(violated, names[k])
			}
		}
		switch kind {
		case kindNot:
			return "Negated constraint satisfied: " + names[0]
		case kindOr:
			return "All alternatives violated: " + strings.Join(violated, "; ")
		case kindXor:
			return "Exactly one constraint violated: " + strings.Join(violated, "; ")
		}
		return "Violated: " + strings.Join(violated, "; ")
	}
}
