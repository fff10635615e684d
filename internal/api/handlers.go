package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/star/skywindow/internal/constraint"
	"github.com/star/skywindow/internal/ephemeris"
	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/propagation"
)

type target struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// evaluateRequest carries either one constraint or a list evaluated
// together against the same ephemeris.
type evaluateRequest struct {
	Constraint  *constraint.Spec  `json:"constraint,omitempty"`
	Constraints []constraint.Spec `json:"constraints,omitempty"`
	Observer    observerRequest   `json:"observer"`
	Target      target            `json:"target"`
	Indices     []int             `json:"indices,omitempty"`
}

type batchRequest struct {
	Constraint constraint.Spec `json:"constraint"`
	Observer   observerRequest `json:"observer"`
	Targets    []target        `json:"targets"`
	Indices    []int           `json:"indices,omitempty"`
}

// movingRequest evaluates a target that moves: either per-sample ras/decs
// aligned with the selected timestamps, or a body tracked from the observer.
type movingRequest struct {
	Constraint constraint.Spec `json:"constraint"`
	Observer   observerRequest `json:"observer"`
	RAs        []float64       `json:"ras,omitempty"`
	Decs       []float64       `json:"decs,omitempty"`
	Body       string          `json:"body,omitempty"`
	Indices    []int           `json:"indices,omitempty"`
}

type evaluation struct {
	*constraint.Result
	VisibilityWindows     []constraint.VisibilityWindow `json:"visibility_windows"`
	TotalViolationSeconds float64                       `json:"total_violation_seconds"`
}

func newEvaluation(r *constraint.Result) evaluation {
	vis := r.VisibilityWindows()
	if vis == nil {
		vis = []constraint.VisibilityWindow{}
	}
	return evaluation{Result: r, VisibilityWindows: vis, TotalViolationSeconds: r.TotalViolationDuration()}
}

type movingEvaluation struct {
	*constraint.MovingResult
	ConstraintType        string                        `json:"constraint_type"`
	InConstraint          []bool                        `json:"in_constraint"`
	VisibilityWindows     []constraint.VisibilityWindow `json:"visibility_windows"`
	TotalViolationSeconds float64                       `json:"total_violation_seconds"`
}

type batchResponse struct {
	ConstraintName string      `json:"constraint_name"`
	ConstraintType string      `json:"constraint_type"`
	Times          []time.Time `json:"times"`
	InConstraint   [][]bool    `json:"in_constraint"`
}

func constraintsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"kinds": constraint.Kinds()})
}

func (s *Server) evaluateHandler(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !s.decode(w, r, &req) {
		return
	}
	specs := req.Constraints
	switch {
	case req.Constraint != nil && len(req.Constraints) > 0:
		writeError(w, http.StatusBadRequest, "use either constraint or constraints, not both")
		return
	case req.Constraint != nil:
		specs = []constraint.Spec{*req.Constraint}
	case len(specs) == 0:
		writeError(w, http.StatusBadRequest, "constraint is required")
		return
	}

	evals := make([]constraint.Evaluator, len(specs))
	for i, spec := range specs {
		ev, err := spec.Build()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		evals[i] = ev
	}

	eph, err := s.provider(r.Context(), req.Observer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	results, err := constraint.EvaluateAll(r.Context(), evals, eph, req.Target.RA, req.Target.Dec, req.Indices)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Constraint != nil {
		writeJSON(w, http.StatusOK, newEvaluation(results[0]))
		return
	}
	out := make([]evaluation, len(results))
	for i, res := range results {
		out[i] = newEvaluation(res)
	}
	writeJSON(w, http.StatusOK, map[string][]evaluation{"results": out})
}

func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Targets) == 0 {
		writeError(w, http.StatusBadRequest, "targets is required")
		return
	}
	if s.cfg.MaxBatchTargets > 0 && len(req.Targets) > s.cfg.MaxBatchTargets {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       fmt.Sprintf("%d targets requested", len(req.Targets)),
			"max_targets": s.cfg.MaxBatchTargets,
		})
		return
	}
	ev, err := req.Constraint.Build()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	eph, err := s.provider(r.Context(), req.Observer)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ras := make([]float64, len(req.Targets))
	decs := make([]float64, len(req.Targets))
	for i, t := range req.Targets {
		ras[i], decs[i] = t.RA, t.Dec
	}
	matrix, err := ev.InConstraintBatch(eph, ras, decs, req.Indices)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	times := eph.Times()
	if req.Indices != nil {
		times = make([]time.Time, len(req.Indices))
		for k, i := range req.Indices {
			times[k] = eph.Times()[i]
		}
	}
	writeJSON(w, http.StatusOK, batchResponse{
		ConstraintName: ev.Name(),
		ConstraintType: ev.Kind(),
		Times:          times,
		InConstraint:   matrix,
	})
}

func (s *Server) movingHandler(w http.ResponseWriter, r *http.Request) {
	var req movingRequest
	if !s.decode(w, r, &req) {
		return
	}
	byPosition := len(req.RAs) > 0 || len(req.Decs) > 0
	switch {
	case req.Body != "" && byPosition:
		writeError(w, http.StatusBadRequest, "use either body or ras/decs, not both")
		return
	case req.Body == "" && !byPosition:
		writeError(w, http.StatusBadRequest, "body or ras/decs is required")
		return
	}
	ev, err := req.Constraint.Build()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	eph, err := s.provider(r.Context(), req.Observer)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var res *constraint.MovingResult
	if req.Body != "" {
		res, err = constraint.MovingBodyVisibility(ev, eph, req.Body, req.Indices)
	} else {
		res, err = ev.EvaluateMoving(eph, req.RAs, req.Decs, req.Indices)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	vis := res.VisibilityWindows()
	if vis == nil {
		vis = []constraint.VisibilityWindow{}
	}
	writeJSON(w, http.StatusOK, movingEvaluation{
		MovingResult:          res,
		ConstraintType:        ev.Kind(),
		InConstraint:          res.ConstraintArray(),
		VisibilityWindows:     vis,
		TotalViolationSeconds: res.TotalViolationDuration(),
	})
}

func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, propagation.ErrNoCatalog.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":      ds.Source,
		"loaded_at":   ds.LoadedAt,
		"epoch_range": ds.EpochRange,
		"count":       len(ds.Satellites),
	})
}

func (s *Server) catalogEntryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("norad_id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "norad_id must be a positive integer")
		return
	}
	if s.store.Get() == nil {
		writeError(w, http.StatusServiceUnavailable, propagation.ErrNoCatalog.Error())
		return
	}
	e, ok := s.store.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("NORAD %d not in catalog", id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, errSampleBudget),
		errors.Is(err, constraint.ErrInvalidConfig),
		errors.Is(err, constraint.ErrInvalidTarget),
		errors.Is(err, ephemeris.ErrBadIndices),
		errors.Is(err, ephemeris.ErrBadGrid),
		errors.Is(err, ephemeris.ErrNoVelocity),
		errors.Is(err, ephemeris.ErrUnknownBody),
		errors.Is(err, ephemeris.ErrMismatch),
		errors.Is(err, ephemeris.ErrTimeOrder),
		errors.Is(err, geometry.ErrLengthMismatch),
		errors.Is(err, propagation.ErrInvalidTLE):
		return http.StatusBadRequest
	case errors.Is(err, propagation.ErrNotInCatalog):
		return http.StatusNotFound
	case errors.Is(err, propagation.ErrPropagation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, propagation.ErrNoCatalog), errors.Is(err, errNoPropagation):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "component", "api", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	if errors.Is(err, errSampleBudget) {
		writeJSON(w, status, map[string]any{"error": err.Error(), "max_samples": s.cfg.MaxSamples})
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
