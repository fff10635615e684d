package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/skywindow/internal/geometry"
	"github.com/star/skywindow/internal/metrics"
	"github.com/star/skywindow/internal/tle"
)

var (
	// ErrNoCatalog is returned when no TLE catalog has been loaded.
	ErrNoCatalog = errors.New("no TLE catalog loaded")
	// ErrNotInCatalog is returned for a NORAD id missing from the catalog.
	ErrNotInCatalog = errors.New("satellite not in catalog")
)

// Config holds propagation settings loaded from environment variables.
type Config struct {
	Workers int // worker pool size (default: runtime.NumCPU())
}

// sgp4Cache holds initialized propagators for one catalog load.
// Immutable after construction.
type sgp4Cache struct {
	props    map[int]*SGP4Propagator
	loadedAt time.Time
}

// Propagator resolves catalog entries to SGP4 records and propagates them
// over time series on a shared worker pool.
type Propagator struct {
	store  *tle.Store
	pool   *WorkerPool
	logger *slog.Logger
	sgp4   atomic.Pointer[sgp4Cache]
	sgp4Mu sync.Mutex // serializes cache rebuilds
}

// NewPropagator creates a propagator backed by store. A nil store is
// allowed; catalog lookups then fail with ErrNoCatalog.
func NewPropagator(store *tle.Store, cfg Config, logger *slog.Logger) *Propagator {
	return &Propagator{
		store:  store,
		pool:   NewWorkerPool(cfg.Workers, logger),
		logger: logger,
	}
}

// cachedProps returns initialized propagators for ds, rebuilding the cache
// when the catalog has been replaced (double-checked locking).
func (p *Propagator) cachedProps(ds *tle.Dataset) map[int]*SGP4Propagator {
	if c := p.sgp4.Load(); c != nil && c.loadedAt.Equal(ds.LoadedAt) {
		return c.props
	}

	p.sgp4Mu.Lock()
	defer p.sgp4Mu.Unlock()

	if c := p.sgp4.Load(); c != nil && c.loadedAt.Equal(ds.LoadedAt) {
		return c.props
	}

	props := make(map[int]*SGP4Propagator, len(ds.Satellites))
	var skipped int
	for _, entry := range ds.Satellites {
		if _, ok := props[entry.NORADID]; ok {
			continue
		}
		sp, err := NewSGP4Propagator(entry.Line1, entry.Line2, entry.NORADID)
		if err != nil {
			p.logger.Warn("sgp4 cache init failed", "norad_id", entry.NORADID, "error", err)
			skipped++
			continue
		}
		props[entry.NORADID] = sp
	}

	p.logger.Info("sgp4 propagator cache rebuilt",
		"cached", len(props),
		"skipped", skipped,
		"catalog_loaded_at", ds.LoadedAt.UTC().Format(time.RFC3339),
	)
	p.sgp4.Store(&sgp4Cache{props: props, loadedAt: ds.LoadedAt})
	return props
}

// Lookup returns the propagator for a catalog satellite.
func (p *Propagator) Lookup(noradID int) (*SGP4Propagator, error) {
	if p.store == nil {
		return nil, ErrNoCatalog
	}
	ds := p.store.Get()
	if ds == nil {
		return nil, ErrNoCatalog
	}
	sp, ok := p.cachedProps(ds)[noradID]
	if !ok {
		return nil, fmt.Errorf("%w: NORAD %d", ErrNotInCatalog, noradID)
	}
	return sp, nil
}

// Series propagates prop over times and records the run in metrics.
func (p *Propagator) Series(ctx context.Context, prop *SGP4Propagator, times []time.Time) ([]geometry.Vec3, []geometry.Vec3, error) {
	start := time.Now()
	pos, vel, err := p.pool.PropagateSeries(ctx, prop, times)
	metrics.RecordPropagation(time.Since(start), len(times), err)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Debug("propagation complete",
		"norad_id", prop.NORADID(),
		"samples", len(times),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pos, vel, nil
}
