package isosurface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/isosurface/internal/parallel"
)

// RunStats summarizes one regeneration.
type RunStats struct {
	Backend     Backend
	Accelerator string
	Chunks      int
	Failed      int
	Triangles   int
	Reconcile   ReconcileStats
	Elapsed     time.Duration
}

// Generator regenerates the surface of a chunk grid from a weight field.
//
// A run reconciles the lattice, refreshes every chunk's samples,
// triangulates each chunk on the configured backend and hands the result
// to the modifier and sink. Runs are serialized; a run always completes
// before the next one starts. Settings changes are coalesced: any number
// of MarkDirty calls before the next RunIfDirty produce one run.
type Generator struct {
	runMu   sync.Mutex // held for the duration of a run
	cfgMu   sync.Mutex // guards cfg
	cfg     config
	field   WeightField
	lattice *Lattice
	exec    *Executor
	pool    *parallel.WorkerPool
	dirty   atomic.Bool
	closed  bool
}

var tablesErr = sync.OnceValue(ValidateTables)

// New creates a generator sampling field.
func New(field WeightField, opts ...Option) (*Generator, error) {
	if field == nil {
		return nil, ErrNoField
	}
	if err := tablesErr(); err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	exec, err := NewExecutor(cfg.backend, cfg.accel, cfg.lifecycle)
	if err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:     cfg,
		field:   field,
		lattice: NewLattice(),
		exec:    exec,
		pool:    parallel.NewWorkerPool(cfg.workers),
	}
	g.dirty.Store(true)
	Logger().Info("isosurface: generator created",
		"backend", cfg.backend.String(),
		"accelerator", exec.AcceleratorName(),
		"lifecycle", cfg.lifecycle.String(),
		"workers", g.pool.Workers())
	return g, nil
}

// Layout returns the current layout.
func (g *Generator) Layout() Layout {
	g.cfgMu.Lock()
	defer g.cfgMu.Unlock()
	return g.cfg.layout
}

// SetLayout changes the grid and marks the generator dirty.
func (g *Generator) SetLayout(l Layout) {
	g.cfgMu.Lock()
	g.cfg.layout = l
	g.cfgMu.Unlock()
	g.MarkDirty()
}

// SetCurve changes the threshold curve and marks the generator dirty.
func (g *Generator) SetCurve(curve ThresholdCurve) {
	if curve == nil {
		return
	}
	g.cfgMu.Lock()
	g.cfg.curve = curve
	g.cfgMu.Unlock()
	g.MarkDirty()
}

// SetInterpolation changes the iso policy and marks the generator dirty.
func (g *Generator) SetInterpolation(p InterpolationPolicy) {
	g.cfgMu.Lock()
	g.cfg.policy = p
	g.cfgMu.Unlock()
	g.MarkDirty()
}

// MarkDirty records that settings changed. Safe to call from any goroutine.
func (g *Generator) MarkDirty() { g.dirty.Store(true) }

// Dirty reports whether a change is waiting for a run.
func (g *Generator) Dirty() bool { return g.dirty.Load() }

// RunIfDirty runs once if any change was recorded since the last run
// started. It reports whether a run happened.
func (g *Generator) RunIfDirty(ctx context.Context) (bool, RunStats, error) {
	if !g.dirty.Load() {
		return false, RunStats{}, nil
	}
	stats, err := g.Run(ctx)
	return true, stats, err
}

// Lattice returns the generator's lattice. It must not be used while a
// run is in progress.
func (g *Generator) Lattice() *Lattice { return g.lattice }

// BufferStats returns the accelerator buffer counters.
func (g *Generator) BufferStats() BufferStats { return g.exec.BufferStats() }

// Run performs one full regeneration. Errors of individual chunks are
// joined into the result while the remaining chunks are still produced;
// buffer allocation and dispatch failures abort the run.
func (g *Generator) Run(ctx context.Context) (stats RunStats, err error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.closed {
		return stats, ErrClosed
	}

	g.cfgMu.Lock()
	cfg := g.cfg
	g.cfgMu.Unlock()
	g.dirty.Store(false)

	start := time.Now()
	stats.Backend = cfg.backend
	stats.Accelerator = g.exec.AcceleratorName()
	defer func() { stats.Elapsed = time.Since(start) }()

	if err := cfg.layout.Validate(); err != nil {
		return stats, err
	}
	layout := cfg.layout

	if err := g.exec.Begin(Triangulator{Layout: layout, Curve: cfg.curve, Policy: cfg.policy}); err != nil {
		return stats, err
	}
	defer func() {
		if endErr := g.exec.End(); endErr != nil {
			err = errors.Join(err, endErr)
		}
	}()

	coords := layout.Coords()
	stats.Reconcile = g.lattice.Reconcile(coords)
	chunks := g.lattice.Chunks()
	stats.Chunks = len(chunks)
	for _, ch := range chunks {
		ch.SetUp(layout.PointsPerAxis, cfg.wantsCollision)
	}

	samples, err := g.field.Generate(ctx, coords, layout)
	if err != nil {
		return stats, fmt.Errorf("isosurface: generate weights: %w", err)
	}

	var errs []error
	ready := make([]*Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if err := ch.UpdateWeights(samples[ch.Coord()]); err != nil {
			ch.setTriangles(nil)
			ch.setMesh(nil)
			errs = append(errs, err)
			continue
		}
		ready = append(ready, ch)
	}
	stats.Failed = len(chunks) - len(ready)

	if !cfg.genMesh {
		return stats, errors.Join(errs...)
	}

	done, err := g.triangulate(ctx, cfg.backend, ready)
	if err != nil {
		return stats, errors.Join(append(errs, err)...)
	}
	built := ready[:0:0]
	for i, ch := range ready {
		if done[i] == nil {
			built = append(built, ch)
			stats.Triangles += len(ch.Triangles())
			continue
		}
		stats.Failed++
		errs = append(errs, done[i])
	}

	if err := g.finish(cfg, built); err != nil {
		errs = append(errs, err)
	}

	Logger().Info("isosurface: run finished",
		"backend", cfg.backend.String(),
		"chunks", stats.Chunks,
		"failed", stats.Failed,
		"triangles", stats.Triangles,
		"created", stats.Reconcile.Created,
		"recycled", stats.Reconcile.Recycled,
		"elapsed", time.Since(start))
	return stats, errors.Join(errs...)
}

// triangulate fills every chunk's triangles. The returned slice holds the
// per-chunk error. A non-nil error aborts the whole run.
func (g *Generator) triangulate(ctx context.Context, backend Backend, chunks []*Chunk) ([]error, error) {
	chunkErrs := make([]error, len(chunks))
	run := func(i int) error {
		ch := chunks[i]
		soup, err := g.exec.Triangulate(ctx, ch)
		if err != nil {
			ch.setTriangles(nil)
			return err
		}
		ch.setTriangles(soup)
		Logger().Debug("isosurface: chunk triangulated", "coord", ch.Coord().String(), "triangles", len(soup))
		return nil
	}

	if backend == BackendReference {
		err := g.pool.ForEach(ctx, len(chunks), func(i int) error {
			chunkErrs[i] = run(i)
			return nil
		})
		return chunkErrs, err
	}

	// Accelerator dispatches are serialized; any failure is fatal.
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return chunkErrs, err
		}
		if err := run(i); err != nil {
			return chunkErrs, err
		}
	}
	return chunkErrs, nil
}

// finish runs the modifier, the optional stitch pass and the sink.
func (g *Generator) finish(cfg config, chunks []*Chunk) error {
	if cfg.modifier == nil {
		return nil
	}
	var errs []error
	meshes := make(map[Coord]*Mesh, len(chunks))
	for _, ch := range chunks {
		m, err := cfg.modifier.Apply(ch.Triangles(), ch.Coord())
		if err != nil {
			ch.setMesh(nil)
			errs = append(errs, fmt.Errorf("isosurface: modify chunk %v: %w", ch.Coord(), err))
			continue
		}
		ch.setMesh(m)
		meshes[ch.Coord()] = m
	}

	if cfg.stitchEdges {
		if s, ok := cfg.modifier.(Stitcher); ok {
			if err := s.Stitch(meshes); err != nil {
				errs = append(errs, fmt.Errorf("isosurface: stitch edges: %w", err))
			}
		}
	}

	if cfg.sink != nil {
		for _, ch := range chunks {
			m := ch.Mesh()
			if m == nil {
				continue
			}
			if err := cfg.sink.Accept(ch.Coord(), m, ch.WantsCollision()); err != nil {
				errs = append(errs, fmt.Errorf("isosurface: sink chunk %v: %w", ch.Coord(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases accelerator buffers, clears the lattice and stops the
// worker pool. It waits for a run in progress.
func (g *Generator) Close() error {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	err := g.exec.Close()
	g.lattice.Clear()
	g.pool.Close()
	return err
}
