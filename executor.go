package isosurface

import (
	"context"
	"fmt"
	"sync"
)

// Executor triangulates chunks on the configured backend. Both backends
// consume the chunk's samples and produce the same triangle soup contract.
//
// Reference triangulation may run concurrently for different chunks.
// Accelerator dispatches and buffer resizes are serialized.
type Executor struct {
	backend Backend

	mu        sync.Mutex // guards tri, active and every dispatch
	tri       Triangulator
	accel     Accelerator
	ownsAccel bool
	buffers   *BufferManager
	active    BufferSet
}

// NewExecutor returns an executor for backend. For BackendAccelerator a
// nil accel selects the registered accelerator, or the software kernel
// when none is registered.
func NewExecutor(backend Backend, accel Accelerator, lifecycle Lifecycle) (*Executor, error) {
	e := &Executor{backend: backend}
	switch backend {
	case BackendReference:
	case BackendAccelerator:
		if accel == nil {
			accel = RegisteredAccelerator()
		}
		if accel == nil {
			sw := &SoftwareAccelerator{}
			if err := sw.Init(); err != nil {
				return nil, err
			}
			accel = sw
			e.ownsAccel = true
			Logger().Warn("isosurface: no accelerator registered, using software kernel")
		}
		e.accel = accel
		e.buffers = NewBufferManager(accel, lifecycle)
	default:
		return nil, fmt.Errorf("isosurface: unsupported backend %v", backend)
	}
	return e, nil
}

// Backend returns the executor's backend.
func (e *Executor) Backend() Backend { return e.backend }

// AcceleratorName returns the accelerator in use, or "" for the reference path.
func (e *Executor) AcceleratorName() string {
	if e.accel == nil {
		return ""
	}
	return e.accel.Name()
}

// Begin prepares a run with tri. On the accelerator path it acquires
// buffers for tri's lattice resolution; allocation failure is fatal for
// the run.
func (e *Executor) Begin(tri Triangulator) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tri = tri
	if e.backend != BackendAccelerator {
		return nil
	}
	bufs, err := e.buffers.Acquire(tri.Layout.PointsPerAxis)
	if err != nil {
		e.active = nil
		return err
	}
	e.active = bufs
	return nil
}

// Triangulate produces ch's triangle soup.
func (e *Executor) Triangulate(ctx context.Context, ch *Chunk) (Soup, error) {
	if e.backend == BackendReference {
		e.mu.Lock()
		tri := e.tri
		e.mu.Unlock()
		return tri.Chunk(ch)
	}
	return e.dispatch(ctx, ch)
}

func (e *Executor) dispatch(ctx context.Context, ch *Chunk) (Soup, error) {
	if !ch.HasSamples() {
		return nil, fmt.Errorf("%w: chunk %v has no samples", ErrSampleCount, ch.Coord())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.Spec().PointsPerAxis != ch.PointsPerAxis() {
		bufs, err := e.buffers.Acquire(ch.PointsPerAxis())
		if err != nil {
			return nil, err
		}
		e.active = bufs
	}

	soup, err := e.accel.Dispatch(ctx, e.active, e.kernelInput(ch))
	if err != nil {
		return nil, fmt.Errorf("isosurface: %s dispatch for chunk %v: %w", e.accel.Name(), ch.Coord(), err)
	}
	return soup, nil
}

// KernelInput builds the dispatch input for ch: packed samples and the
// threshold table sampled over the chunk's own height range.
func (e *Executor) KernelInput(ch *Chunk) KernelInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kernelInput(ch)
}

func (e *Executor) kernelInput(ch *Chunk) KernelInput {
	layout := e.tri.Layout
	yMin, yMax := layout.ChunkHeightRange(ch.Coord())
	return KernelInput{
		Points: PackPoints(ch.Samples()),
		Levels: SampleLevels(e.tri.Curve, layout.NormalizedHeight(yMin), layout.NormalizedHeight(yMax)),
		YMin:   yMin,
		YMax:   yMax,
		Policy: e.tri.Policy,
	}
}

// End finishes a run, releasing one-shot buffers.
func (e *Executor) End() error {
	if e.buffers == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.buffers.Lifecycle() == LifecycleOneShot {
		e.active = nil
	}
	return e.buffers.Done()
}

// BufferStats returns the buffer manager counters; zero on the reference path.
func (e *Executor) BufferStats() BufferStats {
	if e.buffers == nil {
		return BufferStats{}
	}
	return e.buffers.Stats()
}

// Close releases all buffers and, if the executor created it, the
// software accelerator.
func (e *Executor) Close() error {
	if e.buffers == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = nil
	err := e.buffers.Release()
	if e.ownsAccel {
		e.accel.Close()
		e.ownsAccel = false
	}
	return err
}
