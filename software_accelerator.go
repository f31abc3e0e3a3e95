package isosurface

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/image/math/f32"
)

// DefaultSoftwareBudget caps the bytes a SoftwareAccelerator allocates for
// one buffer set (1 GiB).
const DefaultSoftwareBudget = 1 << 30

// SoftwareAccelerator emulates the accelerator kernel on the CPU. It keeps
// the kernel's execution model: thread groups of 8×8×8 invocations, a
// bounds check per invocation, per-corner thresholds read from the level
// table, an append buffer claimed through an atomic counter and a separate
// count readback. It is used when no GPU accelerator is registered and as
// the reference for GPU accelerator tests.
//
// Usage:
//
//	isosurface.RegisterAccelerator(&isosurface.SoftwareAccelerator{})
type SoftwareAccelerator struct {
	// Budget is the largest buffer set NewBuffers will allocate, in bytes.
	// Zero means DefaultSoftwareBudget.
	Budget uint64
}

var _ Accelerator = (*SoftwareAccelerator)(nil)

// Name returns the accelerator name.
func (a *SoftwareAccelerator) Name() string { return "software" }

// Init initializes the accelerator. No resources are needed.
func (a *SoftwareAccelerator) Init() error { return nil }

// Close releases resources. No-op for the software kernel.
func (a *SoftwareAccelerator) Close() {}

// softwareBuffers mirrors the four device buffers in host memory.
type softwareBuffers struct {
	spec      BufferSpec
	points    []f32.Vec4
	levels    Levels
	triangles []TriangleRecord
	counter   atomic.Uint32
	released  atomic.Bool
}

func (b *softwareBuffers) Spec() BufferSpec { return b.spec }

func (b *softwareBuffers) Release() error {
	if b.released.Swap(true) {
		return nil
	}
	b.points = nil
	b.triangles = nil
	return nil
}

// NewBuffers allocates host buffers for spec.
func (a *SoftwareAccelerator) NewBuffers(spec BufferSpec) (BufferSet, error) {
	if spec.PointsPerAxis < 2 {
		return nil, fmt.Errorf("%w: %d points per axis", ErrBufferAlloc, spec.PointsPerAxis)
	}
	budget := a.Budget
	if budget == 0 {
		budget = DefaultSoftwareBudget
	}
	if total := spec.TotalBytes(); total > budget {
		return nil, fmt.Errorf("%w: %d bytes exceeds budget of %d", ErrBufferAlloc, total, budget)
	}
	return &softwareBuffers{
		spec:      spec,
		points:    make([]f32.Vec4, spec.Points()),
		triangles: make([]TriangleRecord, spec.MaxTriangles()),
	}, nil
}

// Dispatch uploads the input, runs every thread group and reads back the
// appended triangles.
func (a *SoftwareAccelerator) Dispatch(ctx context.Context, bufs BufferSet, in KernelInput) (Soup, error) {
	b, ok := bufs.(*softwareBuffers)
	if !ok {
		return nil, fmt.Errorf("isosurface: software accelerator cannot use %T buffers", bufs)
	}
	if b.released.Load() {
		return nil, ErrBuffersReleased
	}
	if len(in.Points) != len(b.points) {
		return nil, fmt.Errorf("%w: %d points for a %d-point buffer", ErrSampleCount, len(in.Points), len(b.points))
	}

	copy(b.points, in.Points)
	b.levels = in.Levels
	b.counter.Store(0)

	k := kernel{bufs: b, yMin: in.YMin, yMax: in.YMax, policy: in.Policy}
	groups := b.spec.Groups()

	// One goroutine per group slab along x; groups never share state
	// except the append counter.
	var wg sync.WaitGroup
	for gx := 0; gx < groups; gx++ {
		wg.Add(1)
		go func(gx int) {
			defer wg.Done()
			for gy := 0; gy < groups; gy++ {
				for gz := 0; gz < groups; gz++ {
					k.runGroup(gx, gy, gz)
				}
			}
		}(gx)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDispatchStalled, err)
	}

	// Count readback, then copy exactly that many records.
	count := int(b.counter.Load())
	if count > len(b.triangles) {
		return nil, fmt.Errorf("%w: %d triangles, capacity %d", ErrCapacityExceeded, count, len(b.triangles))
	}
	soup := make(Soup, count)
	for i := range soup {
		soup[i] = b.triangles[i].Triangle()
	}
	return soup, nil
}

// kernel is one dispatch of the marching-cubes program.
type kernel struct {
	bufs       *softwareBuffers
	yMin, yMax float32
	policy     InterpolationPolicy
}

func (k *kernel) runGroup(gx, gy, gz int) {
	for lx := 0; lx < ThreadGroupSize; lx++ {
		for ly := 0; ly < ThreadGroupSize; ly++ {
			for lz := 0; lz < ThreadGroupSize; lz++ {
				k.invoke(
					gx*ThreadGroupSize+lx,
					gy*ThreadGroupSize+ly,
					gz*ThreadGroupSize+lz,
				)
			}
		}
	}
}

// invoke is the body of one kernel invocation for voxel (x, y, z).
func (k *kernel) invoke(x, y, z int) {
	n := k.bufs.spec.PointsPerAxis
	if x >= n-1 || y >= n-1 || z >= n-1 {
		return
	}

	var cube Cube
	for i, o := range cornerOffsets {
		p := k.bufs.points[(x+o[0])*n*n+(y+o[1])*n+z+o[2]]
		cube.Positions[i] = [3]float32{p[0], p[1], p[2]}
		cube.Weights[i] = p[3]
		cube.Thresholds[i] = k.bufs.levels.At(p[1], k.yMin, k.yMax)
	}

	var local [5]Triangle
	for _, t := range MarchCube(&cube, k.policy, local[:0]) {
		slot := k.bufs.counter.Add(1) - 1
		if int(slot) < len(k.bufs.triangles) {
			k.bufs.triangles[slot] = RecordOf(t)
		}
	}
}
