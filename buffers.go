package isosurface

import (
	"errors"
	"fmt"
	"sync"
)

// Lifecycle selects how long accelerator buffers live.
type Lifecycle uint8

const (
	// LifecycleContinuous keeps buffers between runs and reallocates them
	// only when the lattice resolution changes. Use it inside a live
	// update loop to avoid per-frame allocation churn.
	LifecycleContinuous Lifecycle = iota

	// LifecycleOneShot allocates fresh buffers for every run and releases
	// them before the run returns. Use it for infrequent regenerations of
	// varying size so nothing is retained between them.
	LifecycleOneShot
)

// String returns the lifecycle name.
func (l Lifecycle) String() string {
	switch l {
	case LifecycleContinuous:
		return "Continuous"
	case LifecycleOneShot:
		return "OneShot"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// BufferAllocator creates buffer sets. Every Accelerator is one.
type BufferAllocator interface {
	NewBuffers(spec BufferSpec) (BufferSet, error)
}

// BufferStats counts buffer manager activity.
type BufferStats struct {
	// Allocations is the number of buffer sets created.
	Allocations int

	// Releases is the number of buffer sets released.
	Releases int

	// PointsPerAxis is the resolution of the live set, 0 if none.
	PointsPerAxis int

	// Bytes is the size of the live set, 0 if none.
	Bytes uint64
}

// BufferManager owns the accelerator's buffer set and applies the
// lifecycle policy. It is safe for concurrent use; callers that dispatch
// must additionally hold their own dispatch lock across Acquire and
// Dispatch so a resize never races an in-flight dispatch.
type BufferManager struct {
	mu        sync.Mutex
	alloc     BufferAllocator
	lifecycle Lifecycle
	current   BufferSet
	stats     BufferStats
}

// NewBufferManager returns a manager allocating from alloc.
func NewBufferManager(alloc BufferAllocator, lifecycle Lifecycle) *BufferManager {
	return &BufferManager{alloc: alloc, lifecycle: lifecycle}
}

// Lifecycle returns the manager's policy.
func (m *BufferManager) Lifecycle() Lifecycle { return m.lifecycle }

// Acquire returns a buffer set for resolution n. In continuous mode the
// live set is reused while n is unchanged; in one-shot mode a fresh set is
// always created.
func (m *BufferManager) Acquire(n int) (BufferSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lifecycle == LifecycleContinuous && m.current != nil && m.current.Spec().PointsPerAxis == n {
		return m.current, nil
	}
	if err := m.releaseLocked(); err != nil {
		return nil, err
	}

	spec := BufferSpec{PointsPerAxis: n}
	bufs, err := m.alloc.NewBuffers(spec)
	if err != nil {
		if !errors.Is(err, ErrBufferAlloc) {
			err = fmt.Errorf("%w: %w", ErrBufferAlloc, err)
		}
		return nil, err
	}
	m.current = bufs
	m.stats.Allocations++
	m.stats.PointsPerAxis = n
	m.stats.Bytes = spec.TotalBytes()

	Logger().Debug("isosurface: accelerator buffers allocated",
		"points_per_axis", n,
		"points_bytes", spec.PointBytes(),
		"triangle_bytes", spec.TriangleBytes(),
		"max_triangles", spec.MaxTriangles(),
		"lifecycle", m.lifecycle.String())
	return bufs, nil
}

// Done ends a run. One-shot buffers are released; continuous buffers are kept.
func (m *BufferManager) Done() error {
	if m.lifecycle != LifecycleOneShot {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked()
}

// Release frees the live buffer set regardless of policy. It must be
// called when the owning generator is torn down. Safe to call repeatedly.
func (m *BufferManager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked()
}

// Stats returns a snapshot of the manager's counters.
func (m *BufferManager) Stats() BufferStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *BufferManager) releaseLocked() error {
	if m.current == nil {
		return nil
	}
	err := m.current.Release()
	m.current = nil
	m.stats.Releases++
	m.stats.PointsPerAxis = 0
	m.stats.Bytes = 0
	if err != nil {
		Logger().Warn("isosurface: buffer release failed", "err", err)
		return fmt.Errorf("isosurface: release buffers: %w", err)
	}
	return nil
}
