package isosurface

import "errors"

// Sentinel errors. Callers match them with errors.Is; the generator wraps
// them with the chunk coordinate or buffer label that failed.
var (
	// ErrInvalidLayout is returned when the chunk layout cannot describe a lattice
	// (fewer than two points per axis, non-positive chunk size, empty grid).
	ErrInvalidLayout = errors.New("isosurface: invalid chunk layout")

	// ErrSampleCount is returned when a weight field supplies a sample slice
	// whose length differs from PointsPerAxis³. It is fatal for the chunk.
	ErrSampleCount = errors.New("isosurface: wrong sample count")

	// ErrCornerCount reports a cube submitted with a corner count other than 8.
	ErrCornerCount = errors.New("isosurface: cube needs exactly 8 corners")

	// ErrNoField is returned when a generator is built without a weight field.
	ErrNoField = errors.New("isosurface: weight field is required")

	// ErrBufferAlloc is returned when accelerator buffers cannot be created.
	// It is fatal for the whole run.
	ErrBufferAlloc = errors.New("isosurface: accelerator buffer allocation failed")

	// ErrCapacityExceeded is returned when a dispatch reports more triangles
	// than the append buffer can hold.
	ErrCapacityExceeded = errors.New("isosurface: triangle buffer capacity exceeded")

	// ErrDispatchStalled is returned when an accelerator dispatch does not
	// complete. The run is aborted; there is no retry.
	ErrDispatchStalled = errors.New("isosurface: accelerator dispatch stalled")

	// ErrBuffersReleased is returned when dispatching into a released buffer set.
	ErrBuffersReleased = errors.New("isosurface: buffers have been released")

	// ErrInvariant reports a state the algorithm cannot reach with valid tables.
	ErrInvariant = errors.New("isosurface: invariant violated")

	// ErrClosed is returned by a generator after Close.
	ErrClosed = errors.New("isosurface: generator is closed")
)
