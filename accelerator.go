package isosurface

import (
	"context"
	"errors"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"golang.org/x/image/math/f32"
)

// ThreadGroupSize is the edge length of one accelerator thread group.
// A chunk with V voxels per axis is dispatched as ceil(V/8)³ groups.
const ThreadGroupSize = 8

// Record sizes of the accelerator wire layout, in bytes.
const (
	PointRecordSize    = 4 * 4  // xyz position + weight
	TriangleRecordSize = 12 * 4 // three positions + normal, packed float3
	CounterSize        = 4
	LevelsSize         = NumLevels * 4
)

// TriangleRecord is one entry of the accelerator's append buffer:
// vertices A, B, C and the face normal as packed float3 values.
type TriangleRecord [4]f32.Vec3

// Triangle converts the record to a Triangle.
func (r TriangleRecord) Triangle() Triangle {
	return Triangle{
		A:      mgl32.Vec3(r[0]),
		B:      mgl32.Vec3(r[1]),
		C:      mgl32.Vec3(r[2]),
		Normal: mgl32.Vec3(r[3]),
	}
}

// RecordOf converts a triangle to its wire record.
func RecordOf(t Triangle) TriangleRecord {
	return TriangleRecord{
		f32.Vec3(t.A),
		f32.Vec3(t.B),
		f32.Vec3(t.C),
		f32.Vec3(t.Normal),
	}
}

// PackPoints converts chunk samples to the kernel's float4 layout.
func PackPoints(samples []Sample) []f32.Vec4 {
	out := make([]f32.Vec4, len(samples))
	for i, s := range samples {
		out[i] = f32.Vec4{s.Position[0], s.Position[1], s.Position[2], s.Weight}
	}
	return out
}

// BufferSpec derives the sizes of the accelerator buffers for one lattice
// resolution.
type BufferSpec struct {
	PointsPerAxis int
}

// VoxelsPerAxis returns N-1.
func (s BufferSpec) VoxelsPerAxis() int { return s.PointsPerAxis - 1 }

// Points returns N³.
func (s BufferSpec) Points() int {
	return s.PointsPerAxis * s.PointsPerAxis * s.PointsPerAxis
}

// MaxTriangles returns the append buffer capacity (N-1)³×5.
func (s BufferSpec) MaxTriangles() int {
	v := s.VoxelsPerAxis()
	return v * v * v * 5
}

// Groups returns the thread groups per axis, ceil((N-1)/8).
func (s BufferSpec) Groups() int {
	return (s.VoxelsPerAxis() + ThreadGroupSize - 1) / ThreadGroupSize
}

// PointBytes returns the size of the samples buffer.
func (s BufferSpec) PointBytes() uint64 { return uint64(s.Points()) * PointRecordSize }

// TriangleBytes returns the size of the append buffer.
func (s BufferSpec) TriangleBytes() uint64 { return uint64(s.MaxTriangles()) * TriangleRecordSize }

// TotalBytes returns the combined size of all four buffers.
func (s BufferSpec) TotalBytes() uint64 {
	return s.PointBytes() + s.TriangleBytes() + CounterSize + LevelsSize
}

// BufferSet is the set of fixed-capacity buffers an accelerator dispatches
// into: samples, append output, counter and threshold levels.
type BufferSet interface {
	Spec() BufferSpec
	Release() error
}

// KernelInput is everything one chunk dispatch consumes.
type KernelInput struct {
	// Points holds N³ float4 records (xyz position, weight).
	Points []f32.Vec4

	// Levels is the threshold table sampled over [YMin, YMax].
	Levels Levels

	// YMin and YMax are the lowest and highest lattice heights of the chunk.
	YMin, YMax float32

	Policy InterpolationPolicy
}

// Accelerator runs the marching-cubes kernel as a batched parallel
// dispatch. Implementations must produce the same set of triangles as the
// Triangulator for the same samples and threshold table.
//
// Dispatch is synchronous: it returns after the triangle count and data
// have been read back. Callers never overlap two dispatches.
//
// GPU backends register themselves through a blank import:
//
//	import _ "github.com/gogpu/isosurface/gpu"
type Accelerator interface {
	// Name returns the accelerator name (e.g. "software", "wgpu").
	Name() string

	// Init acquires device resources. Called once during registration.
	Init() error

	// Close releases device resources.
	Close()

	// NewBuffers allocates a buffer set sized for spec.
	// Failures wrap ErrBufferAlloc.
	NewBuffers(spec BufferSpec) (BufferSet, error)

	// Dispatch triangulates one chunk using bufs.
	Dispatch(ctx context.Context, bufs BufferSet, in KernelInput) (Soup, error)
}

// DeviceProviderAware is implemented by accelerators that can share a GPU
// device owned by a host application.
type DeviceProviderAware interface {
	SetDeviceProvider(provider gpucontext.DeviceProvider) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator installs a for the accelerator backend. The
// accelerator's Init is called first; on failure nothing is registered.
// A previously registered accelerator is closed.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("isosurface: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil && old != a {
		old.Close()
	}
	Logger().Info("isosurface: accelerator registered", "name", a.Name())
	return nil
}

// RegisteredAccelerator returns the registered accelerator, or nil.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes provider to the registered
// accelerator so it reuses the host's GPU device. It is a no-op when no
// accelerator is registered or the accelerator cannot share devices.
func SetAcceleratorDeviceProvider(provider gpucontext.DeviceProvider) error {
	a := RegisteredAccelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
