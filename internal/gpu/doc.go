//go:build !nogpu

// Package gpu implements the isosurface accelerator on the GPU.
//
// It runs marching cubes as a WGSL compute shader through gogpu/wgpu/hal
// (Pure Go, zero CGO). The shader is compiled to SPIR-V with gogpu/naga
// at pipeline creation.
//
// # Dispatch
//
// One chunk is one dispatch of ceil((N-1)/8)³ thread groups of 8×8×8
// invocations, one per voxel:
//
//	binding 0  uniform   Params (N, capacity, policy, yMin, yMax)
//	binding 1  storage   points    N³ × vec4<f32> (xyz, weight)
//	binding 2  storage   levels    64 × f32
//	binding 3  storage   tri_table 256 × 16 × i32
//	binding 4  storage   triangles (N-1)³ × 5 × 12 × f32, append buffer
//	binding 5  storage   counter   atomic<u32>
//
// The counter is copied back first. If it exceeds the capacity the
// dispatch fails with isosurface.ErrCapacityExceeded; otherwise exactly
// count records are copied to a staging buffer and read.
//
// # Device sharing
//
// MarchAccelerator opens its own Vulkan device on Init. A host that
// already owns a device passes it through SetDeviceProvider.
//
// # Build tags
//
// Build with -tags nogpu to exclude the package.
package gpu
