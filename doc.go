// Package isosurface extracts triangle meshes from scalar fields sampled on
// a grid of chunks, using marching cubes.
//
// # Overview
//
// A Generator owns a lattice of chunks. Each run samples a WeightField at
// every lattice point, classifies each voxel against an iso threshold that
// varies with world height, and emits the triangles of the voxel's cube
// configuration. Results flow through an optional Modifier (welding,
// normal smoothing, seam stitching) into a Sink.
//
// # Quick Start
//
//	import "github.com/gogpu/isosurface"
//
//	g, err := isosurface.New(field,
//	    isosurface.WithLayout(isosurface.Layout{
//	        NumChunks:     isosurface.C(4, 2, 4),
//	        ChunkSize:     16,
//	        PointsPerAxis: 17,
//	    }),
//	    isosurface.WithCurve(isosurface.LinearCurve{From: -0.2, To: 0.4}),
//	    isosurface.WithSink(sink),
//	)
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//	stats, err := g.Run(ctx)
//
// # Backends
//
// BackendReference triangulates chunks on the CPU with the Triangulator,
// one chunk per worker. BackendAccelerator batches every chunk into one
// kernel dispatch on the registered Accelerator. Without a registered GPU
// accelerator the SoftwareAccelerator runs the same kernel on the CPU.
//
//	import _ "github.com/gogpu/isosurface/gpu" // registers the wgpu kernel
//
// Both backends produce the same set of triangles for a constant threshold
// curve. For height-varying curves the accelerator reads thresholds from a
// 64-entry table sampled per chunk, which agrees with the reference path
// up to rounding.
//
// # Coordinate System
//
// The grid is centered on the origin. Chunk (x, y, z) is centered at
//
//	-totalBounds/2 + coord*chunkSize + chunkSize/2
//
// Neighbouring chunks share their boundary lattice plane, so seams line up
// without overlap voxels. Heights passed to the threshold curve are
// normalized to [0, 1] across the whole grid.
//
// # Thread Safety
//
// A Generator is safe for concurrent use; runs are serialized and setting
// changes are coalesced into the next RunIfDirty. Chunks and the Lattice
// are owned by the generator and must not be mutated during a run.
//
// # Logging
//
// The package is silent by default. See SetLogger.
package isosurface
